package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"MarketBrief/internal/ports"
)

// retryPolicy is a fixed budget with a constant pause between attempts.
type retryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// NoPauseOnSyntax retries unparseable output immediately.
	NoPauseOnSyntax bool
}

func (p retryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// generate calls the model until decode accepts its output or the budget runs out.
func generate[T any](ctx context.Context, model ports.Model, policy retryPolicy, logger *slog.Logger, req ports.GenerationRequest, decode func(string) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	total := policy.attempts()

	for attempt := 1; attempt <= total; attempt++ {
		raw, err := model.Generate(ctx, req)
		if err == nil {
			value, decodeErr := decode(raw)
			if decodeErr == nil {
				return value, nil
			}
			err = decodeErr
		}
		lastErr = err

		logger.WarnContext(ctx, "model attempt failed",
			"kind", req.Kind,
			"model", model.Name(),
			"attempt", attempt,
			"of", total,
			"error", err,
		)
		if attempt == total {
			break
		}

		var respErr *ResponseError
		if policy.NoPauseOnSyntax && errors.As(err, &respErr) && respErr.Syntax {
			continue
		}
		if err := sleep(ctx, policy.Backoff); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%s after %d attempts: %w", req.Kind, total, lastErr)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
