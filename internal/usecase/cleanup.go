package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/ports"
)

// Cleaner enforces the retention horizon.
type Cleaner struct {
	store  ports.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewCleaner(store ports.Store, logger *slog.Logger, now func() time.Time) *Cleaner {
	if logger == nil {
		logger = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Cleaner{store: store, logger: logger, now: now}
}

// CleanupOldData deletes articles, summaries and briefings created more than
// retentionDays ago, in one transaction.
func (c *Cleaner) CleanupOldData(ctx context.Context, retentionDays int) (domain.CleanupReport, error) {
	if retentionDays <= 0 {
		return domain.CleanupReport{}, fmt.Errorf("retention must be positive, got %d days", retentionDays)
	}
	cutoff := c.now().AddDate(0, 0, -retentionDays)

	var report domain.CleanupReport
	err := c.store.WithTx(ctx, func(tx ports.Store) error {
		var err error
		if report.Articles, err = tx.DeleteArticlesBefore(ctx, cutoff); err != nil {
			return err
		}
		if report.Summaries, err = tx.DeleteSummariesBefore(ctx, cutoff); err != nil {
			return err
		}
		report.Briefings, err = tx.DeleteBriefingsBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return domain.CleanupReport{}, fmt.Errorf("cleanup before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	c.logger.InfoContext(ctx, "old data removed",
		"cutoff", cutoff,
		"articles", report.Articles,
		"summaries", report.Summaries,
		"briefings", report.Briefings,
	)
	return report, nil
}
