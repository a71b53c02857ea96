package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"MarketBrief/internal/domain"
)

// Status classifies the outcome of a single adapter fetch.
type Status int

const (
	StatusOK Status = iota
	// StatusUnavailable means the adapter is not configured (no key, no feeds).
	StatusUnavailable
	// StatusFailed means a transient provider error.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is what an adapter returns instead of an ambiguous empty list.
type Result struct {
	Status     Status
	Candidates []domain.Candidate
	Reason     string
	Err        error
}

// OK wraps candidates found by an adapter. An empty slice is still OK.
func OK(candidates []domain.Candidate) Result {
	return Result{Status: StatusOK, Candidates: candidates}
}

// Unavailable reports missing configuration.
func Unavailable(reason string) Result {
	return Result{Status: StatusUnavailable, Reason: reason, Err: domain.ErrNotConfigured}
}

// Failed reports a provider error.
func Failed(err error) Result {
	return Result{Status: StatusFailed, Err: err, Reason: errString(err)}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Adapter is a single news provider strategy (Finnhub, RSS, Naver, etc.).
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, topic domain.TrackedTopic) Result
}

// RunAware adapters keep per-run state that must be dropped when a new
// collection pass starts.
type RunAware interface {
	BeginRun()
}

// Chain tries adapters in order and returns the first OK result.
type Chain struct {
	adapters []Adapter
	logger   *slog.Logger
}

// NewChain builds a strategy chain; order is priority.
func NewChain(logger *slog.Logger, adapters ...Adapter) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{adapters: adapters, logger: logger}
}

// Adapters exposes the chain members.
func (c *Chain) Adapters() []Adapter {
	return c.adapters
}

// Fetch runs each adapter once. Any non-OK result moves on to the next one.
func (c *Chain) Fetch(ctx context.Context, topic domain.TrackedTopic) (Result, string) {
	last := Unavailable("no adapters")
	for _, adapter := range c.adapters {
		res := adapter.Fetch(ctx, topic)
		if res.Status == StatusOK {
			return res, adapter.Name()
		}
		c.logger.WarnContext(ctx, "source did not produce results",
			"adapter", adapter.Name(),
			"topic", topic.Label,
			"status", res.Status.String(),
			"reason", res.Reason,
		)
		last = res
	}
	return last, ""
}

// Registry keeps one chain per region.
type Registry struct {
	chains map[domain.Region]*Chain
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{chains: map[domain.Region]*Chain{}}
}

// Register adds or replaces the chain for a region.
func (r *Registry) Register(region domain.Region, chain *Chain) {
	if r.chains == nil {
		r.chains = map[domain.Region]*Chain{}
	}
	r.chains[region] = chain
}

// ErrNoChain is returned when a region has no registered strategy.
var ErrNoChain = errors.New("no source chain registered")

// Resolve returns the chain for a region or an error if it is absent.
func (r *Registry) Resolve(region domain.Region) (*Chain, error) {
	if chain, ok := r.chains[region]; ok {
		return chain, nil
	}
	return nil, fmt.Errorf("region %s: %w", region, ErrNoChain)
}

// Each visits every registered chain.
func (r *Registry) Each(fn func(domain.Region, *Chain)) {
	for region, chain := range r.chains {
		fn(region, chain)
	}
}
