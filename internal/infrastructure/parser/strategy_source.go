package parser

import (
	"context"
	"fmt"
	"log/slog"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/ports"
	"MarketBrief/internal/source"
)

// StrategySource implements CandidateSource via per-region adapter chains.
type StrategySource struct {
	registry *source.Registry
	logger   *slog.Logger
}

var _ ports.CandidateSource = (*StrategySource)(nil)

// NewStrategySource wires the adapter registry.
func NewStrategySource(reg *source.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		logger:   log,
	}
}

// BeginRun resets run-scoped caches on every adapter that keeps one.
func (s *StrategySource) BeginRun() {
	if s.registry == nil {
		return
	}
	s.registry.Each(func(_ domain.Region, chain *source.Chain) {
		for _, adapter := range chain.Adapters() {
			if aware, ok := adapter.(source.RunAware); ok {
				aware.BeginRun()
			}
		}
	})
}

// Candidates runs the topic's region chain. Unconfigured sources yield an
// empty list; a provider failure is returned as an error.
func (s *StrategySource) Candidates(ctx context.Context, topic domain.TrackedTopic) ([]domain.Candidate, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("source registry is not configured")
	}

	chain, err := s.registry.Resolve(topic.Region)
	if err != nil {
		return nil, fmt.Errorf("topic %s: %w", topic.Label, err)
	}

	s.debug("fetch topic", "topic", topic.Label, "region", topic.Region)
	res, used := chain.Fetch(ctx, topic)

	switch res.Status {
	case source.StatusOK:
		s.debug("topic produced candidates", "topic", topic.Label, "adapter", used, "count", len(res.Candidates))
		return res.Candidates, nil
	case source.StatusUnavailable:
		return nil, nil
	default:
		return nil, fmt.Errorf("topic %s: %w", topic.Label, res.Err)
	}
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
