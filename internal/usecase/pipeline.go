package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
)

// PipelineDeps wires the stages run by a scheduled session.
type PipelineDeps struct {
	Collector    *Collector
	Consolidator *Consolidator
	Briefing     *BriefingGenerator
	Logger       *slog.Logger
	Location     *time.Location
	Now          func() time.Time
}

// Pipeline runs collection, consolidation and briefing in sequence.
type Pipeline struct {
	collector    *Collector
	consolidator *Consolidator
	briefing     *BriefingGenerator
	logger       *slog.Logger
	location     *time.Location
	now          func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		collector:    deps.Collector,
		consolidator: deps.Consolidator,
		briefing:     deps.Briefing,
		logger:       deps.Logger,
		location:     deps.Location,
		now:          deps.Now,
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// SessionReport summarizes one scheduled run.
type SessionReport struct {
	RunID             string
	BatchID           string
	ArticlesCollected int
	SummariesCreated  int
	Briefing          *domain.Briefing
}

// RunSession executes all stages for session. A failing stage is logged and
// the following stages still run; the joined stage errors are returned.
func (p *Pipeline) RunSession(ctx context.Context, session domain.Session) (SessionReport, error) {
	report := SessionReport{
		RunID:   uuid.NewString(),
		BatchID: domain.BatchID(p.now().In(p.location), session),
	}
	logger := p.logger.With("run_id", report.RunID, "batch_id", report.BatchID)
	logger.InfoContext(ctx, "session started", "session", session)

	var errs []error

	articles, err := p.collector.CollectAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "collection failed", "error", err)
		errs = append(errs, fmt.Errorf("collect: %w", err))
	}
	report.ArticlesCollected = len(articles)

	created, err := p.consolidator.ProcessBatch(ctx, report.BatchID)
	if err != nil {
		logger.ErrorContext(ctx, "consolidation failed", "error", err)
		errs = append(errs, fmt.Errorf("consolidate: %w", err))
	}
	report.SummariesCreated = created

	briefing, err := p.briefing.Generate(ctx, session)
	if err != nil {
		logger.ErrorContext(ctx, "briefing failed", "error", err)
		errs = append(errs, fmt.Errorf("brief: %w", err))
	}
	report.Briefing = briefing

	logger.InfoContext(ctx, "session finished",
		"session", session,
		"articles", report.ArticlesCollected,
		"summaries", report.SummariesCreated,
		"briefing", briefing != nil,
	)
	return report, errors.Join(errs...)
}

// Refresh collects and consolidates under a manual batch id. It never
// returns an error: failures are reported in the result.
func (p *Pipeline) Refresh(ctx context.Context) (result domain.RefreshResult) {
	batchID := domain.ManualBatchID(p.now().In(p.location))
	logger := p.logger.With("run_id", uuid.NewString(), "batch_id", batchID)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "manual refresh panicked", "panic", r)
			result = refreshFailure(fmt.Errorf("panic: %v", r))
		}
	}()

	articles, err := p.collector.CollectAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "manual refresh failed", "stage", "collect", "error", err)
		return refreshFailure(err)
	}

	created, err := p.consolidator.ProcessBatch(ctx, batchID)
	if err != nil {
		logger.ErrorContext(ctx, "manual refresh failed", "stage", "consolidate", "error", err)
		return refreshFailure(err)
	}

	logger.InfoContext(ctx, "manual refresh finished", "articles", len(articles), "summaries", created)
	return domain.RefreshResult{
		Status:            domain.RefreshSuccess,
		ArticlesCollected: len(articles),
		ArticlesProcessed: created,
		Message:           fmt.Sprintf("Collected %d articles, created %d topic summaries", len(articles), created),
	}
}

func refreshFailure(err error) domain.RefreshResult {
	return domain.RefreshResult{Status: domain.RefreshError, Message: err.Error()}
}
