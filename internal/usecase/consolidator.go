package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/ports"
)

// ConsolidatorDeps wires the consolidation use case.
type ConsolidatorDeps struct {
	Store        ports.Store
	Model        ports.Model
	Logger       *slog.Logger
	Temperature  float32
	MaxAttempts  int
	RetryBackoff time.Duration
	GroupDelay   time.Duration
	Now          func() time.Time
}

// Consolidator clusters unprocessed articles per topic tag into summaries.
type Consolidator struct {
	store       ports.Store
	model       ports.Model
	logger      *slog.Logger
	temperature float32
	policy      retryPolicy
	groupDelay  time.Duration
	now         func() time.Time
}

// NewConsolidator constructs the consolidation use case.
func NewConsolidator(deps ConsolidatorDeps) *Consolidator {
	c := &Consolidator{
		store:       deps.Store,
		model:       deps.Model,
		logger:      deps.Logger,
		temperature: deps.Temperature,
		policy: retryPolicy{
			Attempts:        deps.MaxAttempts,
			Backoff:         deps.RetryBackoff,
			NoPauseOnSyntax: true,
		},
		groupDelay: deps.GroupDelay,
		now:        deps.Now,
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.policy.Attempts <= 0 {
		c.policy.Attempts = 3
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// ProcessBatch consolidates the whole backlog and returns the summaries created.
func (c *Consolidator) ProcessBatch(ctx context.Context, batchID string) (int, error) {
	return c.process(ctx, batchID, "")
}

// ProcessKeyword consolidates the backlog of a single topic tag.
func (c *Consolidator) ProcessKeyword(ctx context.Context, batchID, tag string) (int, error) {
	if strings.TrimSpace(tag) == "" {
		return 0, fmt.Errorf("process keyword: empty tag")
	}
	return c.process(ctx, batchID, tag)
}

type articleGroup struct {
	tag      string
	region   domain.Region
	articles []domain.Article
}

// groupOutcome is what one group contributes to the batch transaction.
type groupOutcome struct {
	summaries []domain.TopicSummary
	marks     map[int64]domain.Annotation
	order     []int64
}

func (c *Consolidator) process(ctx context.Context, batchID, tag string) (int, error) {
	if c.model == nil {
		c.logger.WarnContext(ctx, "consolidation skipped: no model configured")
		return 0, nil
	}

	backlog, err := c.store.UnprocessedArticles(ctx, tag)
	if err != nil {
		return 0, fmt.Errorf("load backlog: %w", err)
	}
	if len(backlog) == 0 {
		c.logger.InfoContext(ctx, "nothing to consolidate", "batch_id", batchID, "tag", tag)
		return 0, nil
	}

	groups := groupByTag(backlog)
	outcomes := make([]groupOutcome, 0, len(groups))
	for i, g := range groups {
		outcome, err := c.consolidate(ctx, batchID, g)
		if err != nil {
			c.logger.ErrorContext(ctx, "group skipped", "tag", g.tag, "articles", len(g.articles), "error", err)
		} else {
			outcomes = append(outcomes, outcome)
		}

		if i < len(groups)-1 {
			if err := sleep(ctx, c.groupDelay); err != nil {
				return 0, err
			}
		}
	}

	created := 0
	for _, o := range outcomes {
		created += len(o.summaries)
	}
	if created == 0 {
		return 0, nil
	}

	processedAt := c.now()
	err = c.store.WithTx(ctx, func(tx ports.Store) error {
		for _, o := range outcomes {
			for _, s := range o.summaries {
				s.CreatedAt = processedAt
				if _, err := tx.InsertTopicSummary(ctx, s); err != nil {
					return err
				}
			}
			for _, id := range o.order {
				if err := tx.MarkProcessed(ctx, id, o.marks[id], processedAt); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("commit batch %s: %w", batchID, err)
	}

	c.logger.InfoContext(ctx, "batch consolidated",
		"batch_id", batchID,
		"groups", len(groups),
		"articles", len(backlog),
		"summaries", created,
	)
	return created, nil
}

func (c *Consolidator) consolidate(ctx context.Context, batchID string, g articleGroup) (groupOutcome, error) {
	req := ports.GenerationRequest{
		Kind:        ports.KindConsolidation,
		Prompt:      consolidationPrompt(g.tag, g.region, g.articles),
		Temperature: c.temperature,
	}

	resp, err := generate(ctx, c.model, c.policy, c.logger.With("tag", g.tag), req, decodeConsolidation)
	if err != nil {
		return groupOutcome{}, err
	}

	outcome := groupOutcome{
		marks: make(map[int64]domain.Annotation, len(g.articles)),
		order: make([]int64, 0, len(g.articles)),
	}
	for _, section := range resp.Sections {
		claimed := resolveIndices(section.ArticleIndices, g.articles)
		if len(claimed) == 0 {
			c.logger.WarnContext(ctx, "section claimed no articles, assigning the whole group",
				"tag", g.tag, "headline", section.Headline)
			claimed = g.articles
		}

		sources := make([]domain.SourceRef, 0, len(claimed))
		for _, a := range claimed {
			sources = append(sources, domain.SourceRef{ID: a.ID, Title: a.Title, Link: a.Link, Source: a.Source})
		}

		headline := strings.TrimSpace(section.Headline)
		if headline == "" {
			headline = g.tag
		}
		summary := domain.NewTopicSummary(g.tag, g.region, batchID, sources)
		summary.Headline = headline
		summary.Summary = strings.TrimSpace(*section.Summary)
		summary.Sentiment = domain.Sentiment(section.Sentiment)
		summary.Tickers = section.Tickers
		outcome.summaries = append(outcome.summaries, summary)

		for _, a := range claimed {
			if _, ok := outcome.marks[a.ID]; ok {
				continue
			}
			outcome.marks[a.ID] = domain.Annotation{
				Sentiment: summary.Sentiment,
				Tickers:   summary.Tickers,
				Digest:    headline,
			}
		}
	}

	for _, a := range g.articles {
		outcome.order = append(outcome.order, a.ID)
	}

	c.logger.DebugContext(ctx, "group consolidated", "tag", g.tag, "articles", len(g.articles), "sections", len(outcome.summaries))
	return outcome, nil
}

// groupByTag keeps first-appearance order of tags and the backlog order within each.
func groupByTag(articles []domain.Article) []articleGroup {
	index := make(map[string]int)
	var groups []articleGroup
	for _, a := range articles {
		i, ok := index[a.TopicTag]
		if !ok {
			i = len(groups)
			index[a.TopicTag] = i
			groups = append(groups, articleGroup{tag: a.TopicTag, region: a.Region})
		}
		groups[i].articles = append(groups[i].articles, a)
	}
	return groups
}

// resolveIndices maps 1-based indices to articles, dropping out-of-range and repeated ones.
func resolveIndices(indices []int, articles []domain.Article) []domain.Article {
	seen := make(map[int]struct{}, len(indices))
	var out []domain.Article
	for _, idx := range indices {
		if idx < 1 || idx > len(articles) {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, articles[idx-1])
	}
	return out
}
