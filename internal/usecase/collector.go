package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/ports"
)

const (
	defaultEnrichLimit = 100
	// Snippets longer than this keep their text and get the body appended.
	appendSnippetRunes = 50
)

// CollectorDeps wires the collector's driven adapters.
type CollectorDeps struct {
	Store        ports.Store
	Source       ports.CandidateSource
	Extractor    ports.BodyExtractor
	Logger       *slog.Logger
	EnrichLimit  int
	ExtractDelay time.Duration
	Now          func() time.Time
}

// Collector fetches candidates for tracked topics and stores the new ones.
type Collector struct {
	store        ports.Store
	source       ports.CandidateSource
	extractor    ports.BodyExtractor
	logger       *slog.Logger
	enrichLimit  int
	extractDelay time.Duration
	now          func() time.Time
}

// NewCollector constructs the collection use case.
func NewCollector(deps CollectorDeps) *Collector {
	c := &Collector{
		store:        deps.Store,
		source:       deps.Source,
		extractor:    deps.Extractor,
		logger:       deps.Logger,
		enrichLimit:  deps.EnrichLimit,
		extractDelay: deps.ExtractDelay,
		now:          deps.Now,
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.enrichLimit <= 0 {
		c.enrichLimit = defaultEnrichLimit
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// CollectAll runs every active topic and returns the newly stored articles.
func (c *Collector) CollectAll(ctx context.Context) ([]domain.Article, error) {
	topics, err := c.store.ListActiveTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active topics: %w", err)
	}
	if len(topics) == 0 {
		c.logger.WarnContext(ctx, "no active topics to collect")
		return nil, nil
	}

	c.source.BeginRun()
	return c.collect(ctx, topics)
}

// CollectForKeyword runs a single topic outside the schedule.
func (c *Collector) CollectForKeyword(ctx context.Context, topic domain.TrackedTopic) ([]domain.Article, error) {
	return c.collect(ctx, []domain.TrackedTopic{topic})
}

type topicCandidates struct {
	topic      domain.TrackedTopic
	candidates []domain.Candidate
}

func (c *Collector) collect(ctx context.Context, topics []domain.TrackedTopic) ([]domain.Article, error) {
	fetched := make([]topicCandidates, 0, len(topics))
	for _, topic := range topics {
		candidates, err := c.source.Candidates(ctx, topic)
		if err != nil {
			c.logger.WarnContext(ctx, "topic collection failed", "topic", topic.Label, "region", topic.Region, "error", err)
			continue
		}
		fetched = append(fetched, topicCandidates{topic: topic, candidates: candidates})
	}

	var created []domain.Article
	err := c.store.WithTx(ctx, func(tx ports.Store) error {
		created = created[:0]
		for _, tc := range fetched {
			stored := 0
			for _, cand := range tc.candidates {
				cand.Link = strings.TrimSpace(cand.Link)
				if cand.Link == "" || strings.TrimSpace(cand.Title) == "" {
					continue
				}

				exists, err := tx.ArticleExists(ctx, cand.Link)
				if err != nil {
					return err
				}
				if exists {
					continue
				}

				article, inserted, err := tx.InsertArticle(ctx, domain.NewArticle(cand, tc.topic, c.now()))
				if err != nil {
					return err
				}
				if inserted {
					created = append(created, article)
					stored++
				}
			}
			c.logger.InfoContext(ctx, "topic collected",
				"topic", tc.topic.Label,
				"candidates", len(tc.candidates),
				"new", stored,
			)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist articles: %w", err)
	}

	if len(created) > 0 {
		enriched, err := c.enrich(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "snippet enrichment failed", "error", err)
		} else {
			c.logger.InfoContext(ctx, "snippets enriched", "count", enriched)
		}
	}

	return created, nil
}

type snippetUpdate struct {
	id      int64
	snippet string
}

// enrich extracts page bodies for articles whose snippet is missing or short.
func (c *Collector) enrich(ctx context.Context) (int, error) {
	if c.extractor == nil {
		return 0, nil
	}

	missing, err := c.store.ArticlesWithoutSnippet(ctx, c.enrichLimit)
	if err != nil {
		return 0, err
	}
	pending, err := c.store.UnprocessedWithSnippet(ctx, c.enrichLimit)
	if err != nil {
		return 0, err
	}
	targets := unionByID(missing, pending)

	var updates []snippetUpdate
	for i, article := range targets {
		if i > 0 {
			if err := sleep(ctx, c.extractDelay); err != nil {
				return 0, err
			}
		}

		body, ok := c.extractor.Extract(ctx, article.Link)
		if !ok || strings.Contains(article.Snippet, body) {
			continue
		}
		updates = append(updates, snippetUpdate{id: article.ID, snippet: mergeSnippet(article.Snippet, body)})
	}

	if len(updates) == 0 {
		return 0, nil
	}
	err = c.store.WithTx(ctx, func(tx ports.Store) error {
		for _, u := range updates {
			if err := tx.UpdateSnippet(ctx, u.id, u.snippet); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store snippets: %w", err)
	}
	return len(updates), nil
}

func mergeSnippet(existing, body string) string {
	if utf8.RuneCountInString(existing) > appendSnippetRunes {
		return existing + "\n\n" + body
	}
	return body
}

func unionByID(sets ...[]domain.Article) []domain.Article {
	seen := make(map[int64]struct{})
	var out []domain.Article
	for _, set := range sets {
		for _, a := range set {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
