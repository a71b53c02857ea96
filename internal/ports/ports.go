package ports

import (
	"context"
	"time"

	"MarketBrief/internal/domain"
)

// CandidateSource resolves the provider strategy for a topic and returns
// normalized candidates.
type CandidateSource interface {
	// BeginRun drops run-scoped caches before a collection pass.
	BeginRun()
	Candidates(ctx context.Context, topic domain.TrackedTopic) ([]domain.Candidate, error)
}

// BodyExtractor fetches a page and returns its main text, or false.
type BodyExtractor interface {
	Extract(ctx context.Context, url string) (string, bool)
}

// TopicRepository manages tracked topics.
type TopicRepository interface {
	ListTopics(ctx context.Context) ([]domain.TrackedTopic, error)
	ListActiveTopics(ctx context.Context) ([]domain.TrackedTopic, error)
	GetTopic(ctx context.Context, id int64) (domain.TrackedTopic, error)
	CreateTopic(ctx context.Context, topic domain.TrackedTopic) (domain.TrackedTopic, error)
	UpdateTopic(ctx context.Context, topic domain.TrackedTopic) error
	DeleteTopic(ctx context.Context, id int64) error
	CountTopics(ctx context.Context) (int, error)
}

// ArticleRepository persists articles and their processing state.
type ArticleRepository interface {
	ArticleExists(ctx context.Context, link string) (bool, error)
	// InsertArticle returns false when the link already exists.
	InsertArticle(ctx context.Context, article domain.Article) (domain.Article, bool, error)
	ArticlesWithoutSnippet(ctx context.Context, limit int) ([]domain.Article, error)
	UnprocessedWithSnippet(ctx context.Context, limit int) ([]domain.Article, error)
	UpdateSnippet(ctx context.Context, id int64, snippet string) error
	// UnprocessedArticles returns the backlog newest first; empty tag means all.
	UnprocessedArticles(ctx context.Context, tag string) ([]domain.Article, error)
	MarkProcessed(ctx context.Context, id int64, note domain.Annotation, at time.Time) error
	ProcessedArticlesSince(ctx context.Context, since time.Time) ([]domain.Article, error)
	DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SummaryRepository persists topic summaries.
type SummaryRepository interface {
	InsertTopicSummary(ctx context.Context, summary domain.TopicSummary) (int64, error)
	TopicSummariesByBatch(ctx context.Context, batchID string) ([]domain.TopicSummary, error)
	// LatestBatchID returns ErrNotFound when no summaries exist.
	LatestBatchID(ctx context.Context) (string, error)
	ListBatches(ctx context.Context, limit int) ([]domain.BatchInfo, error)
	DeleteSummariesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BriefingRepository persists briefings.
type BriefingRepository interface {
	BriefingExists(ctx context.Context, date string, session domain.Session) (bool, error)
	InsertBriefing(ctx context.Context, briefing domain.Briefing) (domain.Briefing, error)
	LatestBriefing(ctx context.Context) (domain.Briefing, error)
	BriefingsSince(ctx context.Context, date string) ([]domain.Briefing, error)
	DeleteBriefingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store groups all repositories and runs work inside a transaction.
type Store interface {
	TopicRepository
	ArticleRepository
	SummaryRepository
	BriefingRepository
	// WithTx commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// GenerationKind tags a model call with the response schema it must follow.
type GenerationKind string

const (
	KindConsolidation GenerationKind = "consolidation"
	KindBriefing      GenerationKind = "briefing"
)

// GenerationRequest is a single JSON-producing model call.
type GenerationRequest struct {
	Kind        GenerationKind
	Prompt      string
	Temperature float32
}

// Model produces raw JSON text for a prompt.
type Model interface {
	Name() string
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Notifier streams rendered briefings to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// MarketQuoter returns the latest quote for a symbol.
type MarketQuoter interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Schedule(name, spec string, job func(ctx context.Context)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
