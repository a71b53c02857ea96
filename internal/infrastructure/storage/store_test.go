package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/ports"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	store, err := Open(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func article(link string, created time.Time) domain.Article {
	return domain.Article{
		Title:     "title " + link,
		Link:      link,
		Source:    "Reuters",
		Region:    domain.RegionUS,
		TopicTag:  "Semiconductor",
		CreatedAt: created,
	}
}

func TestInsertArticleDedupesByLink(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	first, inserted, err := store.InsertArticle(ctx, article("https://a.test/1", now))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, first.ID)

	_, inserted, err = store.InsertArticle(ctx, article("https://a.test/1", now))
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := store.ArticleExists(ctx, "https://a.test/1")
	require.NoError(t, err)
	assert.True(t, exists)

	backlog, err := store.UnprocessedArticles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, backlog, 1)
}

func TestSnippetQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	empty := article("https://a.test/empty", base)
	withSnippet := article("https://a.test/snippet", base.Add(time.Minute))
	withSnippet.Snippet = "short teaser"

	empty, _, err := store.InsertArticle(ctx, empty)
	require.NoError(t, err)
	withSnippet, _, err = store.InsertArticle(ctx, withSnippet)
	require.NoError(t, err)

	missing, err := store.ArticlesWithoutSnippet(ctx, 100)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, empty.ID, missing[0].ID)

	pending, err := store.UnprocessedWithSnippet(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "short teaser", pending[0].Snippet)

	require.NoError(t, store.UpdateSnippet(ctx, empty.ID, "body text"))
	missing, err = store.ArticlesWithoutSnippet(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestMarkProcessedAndSince(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	midnight := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	old, _, err := store.InsertArticle(ctx, article("https://a.test/old", midnight.Add(-time.Hour)))
	require.NoError(t, err)
	fresh, _, err := store.InsertArticle(ctx, article("https://a.test/fresh", midnight.Add(time.Hour)))
	require.NoError(t, err)
	_, _, err = store.InsertArticle(ctx, article("https://a.test/pending", midnight.Add(2*time.Hour)))
	require.NoError(t, err)

	note := domain.Annotation{Sentiment: domain.SentimentBullish, Tickers: []string{"NVDA"}, Digest: "칩 수요 증가"}
	require.NoError(t, store.MarkProcessed(ctx, old.ID, note, midnight))
	require.NoError(t, store.MarkProcessed(ctx, fresh.ID, note, midnight.Add(3*time.Hour)))

	today, err := store.ProcessedArticlesSince(ctx, midnight)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, fresh.ID, today[0].ID)
	assert.Equal(t, domain.SentimentBullish, today[0].Sentiment)
	assert.Equal(t, []string{"NVDA"}, today[0].Tickers)
	assert.Equal(t, "칩 수요 증가", today[0].Digest)
	require.NotNil(t, today[0].ProcessedAt)

	backlog, err := store.UnprocessedArticles(ctx, "Semiconductor")
	require.NoError(t, err)
	assert.Len(t, backlog, 1)

	backlog, err = store.UnprocessedArticles(ctx, "Federal Reserve")
	require.NoError(t, err)
	assert.Empty(t, backlog)
}

func TestSummariesAndBatches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

	_, err := store.LatestBatchID(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	for i, batch := range []string{"2025-03-14_morning", "2025-03-14_morning", "2025-03-14_evening"} {
		s := domain.NewTopicSummary("Semiconductor", domain.RegionUS, batch, []domain.SourceRef{
			{ID: int64(i + 1), Title: "t", Link: "l", Source: "s"},
		})
		s.Headline = "헤드라인"
		s.Summary = "요약"
		s.Sentiment = domain.SentimentNeutral
		s.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := store.InsertTopicSummary(ctx, s)
		require.NoError(t, err)
	}

	latest, err := store.LatestBatchID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14_evening", latest)

	morning, err := store.TopicSummariesByBatch(ctx, "2025-03-14_morning")
	require.NoError(t, err)
	require.Len(t, morning, 2)
	assert.Equal(t, morning[0].ArticleCount, len(morning[0].Sources))
	assert.Empty(t, morning[0].Tickers)

	batches, err := store.ListBatches(ctx, 20)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "2025-03-14_evening", batches[0].BatchID)
	assert.Equal(t, 2, batches[1].TopicCount)
}

func TestBriefingUniqueness(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	b := domain.Briefing{
		Date:      "2025-03-14",
		Session:   domain.SessionMorning,
		Overall:   domain.SentimentBreakdown{BullishPct: 60, BearishPct: 30, NeutralPct: 10, Summary: "ok"},
		MustReads: []domain.MustRead{{ArticleID: 1, Title: "t"}},
		CreatedAt: time.Now(),
	}
	saved, err := store.InsertBriefing(ctx, b)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	exists, err := store.BriefingExists(ctx, "2025-03-14", domain.SessionMorning)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.InsertBriefing(ctx, b)
	require.ErrorIs(t, err, domain.ErrDuplicate)

	latest, err := store.LatestBriefing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60.0, latest.Overall.BullishPct)
	assert.Len(t, latest.MustReads, 1)
	assert.Empty(t, latest.Themes)

	history, err := store.BriefingsSince(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDeleteBefore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := store.InsertArticle(ctx, article("https://a.test/old", cutoff.Add(-time.Hour)))
	require.NoError(t, err)
	_, _, err = store.InsertArticle(ctx, article("https://a.test/new", cutoff.Add(time.Hour)))
	require.NoError(t, err)

	n, err := store.DeleteArticlesBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	exists, err := store.ArticleExists(ctx, "https://a.test/new")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx ports.Store) error {
		_, inserted, err := tx.InsertArticle(ctx, article("https://a.test/tx", time.Now()))
		require.NoError(t, err)
		require.True(t, inserted)
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := store.ArticleExists(ctx, "https://a.test/tx")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTopicCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateTopic(ctx, domain.TrackedTopic{Label: "반도체", Region: domain.RegionKR, Active: true, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	created.Active = false
	require.NoError(t, store.UpdateTopic(ctx, created))

	active, err := store.ListActiveTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := store.GetTopic(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, domain.RegionKR, got.Region)

	n, err := store.CountTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.DeleteTopic(ctx, created.ID))
	require.ErrorIs(t, store.DeleteTopic(ctx, created.ID), domain.ErrNotFound)
	_, err = store.GetTopic(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	d, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Driver)

	_, err = DialectFor("mysql")
	require.Error(t, err)
}
