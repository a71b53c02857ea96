package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/ports"
)

func TestConsolidatorRetriesUntilValid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	insertArticle(t, store, "https://n.test/1", "Fed", testNow)

	model := &scriptedModel{replies: []reply{
		{text: "{not json"},
		{text: `{"sections": [{"headline": "h", "summary": "too short", "sentiment": "Bullish", "tickers": [], "article_indices": [1]}]}`},
		{text: sectionsJSON([]int{1})},
	}}
	consolidator := NewConsolidator(ConsolidatorDeps{Store: store, Model: model, Now: fixedClock})

	n, err := consolidator.ProcessBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, model.calls())
	assert.Equal(t, ports.KindConsolidation, model.prompts[0].Kind)
}

func TestConsolidatorSyntaxFailureRetriesWithoutPause(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	insertArticle(t, store, "https://n.test/1", "Fed", testNow)

	model := &scriptedModel{replies: []reply{{text: "```"}, {text: sectionsJSON([]int{1})}}}
	consolidator := NewConsolidator(ConsolidatorDeps{
		Store: store, Model: model, RetryBackoff: 5 * time.Second, Now: fixedClock,
	})

	started := time.Now()
	n, err := consolidator.ProcessBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestConsolidatorSkipsGroupAfterExhaustedRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	insertArticle(t, store, "https://n.test/bad", "Bad", testNow)
	insertArticle(t, store, "https://n.test/good", "Good", testNow.Add(-time.Minute))

	// Groups run newest tag first: "Bad" burns three attempts, "Good" succeeds.
	model := &scriptedModel{replies: []reply{
		{err: errors.New("rate limited")},
		{text: `{"sections": [{"headline": "h", "summary": "` + strings.Repeat("x", 40) + `", "sentiment": "Euphoric", "tickers": [], "article_indices": [1]}]}`},
		{text: `{"sections": []}`},
		{text: sectionsJSON([]int{1})},
	}}
	consolidator := NewConsolidator(ConsolidatorDeps{Store: store, Model: model, Now: fixedClock})

	n, err := consolidator.ProcessBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 4, model.calls())

	backlog, err := store.UnprocessedArticles(ctx, "")
	require.NoError(t, err)
	require.Len(t, backlog, 1)
	assert.Equal(t, "Bad", backlog[0].TopicTag)

	summaries, err := store.TopicSummariesByBatch(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Good", summaries[0].TopicTag)
}

func TestConsolidatorUnresolvedSectionClaimsWholeGroup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	insertArticle(t, store, "https://n.test/1", "Fed", testNow)
	insertArticle(t, store, "https://n.test/2", "Fed", testNow.Add(-time.Minute))
	insertArticle(t, store, "https://n.test/3", "Fed", testNow.Add(-2*time.Minute))

	model := &scriptedModel{replies: []reply{{text: sectionsJSON([]int{1, 1, 7}, []int{0, 99})}}}
	consolidator := NewConsolidator(ConsolidatorDeps{Store: store, Model: model, Now: fixedClock})

	n, err := consolidator.ProcessBatch(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	summaries, err := store.TopicSummariesByBatch(ctx, "b1")
	require.NoError(t, err)
	counts := []int{summaries[0].ArticleCount, summaries[1].ArticleCount}
	assert.ElementsMatch(t, []int{1, 3}, counts)
	for _, s := range summaries {
		assert.Equal(t, s.ArticleCount, len(s.Sources))
	}

	processed, err := store.ProcessedArticlesSince(ctx, testNow.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, processed, 3)
	for _, a := range processed {
		assert.Equal(t, domain.SentimentBullish, a.Sentiment)
		assert.NotEmpty(t, a.Digest)
	}
}

func TestProcessKeywordOnlyTouchesTag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	insertArticle(t, store, "https://n.test/fed", "Fed", testNow)
	insertArticle(t, store, "https://n.test/oil", "Oil", testNow)

	model := &scriptedModel{replies: []reply{{text: sectionsJSON([]int{1})}}}
	consolidator := NewConsolidator(ConsolidatorDeps{Store: store, Model: model, Now: fixedClock})

	n, err := consolidator.ProcessKeyword(ctx, "b1", "Oil")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	backlog, err := store.UnprocessedArticles(ctx, "")
	require.NoError(t, err)
	require.Len(t, backlog, 1)
	assert.Equal(t, "Fed", backlog[0].TopicTag)

	_, err = consolidator.ProcessKeyword(ctx, "b1", " ")
	assert.Error(t, err)
}

func TestConsolidatorWithoutModel(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	insertArticle(t, store, "https://n.test/1", "Fed", testNow)

	n, err := NewConsolidator(ConsolidatorDeps{Store: store}).ProcessBatch(context.Background(), "b1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGroupByTagAndResolveIndices(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{ID: 1, TopicTag: "b"}, {ID: 2, TopicTag: "a"}, {ID: 3, TopicTag: "b"},
	}
	groups := groupByTag(articles)
	require.Len(t, groups, 2)
	assert.Equal(t, "b", groups[0].tag)
	assert.Len(t, groups[0].articles, 2)
	assert.Equal(t, "a", groups[1].tag)

	resolved := resolveIndices([]int{2, 0, 2, 4, 1}, groups[0].articles)
	require.Len(t, resolved, 2)
	assert.Equal(t, int64(3), resolved[0].ID)
	assert.Equal(t, int64(1), resolved[1].ID)
}

func TestConsolidationPrompt(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Source: "Reuters", Title: "Chips", Snippet: strings.Repeat("가", 600)},
		{Source: "CNBC", Title: "Rates"},
	}
	prompt := consolidationPrompt("Semiconductor", domain.RegionUS, articles)
	assert.Contains(t, prompt, "Keyword: Semiconductor (US)")
	assert.Contains(t, prompt, "The 2 articles")
	assert.Contains(t, prompt, "[1] Reuters: Chips\n"+strings.Repeat("가", 500)+"...")
	assert.Contains(t, prompt, "[2] CNBC: Rates")

	var many []domain.Article
	for i := 0; i < 30; i++ {
		many = append(many, domain.Article{Source: "S", Title: "T", Snippet: strings.Repeat("x", 400)})
	}
	prompt = consolidationPrompt("k", domain.RegionKR, many)
	assert.Contains(t, prompt, truncationMarker)

	assert.Equal(t, "abc", clip("abc", 3, "..."))
	assert.Equal(t, "ab...", clip("abc", 2, "..."))
	assert.Equal(t, 2, utf8.RuneCountInString(clip("가나다", 2, "")))
}
