package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain"
)

func sectionsJSON(indices ...[]int) string {
	out := `{"sections": [`
	for i, idx := range indices {
		if i > 0 {
			out += ","
		}
		b, _ := json.Marshal(idx)
		out += fmt.Sprintf(`{"headline": "headline %d", "summary": %q, "sentiment": "Bullish", "tickers": ["NVDA"], "article_indices": %s}`, i+1, longSummary, b)
	}
	return out + `]}`
}

func TestCollectThenConsolidateEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	createTopic(t, store, "Semiconductor", domain.RegionUS)

	src := &stubSource{candidates: map[string][]domain.Candidate{
		"Semiconductor": {candidate("https://n.test/1"), candidate("https://n.test/2"), candidate("https://n.test/1")},
	}}
	extractor := &stubExtractor{bodies: map[string]string{"https://n.test/2": "full article body"}}
	collector := NewCollector(CollectorDeps{Store: store, Source: src, Extractor: extractor, Now: fixedClock})

	created, err := collector.CollectAll(ctx)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, 1, src.runs)
	assert.ElementsMatch(t, []string{"https://n.test/1", "https://n.test/2"}, extractor.calls)

	again, err := collector.CollectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	backlog, err := store.UnprocessedArticles(ctx, "")
	require.NoError(t, err)
	require.Len(t, backlog, 2)
	for _, a := range backlog {
		if a.Link == "https://n.test/2" {
			assert.Equal(t, "full article body", a.Snippet)
		} else {
			assert.Equal(t, "short", a.Snippet)
		}
	}

	model := &scriptedModel{replies: []reply{{text: sectionsJSON([]int{1}, []int{2})}}}
	consolidator := NewConsolidator(ConsolidatorDeps{Store: store, Model: model, Now: fixedClock})

	n, err := consolidator.ProcessBatch(ctx, "2025-03-14_morning")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	summaries, err := store.TopicSummariesByBatch(ctx, "2025-03-14_morning")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, 1, s.ArticleCount)
		assert.Len(t, s.Sources, 1)
		assert.Equal(t, domain.SentimentBullish, s.Sentiment)
	}

	backlog, err = store.UnprocessedArticles(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, backlog)
}

func TestCollectorSkipsFailingTopic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	createTopic(t, store, "broken", domain.RegionUS)
	good := createTopic(t, store, "fine", domain.RegionUS)

	src := &stubSource{
		candidates: map[string][]domain.Candidate{"fine": {candidate("https://n.test/ok"), {Title: "no link"}}},
		errs:       map[string]error{"broken": errors.New("provider down")},
	}
	collector := NewCollector(CollectorDeps{Store: store, Source: src, Now: fixedClock})

	created, err := collector.CollectAll(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, good.Label, created[0].TopicTag)

	single, err := collector.CollectForKeyword(ctx, good)
	require.NoError(t, err)
	assert.Empty(t, single)
	assert.Equal(t, 1, src.runs)
}

func TestMergeSnippet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "body", mergeSnippet("short", "body"))
	long := "This existing snippet is comfortably longer than fifty characters."
	assert.Equal(t, long+"\n\nbody", mergeSnippet(long, "body"))
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	createTopic(t, store, "Semiconductor", domain.RegionUS)

	src := &stubSource{candidates: map[string][]domain.Candidate{
		"Semiconductor": {candidate("https://n.test/a"), candidate("https://n.test/b")},
	}}
	model := &scriptedModel{replies: []reply{{text: sectionsJSON([]int{1, 2})}}}
	pipeline := NewPipeline(PipelineDeps{
		Collector:    NewCollector(CollectorDeps{Store: store, Source: src, Now: fixedClock}),
		Consolidator: NewConsolidator(ConsolidatorDeps{Store: store, Model: model, Now: fixedClock}),
		Briefing:     NewBriefingGenerator(BriefingDeps{Store: store, Now: fixedClock}),
		Now:          fixedClock,
	})

	res := pipeline.Refresh(ctx)
	assert.Equal(t, domain.RefreshResult{
		Status:            domain.RefreshSuccess,
		ArticlesCollected: 2,
		ArticlesProcessed: 1,
		Message:           "Collected 2 articles, created 1 topic summaries",
	}, res)

	batch, err := store.LatestBatchID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14_1000_manual", batch)
}

func TestRefreshReportsPanics(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	createTopic(t, store, "Semiconductor", domain.RegionUS)

	pipeline := NewPipeline(PipelineDeps{
		Collector:    NewCollector(CollectorDeps{Store: store, Source: &stubSource{panics: true}}),
		Consolidator: NewConsolidator(ConsolidatorDeps{Store: store}),
	})

	res := pipeline.Refresh(context.Background())
	assert.Equal(t, domain.RefreshError, res.Status)
	assert.Zero(t, res.ArticlesCollected)
	assert.Contains(t, res.Message, "source exploded")
}

func TestRunSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	createTopic(t, store, "Semiconductor", domain.RegionUS)

	src := &stubSource{candidates: map[string][]domain.Candidate{
		"Semiconductor": {candidate("https://n.test/a")},
	}}
	model := &scriptedModel{replies: []reply{{text: sectionsJSON([]int{1})}}}
	pipeline := NewPipeline(PipelineDeps{
		Collector:    NewCollector(CollectorDeps{Store: store, Source: src, Now: fixedClock}),
		Consolidator: NewConsolidator(ConsolidatorDeps{Store: store, Model: model, Now: fixedClock}),
		Briefing:     NewBriefingGenerator(BriefingDeps{Store: store, Now: fixedClock}),
		Now:          fixedClock,
	})

	report, err := pipeline.RunSession(ctx, domain.SessionMorning)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "2025-03-14_morning", report.BatchID)
	assert.Equal(t, 1, report.ArticlesCollected)
	assert.Equal(t, 1, report.SummariesCreated)
	require.NotNil(t, report.Briefing)
	assert.True(t, report.Briefing.Fallback)
	assert.Equal(t, float64(100), report.Briefing.Overall.BullishPct)
}
