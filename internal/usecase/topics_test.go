package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain"
)

func TestTopicCreateBackfills(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)

	src := &stubSource{candidates: map[string][]domain.Candidate{
		"HBM": {candidate("https://n.test/hbm")},
	}}
	model := &scriptedModel{replies: []reply{{text: sectionsJSON([]int{1})}}}
	topics := NewTopicService(TopicDeps{
		Store:        store,
		Collector:    NewCollector(CollectorDeps{Store: store, Source: src, Now: fixedClock}),
		Consolidator: NewConsolidator(ConsolidatorDeps{Store: store, Model: model, Now: fixedClock}),
		Now:          fixedClock,
	})

	cctx, cancel := context.WithCancel(ctx)
	topic, err := topics.Create(cctx, "  HBM ", domain.RegionKR)
	cancel()
	require.NoError(t, err)
	assert.Equal(t, "HBM", topic.Label)
	assert.True(t, topic.Active)
	topics.Wait()

	summaries, err := store.TopicSummariesByBatch(ctx, "2025-03-14_1000_manual")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "HBM", summaries[0].TopicTag)
	assert.Zero(t, src.runs)

	_, err = topics.Create(ctx, " ", domain.RegionUS)
	assert.ErrorIs(t, err, ErrInvalidTopic)
}

func TestTopicUpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	topics := NewTopicService(TopicDeps{Store: store, Now: fixedClock})

	topic, err := topics.Create(ctx, "Oil", domain.RegionUS)
	require.NoError(t, err)

	inactive := false
	region := domain.RegionKR
	updated, err := topics.Update(ctx, topic.ID, TopicPatch{Active: &inactive, Region: &region})
	require.NoError(t, err)
	assert.Equal(t, "Oil", updated.Label)
	assert.False(t, updated.Active)
	assert.Equal(t, domain.RegionKR, updated.Region)

	active, err := store.ListActiveTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	blank := ""
	_, err = topics.Update(ctx, topic.ID, TopicPatch{Label: &blank})
	assert.ErrorIs(t, err, ErrInvalidTopic)

	require.NoError(t, topics.Delete(ctx, topic.ID))
	assert.ErrorIs(t, topics.Delete(ctx, topic.ID), domain.ErrNotFound)
	_, err = topics.Update(ctx, topic.ID, TopicPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTopicSeedOnlyWhenEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	topics := NewTopicService(TopicDeps{Store: store, Now: fixedClock})

	defaults := []domain.TrackedTopic{
		{Label: "Semiconductor", Region: domain.RegionUS},
		{Label: "반도체", Region: domain.RegionKR},
	}
	n, err := topics.Seed(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = topics.Seed(ctx, defaults)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := topics.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[1].Active)
	assert.Equal(t, domain.RegionKR, all[1].Region)
}
