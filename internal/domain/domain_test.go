package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchIDs(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.March, 14, 8, 5, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-14_morning", BatchID(at, SessionMorning))
	assert.Equal(t, "2025-03-14_0805_manual", ManualBatchID(at))
}

func TestParseSession(t *testing.T) {
	t.Parallel()

	s, err := ParseSession(" Midday ")
	require.NoError(t, err)
	assert.Equal(t, SessionMidday, s)

	_, err = ParseSession("night")
	require.Error(t, err)
}

func TestParseRegion(t *testing.T) {
	t.Parallel()

	r, err := ParseRegion("kr")
	require.NoError(t, err)
	assert.Equal(t, RegionKR, r)
	assert.True(t, r.Domestic())

	_, err = ParseRegion("JP")
	require.Error(t, err)
}

func TestSentimentValid(t *testing.T) {
	t.Parallel()

	assert.True(t, SentimentBearish.Valid())
	assert.False(t, Sentiment("bullish").Valid())
	assert.False(t, Sentiment("").Valid())
}

func TestNewTopicSummaryCountsSources(t *testing.T) {
	t.Parallel()

	s := NewTopicSummary("Semiconductor", RegionUS, "b", []SourceRef{{ID: 1}, {ID: 2}})
	assert.Equal(t, 2, s.ArticleCount)
	assert.Len(t, s.Sources, s.ArticleCount)
}

func TestNewArticleInheritsTopicRegion(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a := NewArticle(Candidate{Title: "t", Link: "l"}, TrackedTopic{Label: "반도체", Region: RegionKR}, now)
	assert.Equal(t, RegionKR, a.Region)
	assert.Equal(t, "반도체", a.TopicTag)
	assert.False(t, a.Processed())
}
