package domain

import (
	"fmt"
	"strings"
	"time"
)

// Session names one of the three daily pipeline runs.
type Session string

const (
	SessionMorning Session = "morning"
	SessionMidday  Session = "midday"
	SessionEvening Session = "evening"
)

// Sessions lists the scheduled sessions in run order.
func Sessions() []Session {
	return []Session{SessionMorning, SessionMidday, SessionEvening}
}

// ParseSession validates a session name.
func ParseSession(value string) (Session, error) {
	s := Session(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Sessions() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown session %q", value)
}

// BatchID labels the summaries of a scheduled run, e.g. 2025-03-14_morning.
func BatchID(day time.Time, session Session) string {
	return day.Format("2006-01-02") + "_" + string(session)
}

// ManualBatchID labels summaries produced outside the schedule.
func ManualBatchID(at time.Time) string {
	return at.Format("2006-01-02_1504") + "_manual"
}

// SourceRef points from a summary back to one consolidated article.
type SourceRef struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

// TopicSummary is one clustered story for a topic within a batch.
type TopicSummary struct {
	ID           int64
	TopicTag     string
	Region       Region
	BatchID      string
	Headline     string
	Summary      string
	Sentiment    Sentiment
	Tickers      []string
	Sources      []SourceRef
	ArticleCount int
	CreatedAt    time.Time
}

// NewTopicSummary keeps ArticleCount equal to the number of source refs.
func NewTopicSummary(tag string, region Region, batchID string, sources []SourceRef) TopicSummary {
	return TopicSummary{
		TopicTag:     tag,
		Region:       region,
		BatchID:      batchID,
		Sources:      sources,
		ArticleCount: len(sources),
	}
}

// BatchInfo aggregates summaries under one batch id.
type BatchInfo struct {
	BatchID    string
	TopicCount int
	CreatedAt  time.Time
}
