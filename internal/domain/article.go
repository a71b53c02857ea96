package domain

import (
	"fmt"
	"strings"
	"time"
)

// Region tells which market a topic or article belongs to.
type Region string

const (
	RegionUS Region = "US"
	RegionKR Region = "KR"
)

// ParseRegion normalizes user input into a known region.
func ParseRegion(value string) (Region, error) {
	switch Region(strings.ToUpper(strings.TrimSpace(value))) {
	case RegionUS:
		return RegionUS, nil
	case RegionKR:
		return RegionKR, nil
	default:
		return "", fmt.Errorf("unknown region %q", value)
	}
}

// Domestic reports whether the region is served by the domestic search source.
func (r Region) Domestic() bool {
	return r == RegionKR
}

// Sentiment is the market tone assigned by consolidation.
type Sentiment string

const (
	SentimentBullish Sentiment = "Bullish"
	SentimentBearish Sentiment = "Bearish"
	SentimentNeutral Sentiment = "Neutral"
)

// Valid reports whether the value is exactly one of the three labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return true
	}
	return false
}

// TrackedTopic is a keyword the collector searches for on every run.
type TrackedTopic struct {
	ID        int64
	Label     string
	Region    Region
	Active    bool
	CreatedAt time.Time
}

// Candidate is a normalized article produced by a source before persistence.
type Candidate struct {
	Title       string
	Link        string
	PublishedAt *time.Time
	Source      string
	Region      Region
	Snippet     string
}

// Article is a persisted news item. Link is the only dedupe key.
type Article struct {
	ID          int64
	Title       string
	Link        string
	PublishedAt *time.Time
	Source      string
	Region      Region
	Snippet     string
	TopicTag    string
	ProcessedAt *time.Time
	// Set by consolidation from the first section that claimed the article.
	Sentiment Sentiment
	Tickers   []string
	Digest    string
	CreatedAt time.Time
}

// Processed reports whether consolidation has already consumed the article.
func (a Article) Processed() bool {
	return a.ProcessedAt != nil
}

// Annotation is what consolidation writes back onto a claimed article.
type Annotation struct {
	Sentiment Sentiment
	Tickers   []string
	Digest    string
}

// NewArticle builds an unprocessed article from a candidate found for a topic.
func NewArticle(c Candidate, topic TrackedTopic, now time.Time) Article {
	region := c.Region
	if region == "" {
		region = topic.Region
	}
	return Article{
		Title:       c.Title,
		Link:        c.Link,
		PublishedAt: c.PublishedAt,
		Source:      c.Source,
		Region:      region,
		Snippet:     c.Snippet,
		TopicTag:    topic.Label,
		CreatedAt:   now,
	}
}
