package api

import (
	"time"

	"MarketBrief/internal/domain"
)

type TopicResponse struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	Region    string    `json:"region"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateTopicRequest struct {
	Topic  string `json:"topic" binding:"required"`
	Region string `json:"region" binding:"required"`
}

type UpdateTopicRequest struct {
	Topic    *string `json:"topic"`
	Region   *string `json:"region"`
	IsActive *bool   `json:"is_active"`
}

type SourceArticleResponse struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

type SummaryResponse struct {
	ID             int64                   `json:"id"`
	KeywordTag     string                  `json:"keyword_tag"`
	Region         string                  `json:"region"`
	BatchID        string                  `json:"batch_id"`
	Headline       string                  `json:"headline"`
	Summary        string                  `json:"summary"`
	Sentiment      *string                 `json:"sentiment"`
	RelatedTickers []string                `json:"related_tickers"`
	SourceArticles []SourceArticleResponse `json:"source_articles"`
	ArticleCount   int                     `json:"article_count"`
	CreatedAt      time.Time               `json:"created_at"`
}

type SummaryListResponse struct {
	Items   []SummaryResponse `json:"items"`
	BatchID string            `json:"batch_id"`
}

type BatchResponse struct {
	BatchID    string    `json:"batch_id"`
	TopicCount int       `json:"topic_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type BriefingResponse struct {
	ID                int64                      `json:"id"`
	Date              string                     `json:"date"`
	Session           string                     `json:"session"`
	OverallSentiment  *domain.SentimentBreakdown `json:"overall_sentiment"`
	MustReads         []domain.MustRead          `json:"must_reads"`
	CrossMarketThemes []string                   `json:"cross_market_themes"`
	Fallback          bool                       `json:"fallback"`
	CreatedAt         time.Time                  `json:"created_at"`
}

func toTopicResponse(t domain.TrackedTopic) TopicResponse {
	return TopicResponse{
		ID:        t.ID,
		Topic:     t.Label,
		Region:    string(t.Region),
		IsActive:  t.Active,
		CreatedAt: t.CreatedAt,
	}
}

func toSummaryResponse(s domain.TopicSummary) SummaryResponse {
	res := SummaryResponse{
		ID:             s.ID,
		KeywordTag:     s.TopicTag,
		Region:         string(s.Region),
		BatchID:        s.BatchID,
		Headline:       s.Headline,
		Summary:        s.Summary,
		RelatedTickers: s.Tickers,
		SourceArticles: make([]SourceArticleResponse, 0, len(s.Sources)),
		ArticleCount:   s.ArticleCount,
		CreatedAt:      s.CreatedAt,
	}
	if s.Sentiment != "" {
		sentiment := string(s.Sentiment)
		res.Sentiment = &sentiment
	}
	if res.RelatedTickers == nil {
		res.RelatedTickers = []string{}
	}
	for _, src := range s.Sources {
		res.SourceArticles = append(res.SourceArticles, SourceArticleResponse(src))
	}
	return res
}

func toBriefingResponse(b domain.Briefing) BriefingResponse {
	overall := b.Overall
	res := BriefingResponse{
		ID:                b.ID,
		Date:              b.Date,
		Session:           string(b.Session),
		OverallSentiment:  &overall,
		MustReads:         b.MustReads,
		CrossMarketThemes: b.Themes,
		Fallback:          b.Fallback,
		CreatedAt:         b.CreatedAt,
	}
	if res.MustReads == nil {
		res.MustReads = []domain.MustRead{}
	}
	if res.CrossMarketThemes == nil {
		res.CrossMarketThemes = []string{}
	}
	return res
}
