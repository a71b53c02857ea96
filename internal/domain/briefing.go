package domain

import "time"

// DateLayout is how briefing dates are keyed.
const DateLayout = "2006-01-02"

// SentimentBreakdown is the market mood section of a briefing.
type SentimentBreakdown struct {
	BullishPct float64 `json:"bullish_pct"`
	BearishPct float64 `json:"bearish_pct"`
	NeutralPct float64 `json:"neutral_pct"`
	Summary    string  `json:"summary"`
}

// MustRead is a highlighted article with a rationale.
type MustRead struct {
	ArticleID      int64  `json:"article_id"`
	Title          string `json:"title"`
	WhyImportant   string `json:"why_important"`
	ImpactAnalysis string `json:"impact_analysis"`
}

// Briefing is the per (date, session) digest.
type Briefing struct {
	ID        int64
	Date      string
	Session   Session
	Overall   SentimentBreakdown
	MustReads []MustRead
	Themes    []string
	// Fallback marks briefings produced from statistics instead of the model.
	Fallback  bool
	CreatedAt time.Time
}

// CleanupReport counts rows removed by retention cleanup.
type CleanupReport struct {
	Articles  int64
	Summaries int64
	Briefings int64
}

// Total sums all removed rows.
func (r CleanupReport) Total() int64 {
	return r.Articles + r.Summaries + r.Briefings
}

// RefreshResult is returned by a manual pipeline trigger.
type RefreshResult struct {
	Status            string `json:"status"`
	ArticlesCollected int    `json:"articles_collected"`
	ArticlesProcessed int    `json:"articles_processed"`
	Message           string `json:"message"`
}

const (
	RefreshSuccess = "success"
	RefreshError   = "error"
)
