package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"MarketBrief/internal/domain"
)

const (
	excerptSnippetRunes = 500
	excerptTextRunes    = 6000
	truncationMarker    = "\n\n[... additional articles truncated]"
)

const consolidationTemplate = `You are a senior financial journalist preparing a consolidated Korean market digest for a quantitative developer.

Keyword: %s (%s)
The %d articles below were collected under this keyword:

%s

The articles share a search keyword but may describe unrelated stories. Cluster them by the actual event they report:
- articles about the same development belong in one section;
- unrelated stories get their own sections;
- if every article covers one story, return a single section.

For every cluster produce a section with:
- "headline": a Korean headline of at most 60 characters.
- "summary": a Korean magazine-style summary of 6 to 10 sentences in 2 or 3 paragraphs separated by "\n\n". The first paragraph states the facts, the second gives context and opposing views, the third covers the market outlook for investors.
- "sentiment": exactly one of "Bullish", "Bearish", "Neutral".
- "tickers": stock tickers relevant to the cluster.
- "article_indices": the bracketed numbers of the articles in the cluster.

Respond with JSON only, shaped as:
{"sections": [{"headline": "...", "summary": "...", "sentiment": "Bullish", "tickers": ["NVDA"], "article_indices": [1, 3]}]}`

const briefingTemplate = `You are a senior market analyst writing a session briefing for a quantitative developer.

Today's analyzed articles:
%s

1. Choose the 3 articles with the largest market impact. For each, explain in Korean why an investor should care and what the market impact is.
2. Give the overall sentiment split as percentages with a Korean summary of the market mood.
3. List the themes connecting the US and Korean markets, in Korean.

Respond with JSON only, shaped as:
{"overall_sentiment": {"bullish_pct": 60, "bearish_pct": 25, "neutral_pct": 15, "summary": "..."},
 "must_reads": [{"article_id": 1, "title": "...", "why_important": "...", "impact_analysis": "..."}],
 "cross_market_themes": ["..."]}`

// consolidationPrompt numbers the group's articles from 1 in the given order.
func consolidationPrompt(tag string, region domain.Region, articles []domain.Article) string {
	parts := make([]string, 0, len(articles))
	for i, a := range articles {
		parts = append(parts, fmt.Sprintf("[%d] %s: %s\n%s", i+1, a.Source, a.Title, clip(a.Snippet, excerptSnippetRunes, "...")))
	}
	text := clip(strings.Join(parts, "\n\n"), excerptTextRunes, truncationMarker)
	return fmt.Sprintf(consolidationTemplate, tag, region, len(articles), text)
}

type briefingItem struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Source    string   `json:"source"`
	Region    string   `json:"region"`
	Sentiment string   `json:"sentiment"`
	Summary   string   `json:"summary"`
	Tickers   []string `json:"tickers"`
}

func briefingPrompt(articles []domain.Article) (string, error) {
	items := make([]briefingItem, 0, len(articles))
	for _, a := range articles {
		sentiment := string(a.Sentiment)
		if sentiment == "" {
			sentiment = "Unknown"
		}
		tickers := a.Tickers
		if tickers == nil {
			tickers = []string{}
		}
		items = append(items, briefingItem{
			ID:        a.ID,
			Title:     a.Title,
			Source:    a.Source,
			Region:    string(a.Region),
			Sentiment: sentiment,
			Summary:   a.Digest,
			Tickers:   tickers,
		})
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal briefing articles: %w", err)
	}
	return fmt.Sprintf(briefingTemplate, payload), nil
}

// clip cuts s to max runes and appends suffix when it was longer.
func clip(s string, max int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + suffix
}
