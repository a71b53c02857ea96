package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	gocache "github.com/patrickmn/go-cache"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/source"
)

const feedCacheKey = "market-news"

// FinnhubOptions configures the primary market news adapter.
type FinnhubOptions struct {
	APIKey   string
	BaseURL  string
	Category string
	CacheTTL time.Duration
	Limit    int
}

// FinnhubAdapter filters Finnhub general market news by topic keywords.
// The feed is fetched once per collection pass and shared by all topics.
type FinnhubAdapter struct {
	api      *finnhub.DefaultApiService
	apiKey   string
	category string
	limit    int
	matcher  *KeywordMatcher
	feed     *gocache.Cache
	logger   *slog.Logger
}

var (
	_ source.Adapter  = (*FinnhubAdapter)(nil)
	_ source.RunAware = (*FinnhubAdapter)(nil)
)

// NewFinnhubAdapter wires the generated Finnhub client.
func NewFinnhubAdapter(opts FinnhubOptions, matcher *KeywordMatcher, client *http.Client, logger *slog.Logger) *FinnhubAdapter {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", opts.APIKey)
	if opts.BaseURL != "" {
		cfg.Servers = finnhub.ServerConfigurations{{URL: strings.TrimSuffix(opts.BaseURL, "/")}}
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.HTTPClient = client

	if opts.Category == "" {
		opts.Category = "general"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FinnhubAdapter{
		api:      finnhub.NewAPIClient(cfg).DefaultApi,
		apiKey:   opts.APIKey,
		category: opts.Category,
		limit:    opts.Limit,
		matcher:  matcher,
		feed:     gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		logger:   logger,
	}
}

// Name identifies the strategy inside the chain.
func (f *FinnhubAdapter) Name() string {
	return "finnhub"
}

// BeginRun forgets the feed fetched by a previous pass.
func (f *FinnhubAdapter) BeginRun() {
	f.feed.Flush()
}

// Fetch returns up to limit items whose headline or summary mention the topic.
func (f *FinnhubAdapter) Fetch(ctx context.Context, topic domain.TrackedTopic) source.Result {
	if f.apiKey == "" {
		return source.Unavailable("finnhub api key is not set")
	}

	news, err := f.marketNews(ctx)
	if err != nil {
		return source.Failed(err)
	}

	terms := f.matcher.Terms(topic.Label)
	candidates := make([]domain.Candidate, 0, f.limit)
	for _, item := range news {
		headline := deref(item.Headline)
		summary := deref(item.Summary)
		if !Matches(terms, headline+" "+summary) {
			continue
		}

		c := domain.Candidate{
			Title:   headline,
			Link:    deref(item.Url),
			Source:  deref(item.Source),
			Region:  domain.RegionUS,
			Snippet: summary,
		}
		if c.Source == "" {
			c.Source = "Finnhub"
		}
		if item.Datetime != nil && *item.Datetime > 0 {
			published := time.Unix(*item.Datetime, 0).UTC()
			c.PublishedAt = &published
		}
		candidates = append(candidates, c)
		if len(candidates) >= f.limit {
			break
		}
	}

	f.logger.Debug("finnhub matched", "topic", topic.Label, "count", len(candidates), "feed", len(news))
	return source.OK(candidates)
}

func (f *FinnhubAdapter) marketNews(ctx context.Context) ([]finnhub.MarketNews, error) {
	if cached, ok := f.feed.Get(feedCacheKey); ok {
		return cached.([]finnhub.MarketNews), nil
	}

	news, resp, err := f.api.MarketNews(ctx).Category(f.category).Execute()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("finnhub market news: %w", err)
	}

	f.feed.Set(feedCacheKey, news, gocache.DefaultExpiration)
	return news, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
