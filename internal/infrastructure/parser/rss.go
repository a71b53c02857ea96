package parser

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	gocache "github.com/patrickmn/go-cache"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/source"
)

const rssSnippetLimit = 500

// Feed is a named syndication URL.
type Feed struct {
	Name string
	URL  string
}

// RSSAdapter is the fallback for international topics: fixed feeds,
// filtered by the same keyword terms as the primary source.
type RSSAdapter struct {
	feeds   []Feed
	limit   int
	matcher *KeywordMatcher
	client  *http.Client
	parser  *gofeed.Parser
	memo    *gocache.Cache
	logger  *slog.Logger
}

var (
	_ source.Adapter  = (*RSSAdapter)(nil)
	_ source.RunAware = (*RSSAdapter)(nil)
)

// NewRSSAdapter wires a feed list; limit caps results across all feeds.
func NewRSSAdapter(feeds []Feed, limit int, matcher *KeywordMatcher, client *http.Client, logger *slog.Logger) *RSSAdapter {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if limit <= 0 {
		limit = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSAdapter{
		feeds:   feeds,
		limit:   limit,
		matcher: matcher,
		client:  client,
		parser:  gofeed.NewParser(),
		memo:    gocache.New(10*time.Minute, 20*time.Minute),
		logger:  logger,
	}
}

// Name identifies the strategy inside the chain.
func (r *RSSAdapter) Name() string {
	return "rss"
}

// BeginRun forgets feeds parsed by a previous pass.
func (r *RSSAdapter) BeginRun() {
	r.memo.Flush()
}

// Fetch walks the feeds in order. A failing feed is logged and skipped;
// only when every feed fails is the result Failed.
func (r *RSSAdapter) Fetch(ctx context.Context, topic domain.TrackedTopic) source.Result {
	if len(r.feeds) == 0 {
		return source.Unavailable("no rss feeds configured")
	}

	terms := r.matcher.Terms(topic.Label)
	candidates := make([]domain.Candidate, 0, r.limit)
	failures := 0
	var lastErr error

	for _, feed := range r.feeds {
		if len(candidates) >= r.limit {
			break
		}

		parsed, err := r.load(ctx, feed)
		if err != nil {
			failures++
			lastErr = err
			r.logger.Warn("rss feed failed", "feed", feed.Name, "error", err)
			continue
		}

		for _, item := range parsed.Items {
			title := html.UnescapeString(strings.TrimSpace(item.Title))
			snippet := html.UnescapeString(strings.TrimSpace(item.Description))
			if !Matches(terms, title+" "+snippet) {
				continue
			}

			c := domain.Candidate{
				Title:       title,
				Link:        strings.TrimSpace(item.Link),
				PublishedAt: item.PublishedParsed,
				Source:      feed.Name,
				Region:      domain.RegionUS,
				Snippet:     truncateRunes(snippet, rssSnippetLimit),
			}
			candidates = append(candidates, c)
			if len(candidates) >= r.limit {
				break
			}
		}
	}

	if failures == len(r.feeds) {
		return source.Failed(fmt.Errorf("all %d rss feeds failed: %w", failures, lastErr))
	}
	return source.OK(candidates)
}

func (r *RSSAdapter) load(ctx context.Context, feed Feed) (*gofeed.Feed, error) {
	if cached, ok := r.memo.Get(feed.URL); ok {
		return cached.(*gofeed.Feed), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "MarketBrief/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	r.memo.Set(feed.URL, parsed, gocache.DefaultExpiration)
	return parsed, nil
}
