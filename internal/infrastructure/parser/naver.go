package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/source"
)

const defaultNaverEndpoint = "https://openapi.naver.com/v1/search/news.json"

var boldTags = strings.NewReplacer("<b>", "", "</b>", "")

// NaverOptions configures the domestic news search adapter.
type NaverOptions struct {
	ClientID     string
	ClientSecret string
	Endpoint     string
	Display      int
}

// NaverAdapter searches Korean news by keyword.
type NaverAdapter struct {
	opts   NaverOptions
	client *http.Client
	logger *slog.Logger
}

var _ source.Adapter = (*NaverAdapter)(nil)

// NewNaverAdapter wires credentials and an HTTP client.
func NewNaverAdapter(opts NaverOptions, client *http.Client, logger *slog.Logger) *NaverAdapter {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultNaverEndpoint
	}
	if opts.Display <= 0 {
		opts.Display = 10
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NaverAdapter{opts: opts, client: client, logger: logger}
}

// Name identifies the strategy inside the chain.
func (n *NaverAdapter) Name() string {
	return "naver"
}

type naverResponse struct {
	Items []naverItem `json:"items"`
}

type naverItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

// Fetch runs a relevance-sorted keyword search for the topic.
func (n *NaverAdapter) Fetch(ctx context.Context, topic domain.TrackedTopic) source.Result {
	if n.opts.ClientID == "" || n.opts.ClientSecret == "" {
		return source.Unavailable("naver api credentials are not set")
	}

	endpoint, err := url.Parse(n.opts.Endpoint)
	if err != nil {
		return source.Failed(fmt.Errorf("invalid naver endpoint: %w", err))
	}
	query := endpoint.Query()
	query.Set("query", topic.Label)
	query.Set("display", strconv.Itoa(n.opts.Display))
	query.Set("sort", "sim")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return source.Failed(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("X-Naver-Client-Id", n.opts.ClientID)
	req.Header.Set("X-Naver-Client-Secret", n.opts.ClientSecret)

	resp, err := n.client.Do(req)
	if err != nil {
		return source.Failed(fmt.Errorf("naver search: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return source.Failed(fmt.Errorf("naver error %s: %s", resp.Status, strings.TrimSpace(string(payload))))
	}

	var decoded naverResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return source.Failed(fmt.Errorf("decode naver response: %w", err))
	}

	candidates := make([]domain.Candidate, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		link := strings.TrimSpace(item.OriginalLink)
		if link == "" {
			link = strings.TrimSpace(item.Link)
		}
		c := domain.Candidate{
			Title:   cleanMarkup(item.Title),
			Link:    link,
			Source:  SourceNameFromLink(item.OriginalLink),
			Region:  domain.RegionKR,
			Snippet: cleanMarkup(item.Description),
		}
		if published, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
			utc := published.UTC()
			c.PublishedAt = &utc
		}
		candidates = append(candidates, c)
	}

	n.logger.Debug("naver search", "topic", topic.Label, "count", len(candidates))
	return source.OK(candidates)
}

func cleanMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(boldTags.Replace(s)))
}

// SourceNameFromLink derives a publisher name from the article host:
// https://www.hankyung.com/... becomes "Hankyung".
func SourceNameFromLink(link string) string {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil || parsed.Hostname() == "" {
		return "Unknown"
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(label)
}
