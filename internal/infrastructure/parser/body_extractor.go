package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"MarketBrief/internal/ports"
)

const (
	defaultUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	minParagraphRunes = 40
	maxBodyRunes      = 2000
	minBodyRunes      = 100
	noiseSelector     = "script, style, nav, header, footer, aside, iframe, form"
)

var bodyClassHints = []string{"article-body", "story-body", "post-content", "entry-content"}

// BodyExtractor pulls the main text out of an article page.
type BodyExtractor struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

var _ ports.BodyExtractor = (*BodyExtractor)(nil)

// NewBodyExtractor wires an HTTP client; the default follows redirects and
// times out after timeout.
func NewBodyExtractor(client *http.Client, timeout time.Duration, userAgent string, logger *slog.Logger) *BodyExtractor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BodyExtractor{client: client, userAgent: userAgent, logger: logger}
}

// Extract returns the article text, or false when the page is unreachable
// or too short to be an article body.
func (b *BodyExtractor) Extract(ctx context.Context, pageURL string) (string, bool) {
	doc, err := b.fetchDocument(ctx, pageURL)
	if err != nil {
		b.logger.Debug("body extraction failed", "url", pageURL, "error", err)
		return "", false
	}

	body := ExtractBody(doc)
	if utf8.RuneCountInString(body) <= minBodyRunes {
		b.logger.Debug("body too short", "url", pageURL, "runes", utf8.RuneCountInString(body))
		return "", false
	}
	return body, true
}

func (b *BodyExtractor) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// ExtractBody strips page chrome, finds the article container and joins its
// substantial paragraphs.
func ExtractBody(doc *goquery.Document) string {
	doc.Find(noiseSelector).Remove()

	container := findContainer(doc)
	var paragraphs *goquery.Selection
	if container != nil {
		paragraphs = container.Find("p")
	} else {
		paragraphs = doc.Find("p")
	}

	var kept []string
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if utf8.RuneCountInString(text) > minParagraphRunes {
			kept = append(kept, text)
		}
	})

	body := strings.Join(kept, "\n\n")
	if utf8.RuneCountInString(body) > maxBodyRunes {
		body = truncateRunes(body, maxBodyRunes) + "..."
	}
	return body
}

func findContainer(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("article").First(); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find(`[role="article"]`).First(); sel.Length() > 0 {
		return sel
	}

	var found *goquery.Selection
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		for _, hint := range bodyClassHints {
			if strings.Contains(class, hint) {
				found = s
				return false
			}
		}
		return true
	})
	return found
}
