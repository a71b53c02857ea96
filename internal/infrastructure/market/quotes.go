package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/ports"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client reads index quotes from the Yahoo Finance chart endpoint.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
}

var _ ports.MarketQuoter = (*Client)(nil)

// NewClient creates a reusable HTTP client. A nil httpClient gets a 10s timeout.
func NewClient(endpoint, userAgent string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
		http:      httpClient,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				PreviousClose      float64 `json:"previousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the latest price and previous close for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if strings.TrimSpace(symbol) == "" {
		return domain.Quote{}, fmt.Errorf("empty symbol")
	}

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "5d")

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}

	if resp.Chart.Error != nil {
		return domain.Quote{}, fmt.Errorf("quote %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return domain.Quote{}, fmt.Errorf("quote %s: %w", symbol, domain.ErrNotFound)
	}

	meta := resp.Chart.Result[0].Meta
	prev := meta.ChartPreviousClose
	if prev == 0 {
		prev = meta.PreviousClose
	}
	return domain.Quote{Price: meta.RegularMarketPrice, PreviousClose: prev}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	target := c.endpoint + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
