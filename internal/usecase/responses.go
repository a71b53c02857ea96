package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/ports"
)

const minSummaryRunes = 30

// ResponseError reports a model response that could not be used.
// Syntax is set when the text was not valid JSON at all.
type ResponseError struct {
	Kind   ports.GenerationKind
	Syntax bool
	Err    error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s response: %v", e.Kind, e.Err)
}

func (e *ResponseError) Unwrap() []error {
	return []error{domain.ErrInvalidResponse, e.Err}
}

func invalid(kind ports.GenerationKind, format string, args ...any) error {
	return &ResponseError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// decodeStrict parses exactly one JSON value into v, rejecting unknown fields.
func decodeStrict(kind ports.GenerationKind, raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var syntaxErr *json.SyntaxError
		syntax := errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		return &ResponseError{Kind: kind, Syntax: syntax, Err: err}
	}
	if dec.More() {
		return &ResponseError{Kind: kind, Syntax: true, Err: errors.New("trailing data after JSON value")}
	}
	return nil
}

type consolidationResponse struct {
	Sections []sectionPayload `json:"sections"`
}

type sectionPayload struct {
	Headline       string   `json:"headline"`
	Summary        *string  `json:"summary"`
	Sentiment      string   `json:"sentiment"`
	Tickers        []string `json:"tickers"`
	ArticleIndices []int    `json:"article_indices"`
}

func decodeConsolidation(raw string) (consolidationResponse, error) {
	var resp consolidationResponse
	if err := decodeStrict(ports.KindConsolidation, raw, &resp); err != nil {
		return consolidationResponse{}, err
	}
	if len(resp.Sections) == 0 {
		return consolidationResponse{}, invalid(ports.KindConsolidation, "no sections returned")
	}
	for i, s := range resp.Sections {
		if s.Summary == nil {
			return consolidationResponse{}, invalid(ports.KindConsolidation, "section %d: missing summary", i+1)
		}
		if utf8.RuneCountInString(strings.TrimSpace(*s.Summary)) < minSummaryRunes {
			return consolidationResponse{}, invalid(ports.KindConsolidation, "section %d %q: summary too short", i+1, s.Headline)
		}
		if !domain.Sentiment(s.Sentiment).Valid() {
			return consolidationResponse{}, invalid(ports.KindConsolidation, "section %d: invalid sentiment %q", i+1, s.Sentiment)
		}
	}
	return resp, nil
}

type briefingResponse struct {
	OverallSentiment  *domain.SentimentBreakdown `json:"overall_sentiment"`
	MustReads         []domain.MustRead          `json:"must_reads"`
	CrossMarketThemes []string                   `json:"cross_market_themes"`
}

func decodeBriefing(raw string) (briefingResponse, error) {
	var resp briefingResponse
	if err := decodeStrict(ports.KindBriefing, raw, &resp); err != nil {
		return briefingResponse{}, err
	}
	if resp.OverallSentiment == nil {
		return briefingResponse{}, invalid(ports.KindBriefing, "missing overall_sentiment")
	}
	for _, pct := range []float64{resp.OverallSentiment.BullishPct, resp.OverallSentiment.BearishPct, resp.OverallSentiment.NeutralPct} {
		if pct < 0 || pct > 100 {
			return briefingResponse{}, invalid(ports.KindBriefing, "percentage %v out of range", pct)
		}
	}
	for i, mr := range resp.MustReads {
		if mr.ArticleID <= 0 || strings.TrimSpace(mr.Title) == "" {
			return briefingResponse{}, invalid(ports.KindBriefing, "must_read %d: missing article id or title", i+1)
		}
	}
	return resp, nil
}
