package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"MarketBrief/internal/ports"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiModel calls the Gemini API in JSON mode with a response schema
// chosen by request kind.
type GeminiModel struct {
	client *genai.Client
	model  string
}

var _ ports.Model = (*GeminiModel)(nil)

// NewGeminiModel creates a Gemini API client.
func NewGeminiModel(ctx context.Context, apiKey, model string, httpClient *http.Client) (*GeminiModel, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Name reports the provider and model.
func (g *GeminiModel) Name() string {
	return "gemini/" + g.model
}

// Generate returns the raw JSON text of the first candidate.
func (g *GeminiModel) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(req.Kind),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

func responseSchema(kind ports.GenerationKind) *genai.Schema {
	switch kind {
	case ports.KindConsolidation:
		return consolidationSchema()
	case ports.KindBriefing:
		return briefingSchema()
	default:
		return nil
	}
}

func stringArray() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

func consolidationSchema() *genai.Schema {
	section := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"headline": {Type: genai.TypeString, Description: "Korean headline, at most 60 characters"},
			"summary":  {Type: genai.TypeString, Description: "2-3 Korean paragraphs separated by blank lines"},
			"sentiment": {
				Type: genai.TypeString,
				Enum: []string{"Bullish", "Bearish", "Neutral"},
			},
			"tickers": stringArray(),
			"article_indices": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeInteger},
			},
		},
		Required: []string{"headline", "summary", "sentiment", "tickers", "article_indices"},
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"sections": {Type: genai.TypeArray, Items: section}},
		Required:   []string{"sections"},
	}
}

func briefingSchema() *genai.Schema {
	mustRead := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"article_id":      {Type: genai.TypeInteger},
			"title":           {Type: genai.TypeString},
			"why_important":   {Type: genai.TypeString},
			"impact_analysis": {Type: genai.TypeString},
		},
		Required: []string{"article_id", "title", "why_important", "impact_analysis"},
	}
	overall := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"bullish_pct": {Type: genai.TypeNumber},
			"bearish_pct": {Type: genai.TypeNumber},
			"neutral_pct": {Type: genai.TypeNumber},
			"summary":     {Type: genai.TypeString},
		},
		Required: []string{"bullish_pct", "bearish_pct", "neutral_pct", "summary"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overall_sentiment":   overall,
			"must_reads":          {Type: genai.TypeArray, Items: mustRead},
			"cross_market_themes": stringArray(),
		},
		Required: []string{"overall_sentiment", "must_reads", "cross_market_themes"},
	}
}
