package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"MarketBrief/internal/ports"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicModel implements ports.Model via the Messages API.
type AnthropicModel struct {
	client anthropic.Client
	model  string
}

var _ ports.Model = (*AnthropicModel)(nil)

func NewAnthropicModel(apiKey, model string, httpClient *http.Client) *AnthropicModel {
	if model == "" {
		model = defaultAnthropicModel
	}
	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(apiKey),
		anthropicopt.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, anthropicopt.WithHTTPClient(httpClient))
	}
	return &AnthropicModel{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (a *AnthropicModel) Name() string {
	return "anthropic/" + a.model
}

func (a *AnthropicModel) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		Temperature: anthropic.Float(float64(req.Temperature)),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			return cleanJSONResponse(block.Text), nil
		}
	}
	return "", fmt.Errorf("anthropic returned no text content")
}
