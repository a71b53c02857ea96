package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/ports"
)

const systemPrompt = "You are a senior financial journalist and market analyst. Respond with valid JSON only, no prose."

// Options selects and configures a model provider.
type Options struct {
	Provider        string
	Model           string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	HTTPClient      *http.Client
}

// NewModel builds the configured provider. A missing key is ErrNotConfigured.
func NewModel(ctx context.Context, opts Options) (ports.Model, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "gemini", "google":
		if opts.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini: %w", domain.ErrNotConfigured)
		}
		return NewGeminiModel(ctx, opts.GeminiAPIKey, opts.Model, opts.HTTPClient)
	case "openai", "chatgpt":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: %w", domain.ErrNotConfigured)
		}
		return NewChatGPTModel(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.Model, opts.HTTPClient), nil
	case "anthropic", "claude":
		if opts.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic: %w", domain.ErrNotConfigured)
		}
		return NewAnthropicModel(opts.AnthropicAPIKey, opts.Model, opts.HTTPClient), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}

// cleanJSONResponse strips markdown fences and any prose around the JSON object.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
