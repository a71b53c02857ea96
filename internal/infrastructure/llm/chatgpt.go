package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"MarketBrief/internal/ports"
)

const defaultChatGPTModel = "gpt-4o-mini"

// ChatGPTModel implements ports.Model backed by OpenAI-compatible APIs.
type ChatGPTModel struct {
	client       openai.Client
	model        string
	systemPrompt string
}

var _ ports.Model = (*ChatGPTModel)(nil)

// NewChatGPTModel builds a client. baseURL may point at any compatible endpoint.
func NewChatGPTModel(apiKey, baseURL, model string, httpClient *http.Client) *ChatGPTModel {
	if model == "" {
		model = defaultChatGPTModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &ChatGPTModel{
		client:       openai.NewClient(opts...),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (c *ChatGPTModel) Name() string {
	return "openai/" + c.model
}

// Generate sends the prompt as a user message and returns the cleaned JSON body.
func (c *ChatGPTModel) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt model is nil")
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(float64(req.Temperature)),
	})
	if err != nil {
		return "", fmt.Errorf("chatgpt completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chatgpt returned an empty message")
	}
	return cleanJSONResponse(content), nil
}
