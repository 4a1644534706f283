package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// openaiGenerator calls one model on an OpenAI-compatible endpoint
// (Groq, Cerebras).
type openaiGenerator struct {
	client   openai.Client
	model    string
	provider Provider
}

func newOpenAIGenerator(provider Provider, apiKey, model string) (*openaiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: missing API key", provider)
	}
	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}
	if model == "" {
		switch provider {
		case ProviderGroq:
			model = DefaultGroqModels[0]
		case ProviderCerebras:
			model = DefaultCerebrasModels[0]
		}
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // retries are handled by the chain
	)
	return &openaiGenerator{client: client, model: model, provider: provider}, nil
}

func (g *openaiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		var apiErr *openai.Error
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", wrapError(fmt.Errorf("chat completion failed: %w", err), g.provider, g.model, status)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", wrapError(ErrEmptyResponse, g.provider, g.model, 0)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", wrapError(ErrEmptyResponse, g.provider, g.model, 0)
	}

	slog.DebugContext(ctx, "Chat completion finished",
		"provider", g.provider,
		"model", g.model,
		"operation", req.Operation,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", duration.Milliseconds())
	return text, nil
}

func (g *openaiGenerator) Provider() Provider { return g.provider }

func (g *openaiGenerator) Model() string { return g.model }

func (g *openaiGenerator) Close() error { return nil }
