package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lawchat/pkg/ai"
	"lawchat/pkg/config"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const openRouterTitle = "lawchat"

func init() {
	ai.Register(ai.ProviderOpenRouter, NewOpenRouterProvider)
}

// OpenRouterProvider implements the Provider interface using the OpenRouter API.
type OpenRouterProvider struct {
	client             openai.Client
	defaultModel       string
	defaultTemperature float64
	defaultMaxTokens   int
}

// NewOpenRouterProvider creates a new OpenRouter provider from config.
func NewOpenRouterProvider(cfg config.ServerConfig) (ai.Provider, error) {
	return newOpenRouterProviderWithHTTPClient(cfg, nil)
}

func newOpenRouterProviderWithHTTPClient(cfg config.ServerConfig, httpClient *http.Client) (*OpenRouterProvider, error) {
	if strings.TrimSpace(cfg.OpenRouterAPIKey) == "" {
		slog.Debug("openrouter_provider_missing_key")
		return nil, fmt.Errorf("openrouter api key is required")
	}
	if strings.TrimSpace(cfg.OpenRouterBaseURL) == "" {
		return nil, fmt.Errorf("openrouter base url is required")
	}
	if strings.TrimSpace(cfg.OpenRouterModel) == "" {
		return nil, fmt.Errorf("openrouter model is required")
	}
	if cfg.LLMTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("llm timeout must be positive")
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.LLMTimeoutSeconds) * time.Second}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenRouterAPIKey),
		option.WithBaseURL(cfg.OpenRouterBaseURL),
		option.WithHeader("X-Title", openRouterTitle),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	slog.Debug("openrouter_provider_ready",
		"api_url", cfg.OpenRouterBaseURL,
		"model", cfg.OpenRouterModel,
		"timeout_seconds", cfg.LLMTimeoutSeconds,
	)
	return &OpenRouterProvider{
		client:             client,
		defaultModel:       cfg.OpenRouterModel,
		defaultTemperature: cfg.LLMTemperature,
		defaultMaxTokens:   cfg.LLMMaxTokens,
	}, nil
}

// CreateChatCompletion sends a chat completion request.
func (p *OpenRouterProvider) CreateChatCompletion(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	params, err := p.buildChatParams(req)
	if err != nil {
		return ai.ChatResponse{}, err
	}

	slog.Debug("openrouter_chat_request",
		"model", string(params.Model),
		"message_count", len(req.Messages),
	)
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ai.ChatResponse{}, err
	}

	out := ai.ChatResponse{Model: resp.Model}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}

func (p *OpenRouterProvider) buildChatParams(req ai.ChatRequest) (openai.ChatCompletionNewParams, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.defaultModel
	}
	if strings.TrimSpace(model) == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("messages are required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		param, err := toChatMessageParam(msg)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, param)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	temperature := p.defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	params.Temperature = openai.Float(temperature)

	maxTokens := p.defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	return params, nil
}

func toChatMessageParam(msg ai.Message) (openai.ChatCompletionMessageParamUnion, error) {
	role := strings.ToLower(strings.TrimSpace(msg.Role))
	switch role {
	case "system":
		return openai.SystemMessage(msg.Content), nil
	case "user":
		return openai.UserMessage(msg.Content), nil
	case "assistant":
		return openai.AssistantMessage(msg.Content), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported role: %s", msg.Role)
	}
}

// Ensure interface compliance
var _ ai.Provider = (*OpenRouterProvider)(nil)
