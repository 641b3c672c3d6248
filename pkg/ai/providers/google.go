package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lawchat/pkg/ai"
	"lawchat/pkg/config"

	"google.golang.org/genai"
)

const (
	geminiModel   = "gemini-2.5-pro"
	geminiTimeout = 120 * time.Second
)

func init() {
	ai.Register(ai.ProviderGoogle, NewGoogleProvider)
}

type googleModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var newGoogleClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// GoogleProvider answers through Gemini on the Google AI API.
type GoogleProvider struct {
	models      googleModelsClient
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// NewGoogleProvider needs GEMINI_API_KEY; model and timeout fall back to defaults.
func NewGoogleProvider(cfg config.ServerConfig) (ai.Provider, error) {
	key := strings.TrimSpace(cfg.GeminiAPIKey)
	if key == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}

	p := &GoogleProvider{
		model:       strings.TrimSpace(cfg.GeminiModel),
		temperature: cfg.LLMTemperature,
		maxTokens:   cfg.LLMMaxTokens,
		timeout:     time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
	}
	if p.model == "" {
		p.model = geminiModel
	}
	if p.timeout <= 0 {
		p.timeout = geminiTimeout
	}

	client, err := newGoogleClient(context.Background(), &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	p.models = client.Models

	slog.Debug("gemini_ready", "model", p.model, "timeout", p.timeout)
	return p, nil
}

// CreateChatCompletion sends the conversation as one GenerateContent call.
func (p *GoogleProvider) CreateChatCompletion(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.model
	}
	if model == "" {
		return ai.ChatResponse{}, errors.New("no gemini model configured")
	}

	system, turns := toGeminiTurns(req.Messages)
	if len(turns) == 0 {
		return ai.ChatResponse{}, errors.New("gemini request has no user or assistant turns")
	}

	gen := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(float32(p.temperature)),
		ThinkingConfig: &genai.ThinkingConfig{IncludeThoughts: false},
	}
	if req.Temperature != nil {
		gen.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if system != "" {
		gen.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	limit := p.maxTokens
	if req.MaxTokens != nil {
		limit = *req.MaxTokens
	}
	if limit > 0 {
		gen.MaxOutputTokens = int32(limit)
	}

	if _, ok := ctx.Deadline(); !ok && p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.models.GenerateContent(ctx, model, turns, gen)
	if err != nil {
		return ai.ChatResponse{}, err
	}

	out := ai.ChatResponse{Model: model}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		c := resp.Candidates[0]
		out.FinishReason = string(c.FinishReason)
		out.Content = answerText(c.Content)
	}
	return out, nil
}

// toGeminiTurns joins system messages into one instruction; Gemini has no
// system role in the turn list.
func toGeminiTurns(messages []ai.Message) (string, []*genai.Content) {
	var system []string
	turns := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case ai.RoleSystem:
			if s := strings.TrimSpace(m.Content); s != "" {
				system = append(system, s)
			}
		case ai.RoleAssistant:
			turns = append(turns, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			turns = append(turns, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), turns
}

// answerText skips thought parts.
func answerText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

var _ ai.Provider = (*GoogleProvider)(nil)
