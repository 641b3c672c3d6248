package ai

import (
	"context"
	"errors"
	"strings"
)

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyReply is returned when a model answers without visible text.
var ErrEmptyReply = errors.New("empty response from model")

// Message is one turn of the prompt sent to a model.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is a single non-streaming completion. Zero-valued options fall
// back to the provider defaults from the server config.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
}

// ChatResponse is a model reply normalized across providers.
type ChatResponse struct {
	Content      string
	Model        string
	FinishReason string
}

// Reply returns the trimmed answer, or ErrEmptyReply.
func (r ChatResponse) Reply() (string, error) {
	text := strings.TrimSpace(r.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// Provider produces assistant replies for the chat endpoint.
type Provider interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
