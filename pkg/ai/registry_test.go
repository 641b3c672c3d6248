package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lawchat/pkg/config"
)

type stubProvider struct {
	reply string
	err   error
}

func (s stubProvider) CreateChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return ChatResponse{Content: s.reply}, s.err
}

func TestRegistry_New(t *testing.T) {
	r := NewRegistry()
	var got config.ServerConfig
	r.Register(ProviderGoogle, func(cfg config.ServerConfig) (Provider, error) {
		got = cfg
		return stubProvider{reply: "ok"}, nil
	})

	p, err := r.New(config.ServerConfig{LLMProvider: " Google ", GeminiAPIKey: "k"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got.GeminiAPIKey != "k" {
		t.Fatalf("Expected config passed to the factory, got %+v", got)
	}
	resp, _ := p.CreateChatCompletion(context.Background(), ChatRequest{})
	if resp.Content != "ok" {
		t.Fatalf("Expected stub provider, got %q", resp.Content)
	}
}

func TestRegistry_New_UnknownTypeListsAvailable(t *testing.T) {
	r := NewRegistry()
	r.Register(ProviderOpenRouter, func(config.ServerConfig) (Provider, error) { return stubProvider{}, nil })
	r.Register(ProviderGoogle, func(config.ServerConfig) (Provider, error) { return stubProvider{}, nil })

	_, err := r.New(config.ServerConfig{LLMProvider: "anthropic"})
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "available: google, openrouter") {
		t.Fatalf("Expected sorted provider list in %q", err)
	}
}

func TestRegistry_FactoryErrorPropagates(t *testing.T) {
	r := NewRegistry()
	want := errors.New("missing key")
	r.Register(ProviderGoogle, func(config.ServerConfig) (Provider, error) { return nil, want })

	_, err := r.New(config.ServerConfig{LLMProvider: "google"})
	if !errors.Is(err, want) {
		t.Fatalf("Expected factory error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "google provider: ") {
		t.Fatalf("Expected provider prefix, got %q", err)
	}
}

func TestGetProviderFromConfig_UsesDefaultRegistry(t *testing.T) {
	orig := DefaultRegistry
	t.Cleanup(func() { DefaultRegistry = orig })
	DefaultRegistry = NewRegistry()

	Register(ProviderGoogle, func(config.ServerConfig) (Provider, error) { return stubProvider{}, nil })

	if _, err := GetProviderFromConfig(config.ServerConfig{LLMProvider: "google"}); err != nil {
		t.Fatalf("GetProviderFromConfig() error: %v", err)
	}
	if _, err := GetProviderFromConfig(config.ServerConfig{LLMProvider: "openrouter"}); err == nil {
		t.Fatal("Expected error for unregistered provider")
	}
	if got := DefaultRegistry.Types(); len(got) != 1 || got[0] != ProviderGoogle {
		t.Fatalf("Types() = %v", got)
	}
}
