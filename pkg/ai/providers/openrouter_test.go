package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"

	"lawchat/pkg/ai"
	"lawchat/pkg/config"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripperFunc) *http.Client {
	return &http.Client{Transport: rt}
}

func newHTTPResponse(req *http.Request, status int, contentType string, body []byte) *http.Response {
	resp := &http.Response{
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	return resp
}

func newJSONResponse(t *testing.T, req *http.Request, status int, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return newHTTPResponse(req, status, "application/json", data)
}

func testOpenRouterConfig() config.ServerConfig {
	return config.ServerConfig{
		LLMProvider:       "openrouter",
		OpenRouterAPIKey:  "test-key",
		OpenRouterBaseURL: "https://openrouter.test/api/v1",
		OpenRouterModel:   "test-model",
		LLMTemperature:    0.4,
		LLMMaxTokens:      55,
		LLMTimeoutSeconds: 5,
	}
}

func TestOpenRouterProvider_CreateChatCompletion(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotTitle string
	var gotPayload map[string]any

	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		gotAuth = req.Header.Get("Authorization")
		gotTitle = req.Header.Get("X-Title")
		if err := json.NewDecoder(req.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		return newJSONResponse(t, req, http.StatusOK, map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []any{
				map[string]any{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": "You are entitled to a refund.",
					},
					"finish_reason": "stop",
				},
			},
		}), nil
	})

	provider, err := newOpenRouterProviderWithHTTPClient(testOpenRouterConfig(), client)
	if err != nil {
		t.Fatalf("newOpenRouterProviderWithHTTPClient() error: %v", err)
	}

	resp, err := provider.CreateChatCompletion(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{
			{Role: "system", Content: "legal assistant"},
			{Role: "user", Content: "My order never arrived."},
		},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion() error: %v", err)
	}

	if resp.Content != "You are entitled to a refund." {
		t.Fatalf("Expected response content, got %q", resp.Content)
	}
	if gotPath != "/api/v1/chat/completions" {
		t.Fatalf("Expected path '/api/v1/chat/completions', got %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Expected Authorization header, got %q", gotAuth)
	}
	if gotTitle != "lawchat" {
		t.Fatalf("Expected X-Title header, got %q", gotTitle)
	}

	messages, ok := gotPayload["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %v", gotPayload["messages"])
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Fatalf("Expected role 'system', got %v", first["role"])
	}

	temp, _ := gotPayload["temperature"].(float64)
	if math.Abs(temp-0.4) > 0.0001 {
		t.Fatalf("Expected temperature 0.4, got %v", gotPayload["temperature"])
	}
	maxTokens, _ := gotPayload["max_tokens"].(float64)
	if maxTokens != 55 {
		t.Fatalf("Expected max_tokens 55, got %v", gotPayload["max_tokens"])
	}
}

func TestOpenRouterProvider_RateLimited(t *testing.T) {
	calls := 0
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		calls++
		return newJSONResponse(t, req, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"message": "Rate limit exceeded", "code": 429},
		}), nil
	})

	provider, err := newOpenRouterProviderWithHTTPClient(testOpenRouterConfig(), client)
	if err != nil {
		t.Fatalf("newOpenRouterProviderWithHTTPClient() error: %v", err)
	}

	_, err = provider.CreateChatCompletion(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: "user", Content: "hello"}},
	})
	if !ai.IsRateLimited(err) {
		t.Fatalf("Expected rate limit error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("Expected no retries, got %d calls", calls)
	}
}

func TestOpenRouterProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.ServerConfig)
		wantErr string
	}{
		{"missing api key", func(c *config.ServerConfig) { c.OpenRouterAPIKey = "" }, "api key is required"},
		{"missing base url", func(c *config.ServerConfig) { c.OpenRouterBaseURL = "" }, "base url is required"},
		{"missing model", func(c *config.ServerConfig) { c.OpenRouterModel = " " }, "model is required"},
		{"invalid timeout", func(c *config.ServerConfig) { c.LLMTimeoutSeconds = 0 }, "timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testOpenRouterConfig()
			tt.modify(&cfg)
			_, err := newOpenRouterProviderWithHTTPClient(cfg, nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestToChatMessageParam(t *testing.T) {
	for _, role := range []string{"system", "user", "assistant", " USER "} {
		if _, err := toChatMessageParam(ai.Message{Role: role, Content: "x"}); err != nil {
			t.Errorf("toChatMessageParam(%q) error: %v", role, err)
		}
	}
	if _, err := toChatMessageParam(ai.Message{Role: "tool", Content: "x"}); err == nil {
		t.Error("Expected error for unsupported role")
	}
}

func TestOpenRouterProvider_BuildChatParams_Validation(t *testing.T) {
	provider, err := newOpenRouterProviderWithHTTPClient(testOpenRouterConfig(), nil)
	if err != nil {
		t.Fatalf("newOpenRouterProviderWithHTTPClient() error: %v", err)
	}
	if _, err := provider.buildChatParams(ai.ChatRequest{}); err == nil {
		t.Fatal("Expected error for empty messages")
	}

	zero := 0
	params, err := provider.buildChatParams(ai.ChatRequest{
		Model:     "override",
		Messages:  []ai.Message{{Role: "user", Content: "x"}},
		MaxTokens: &zero,
	})
	if err != nil {
		t.Fatalf("buildChatParams() error: %v", err)
	}
	if string(params.Model) != "override" {
		t.Fatalf("Expected model override, got %q", params.Model)
	}
	if params.MaxTokens.Valid() {
		t.Fatal("Expected max tokens to be omitted")
	}
}

func TestRegisteredProviders(t *testing.T) {
	got := ai.DefaultRegistry.Types()
	want := []ai.ProviderType{ai.ProviderGoogle, ai.ProviderOpenRouter}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
}
