// Package transport talks to the legal-assistant chat service over HTTP and
// classifies every failure as a NetworkError, RateLimitError or ServiceError.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"lawchat/pkg/chat"
	"lawchat/pkg/version"

	"github.com/tidwall/gjson"
)

const (
	opFetchHistory  = "fetch history"
	opPostMessage   = "post message"
	opDeleteHistory = "delete history"

	maxErrorBody   = 4096
	maxDetailRunes = 200
)

// Client is the HTTP client for the chat service.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	now       func() time.Time
	userAgent string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it. A client given
// through WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithClock overrides the clock used to stamp assistant replies.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client rooted at baseURL; all API paths hang off it.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:   parsed,
		http:      &http.Client{},
		now:       time.Now,
		userAgent: version.UserAgent("lawchat"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("base_url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base_url must include scheme and host")
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed, nil
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(c.baseURL.String(), "/") + "/" + strings.Join(escaped, "/")
}

type postMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type postMessageResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// FetchHistory loads the session's history, oldest first.
func (c *Client) FetchHistory(ctx context.Context, sessionID string) ([]chat.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("api", "chat", "history", sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("create history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(opFetchHistory, req)
	if err != nil {
		return nil, err
	}

	var entries []chat.WireMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &ServiceError{Op: opFetchHistory, Status: status, Detail: "malformed response: " + err.Error()}
	}

	messages := make([]chat.Message, 0, len(entries))
	for i, entry := range entries {
		msg, err := entry.ToMessage()
		if err != nil {
			slog.Debug("history_entry_skipped", "index", i, "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// PostMessage sends text and returns the assistant's reply stamped with the client clock.
func (c *Client) PostMessage(ctx context.Context, sessionID, text string) (chat.Message, error) {
	if chat.IsBlank(text) {
		return chat.Message{}, ErrEmptyMessage
	}

	payload, err := json.Marshal(postMessageRequest{SessionID: sessionID, Message: text})
	if err != nil {
		return chat.Message{}, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("api", "chat"), bytes.NewReader(payload))
	if err != nil {
		return chat.Message{}, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(opPostMessage, req)
	if err != nil {
		return chat.Message{}, err
	}

	var resp postMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return chat.Message{}, &ServiceError{Op: opPostMessage, Status: status, Detail: "malformed response: " + err.Error()}
	}
	if chat.IsBlank(resp.Response) {
		return chat.Message{}, &ServiceError{Op: opPostMessage, Status: status, Detail: "malformed response: empty reply"}
	}

	return chat.NewAssistantMessage(resp.Response, c.now()), nil
}

// DeleteHistory removes the session's history on the service.
func (c *Client) DeleteHistory(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("api", "chat", "history", sessionID), nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	_, _, err = c.do(opDeleteHistory, req)
	return err
}

// do executes req and returns the body of a 2xx response or a classified error.
func (c *Client) do(op string, req *http.Request) ([]byte, int, error) {
	req.Header.Set("User-Agent", c.userAgent)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("transport_request_failed", "op", op, "error", err)
		return nil, 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	slog.Debug("transport_response",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := extractDetail(body)
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, resp.StatusCode, &RateLimitError{Op: op, Detail: detail}
		}
		return nil, resp.StatusCode, &ServiceError{Op: op, Status: resp.StatusCode, Detail: detail}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	return body, resp.StatusCode, nil
}

// extractDetail pulls a diagnostic string out of an error body. It understands
// {"detail": "..."}, FastAPI validation lists and {"error": {"message": "..."}},
// and falls back to the trimmed raw body.
func extractDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if gjson.ValidBytes(trimmed) {
		for _, path := range []string{"detail", "detail.0.msg", "error.message", "message"} {
			v := gjson.GetBytes(trimmed, path)
			if v.Exists() && v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
				return strings.TrimSpace(v.String())
			}
		}
	}
	text := strings.ToValidUTF8(string(trimmed), "")
	if utf8.RuneCountInString(text) > maxDetailRunes {
		text = string([]rune(text)[:maxDetailRunes])
	}
	return text
}
