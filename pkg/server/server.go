// Package server is the reference chat service: it stores each session's
// messages and answers new ones through the configured LLM provider.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lawchat/pkg/ai"
	"lawchat/pkg/chat"
	"lawchat/pkg/history"
)

// Banner is returned by GET /api/.
const Banner = "Consumer Protection Legal Chatbot API"

const maxRequestBytes = 1 << 20

// Server holds the HTTP handlers.
type Server struct {
	store           history.Store
	llm             ai.Provider
	systemPrompt    string
	historyLimit    int
	contextMessages int
	corsOrigins     []string
	logger          *slog.Logger
	now             func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithSystemPrompt replaces the default legal system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *Server) {
		if strings.TrimSpace(prompt) != "" {
			s.systemPrompt = prompt
		}
	}
}

// WithHistoryLimit caps the records returned by the history endpoint.
func WithHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithContextMessages sets how many prior messages are sent to the model.
func WithContextMessages(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.contextMessages = n
		}
	}
}

// WithCORSOrigins sets the allowed origins. "*" allows any.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a server.
func New(store history.Store, llm ai.Provider, opts ...Option) *Server {
	s := &Server{
		store:           store,
		llm:             llm,
		systemPrompt:    ai.LegalSystemPrompt,
		historyLimit:    1000,
		contextMessages: ai.DefaultContextMessages,
		corsOrigins:     []string{"*"},
		logger:          slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{$}", s.handleRoot)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/history/{session_id}", s.handleHistory)
	mux.HandleFunc("DELETE /api/chat/history/{session_id}", s.handleClear)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s.logRequests(cors(s.corsOrigins, mux))
}

type chatRequest struct {
	SessionID *string `json:"session_id"`
	Message   *string `json:"message"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type clearResponse struct {
	DeletedCount int    `json:"deleted_count"`
	SessionID    string `json:"session_id"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": Banner})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: []validationIssue{
			{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"},
		}})
		return
	}
	if issues := validateChat(req); len(issues) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: issues})
		return
	}
	sessionID, text := *req.SessionID, strings.TrimSpace(*req.Message)
	received := s.now()

	prior, err := s.store.List(r.Context(), sessionID, 0)
	if err != nil {
		s.chatError(w, sessionID, err)
		return
	}
	priorMsgs := make([]chat.Message, 0, len(prior))
	for _, rec := range prior {
		priorMsgs = append(priorMsgs, rec.ToMessage())
	}

	convo := ai.BuildChatMessages(s.systemPrompt, priorMsgs, s.contextMessages, text)
	s.logger.Debug("chat_context_built",
		"session_id", sessionID,
		"prior_messages", convo.Included,
		"truncated", convo.Truncated,
	)

	start := time.Now()
	resp, err := s.llm.CreateChatCompletion(r.Context(), ai.ChatRequest{Messages: convo.Messages})
	var reply string
	if err == nil {
		reply, err = resp.Reply()
	}
	if err != nil {
		s.chatError(w, sessionID, err)
		return
	}
	s.logger.Info("chat_reply",
		"session_id", sessionID,
		"model", resp.Model,
		"finish_reason", resp.FinishReason,
		"reply_length", len(reply),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	userRec := history.NewRecord(sessionID, chat.RoleUser, text, received)
	replyRec := history.NewRecord(sessionID, chat.RoleAssistant, reply, s.now())
	for _, rec := range []history.Record{userRec, replyRec} {
		if err := s.store.Append(r.Context(), rec); err != nil {
			s.chatError(w, sessionID, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: reply, SessionID: sessionID})
}

func validateChat(req chatRequest) []validationIssue {
	var issues []validationIssue
	if req.SessionID == nil || strings.TrimSpace(*req.SessionID) == "" {
		issues = append(issues, validationIssue{Loc: []string{"body", "session_id"}, Msg: "Field required", Type: "missing"})
	}
	if req.Message == nil || strings.TrimSpace(*req.Message) == "" {
		issues = append(issues, validationIssue{Loc: []string{"body", "message"}, Msg: "Field required", Type: "missing"})
	}
	return issues
}

func (s *Server) chatError(w http.ResponseWriter, sessionID string, err error) {
	status := http.StatusInternalServerError
	if ai.IsRateLimited(err) {
		status = http.StatusTooManyRequests
	}
	s.logger.Error("chat_error", "session_id", sessionID, "status", status, "error", err)
	writeJSON(w, status, errorResponse{Detail: fmt.Sprintf("Chat error: %v", err)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	recs, err := s.store.List(r.Context(), sessionID, s.historyLimit)
	if err != nil {
		s.logger.Error("history_fetch_failed", "session_id", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("Error fetching history: %v", err)})
		return
	}
	out := make([]chat.WireMessage, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Wire())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	n, err := s.store.Delete(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("history_clear_failed", "session_id", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("Error clearing history: %v", err)})
		return
	}
	s.logger.Info("history_cleared", "session_id", sessionID, "deleted_count", n)
	writeJSON(w, http.StatusOK, clearResponse{DeletedCount: n, SessionID: sessionID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
