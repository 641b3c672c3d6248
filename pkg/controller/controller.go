// Package controller drives the conversation: it runs the user's intents
// (mount, send, clear, reload) against the transport and applies the outcome
// to the store, rolling back and notifying on failure.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"lawchat/pkg/chat"
	"lawchat/pkg/errmsg"
	"lawchat/pkg/store"
)

// ErrNothingToClear is returned by OnClear when the history is already empty.
var ErrNothingToClear = errors.New("controller: history is empty")

// Transport is the subset of the service client the controller needs.
type Transport interface {
	FetchHistory(ctx context.Context, sessionID string) ([]chat.Message, error)
	PostMessage(ctx context.Context, sessionID, text string) (chat.Message, error)
	DeleteHistory(ctx context.Context, sessionID string) error
}

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Level Level
	Text  string
}

// Notifier surfaces notifications. Implementations must not block for long.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Controller coordinates the store and the transport for one session.
type Controller struct {
	sessionID string
	store     *store.Store
	transport Transport
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used to stamp user messages.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a controller bound to st's session.
func New(st *store.Store, t Transport, n Notifier, opts ...Option) *Controller {
	if n == nil {
		n = NotifierFunc(func(Notification) {})
	}
	c := &Controller{
		sessionID: st.SessionID(),
		store:     st,
		transport: t,
		notifier:  n,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the session this controller drives.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Store returns the underlying conversation store.
func (c *Controller) Store() *store.Store {
	return c.store
}

// OnMount loads the history. A failure leaves the conversation empty and is
// only logged; the user starts fresh.
func (c *Controller) OnMount(ctx context.Context) error {
	msgs, err := c.transport.FetchHistory(ctx, c.sessionID)
	if err != nil {
		c.logger.Warn("history_load_failed", "session_id", c.sessionID, "error", err)
		return err
	}
	if err := c.store.Hydrate(msgs); err != nil {
		c.logger.Warn("history_hydrate_rejected", "session_id", c.sessionID, "error", err)
		return err
	}
	c.logger.Info("history_loaded", "session_id", c.sessionID, "messages", len(msgs))
	return nil
}

// OnSend sends text. The user message is shown immediately and removed again
// if the service does not answer. Guard rejections return store errors with
// no state change; transport failures are notified and then returned.
func (c *Controller) OnSend(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.ErrEmptyMessage
	}
	if err := c.store.OptimisticAppend(chat.NewUserMessage(text, c.now())); err != nil {
		c.logger.Debug("chat_send_rejected", "error", err)
		return err
	}

	c.logger.Info("chat_send_start", "session_id", c.sessionID, "length", len(text))
	start := time.Now()

	reply, err := c.transport.PostMessage(ctx, c.sessionID, text)
	if err == nil {
		err = c.store.ConfirmReply(reply)
	}
	if err != nil {
		if rbErr := c.store.RollbackLastAppend(); rbErr != nil {
			c.logger.Error("chat_rollback_failed", "error", rbErr)
		}
		c.logger.Error("chat_send_failed",
			"session_id", c.sessionID,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		c.notifier.Notify(Notification{Level: LevelError, Text: errmsg.Classify(err)})
		return err
	}

	c.logger.Info("chat_send_done",
		"session_id", c.sessionID,
		"reply_length", len(reply.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// OnClear deletes the history on the service and, only then, locally.
func (c *Controller) OnClear(ctx context.Context) error {
	snapshot := c.store.Snapshot()
	if snapshot.Pending {
		return store.ErrSendInFlight
	}
	if len(snapshot.History) == 0 {
		return ErrNothingToClear
	}

	if err := c.transport.DeleteHistory(ctx, c.sessionID); err != nil {
		c.logger.Error("history_clear_failed", "session_id", c.sessionID, "error", err)
		c.notifier.Notify(Notification{Level: LevelError, Text: errmsg.HistoryClearFailed})
		return err
	}
	if err := c.store.Clear(); err != nil {
		// A send started while the delete was in flight; the service copy is
		// already gone, so report it like a failed clear.
		c.logger.Warn("history_clear_rejected", "session_id", c.sessionID, "error", err)
		c.notifier.Notify(Notification{Level: LevelError, Text: errmsg.HistoryClearFailed})
		return err
	}

	c.logger.Info("history_cleared", "session_id", c.sessionID)
	c.notifier.Notify(Notification{Level: LevelSuccess, Text: errmsg.HistoryCleared})
	return nil
}

// OnReload re-fetches the history on demand. Unlike OnMount, failures are
// shown to the user.
func (c *Controller) OnReload(ctx context.Context) error {
	if c.store.Pending() {
		return store.ErrSendInFlight
	}
	msgs, err := c.transport.FetchHistory(ctx, c.sessionID)
	if err == nil {
		err = c.store.Hydrate(msgs)
	}
	if err != nil {
		c.logger.Warn("history_reload_failed", "session_id", c.sessionID, "error", err)
		c.notifier.Notify(Notification{Level: LevelError, Text: reloadFailure(err)})
		return err
	}
	c.notifier.Notify(Notification{Level: LevelInfo, Text: "History reloaded"})
	return nil
}

func reloadFailure(err error) string {
	if errors.Is(err, store.ErrSendInFlight) {
		return "Wait for the current reply before reloading."
	}
	msg := errmsg.Classify(err)
	if msg == errmsg.SendFailed {
		return "Failed to load chat history. Please try again."
	}
	return msg
}
