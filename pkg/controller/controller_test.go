package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lawchat/pkg/chat"
	"lawchat/pkg/errmsg"
	"lawchat/pkg/store"
	"lawchat/pkg/transport"

	"github.com/google/go-cmp/cmp"
)

var clientNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeTransport struct {
	fetch  func(ctx context.Context, sessionID string) ([]chat.Message, error)
	post   func(ctx context.Context, sessionID, text string) (chat.Message, error)
	delete func(ctx context.Context, sessionID string) error

	mu    sync.Mutex
	posts []string
}

func (f *fakeTransport) FetchHistory(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if f.fetch == nil {
		return nil, nil
	}
	return f.fetch(ctx, sessionID)
}

func (f *fakeTransport) PostMessage(ctx context.Context, sessionID, text string) (chat.Message, error) {
	f.mu.Lock()
	f.posts = append(f.posts, text)
	f.mu.Unlock()
	if f.post == nil {
		return chat.NewAssistantMessage("echo: "+text, clientNow), nil
	}
	return f.post(ctx, sessionID, text)
}

func (f *fakeTransport) DeleteHistory(ctx context.Context, sessionID string) error {
	if f.delete == nil {
		return nil
	}
	return f.delete(ctx, sessionID)
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

func newTestController(ft *fakeTransport) (*Controller, *recordingNotifier) {
	n := &recordingNotifier{}
	c := New(store.New("session_1_test"), ft, n,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return clientNow }),
	)
	return c, n
}

func TestOnSend_Scenario_HiHello(t *testing.T) {
	ft := &fakeTransport{
		post: func(_ context.Context, sessionID, text string) (chat.Message, error) {
			if sessionID != "session_1_test" {
				t.Errorf("Expected session id to be passed, got %q", sessionID)
			}
			return chat.NewAssistantMessage("hello", clientNow), nil
		},
	}
	c, n := newTestController(ft)

	if err := c.OnSend(context.Background(), "hi"); err != nil {
		t.Fatalf("OnSend() error: %v", err)
	}

	st := c.Store().Snapshot()
	want := []chat.Message{
		chat.NewUserMessage("hi", clientNow),
		chat.NewAssistantMessage("hello", clientNow),
	}
	if diff := cmp.Diff(want, st.History); diff != "" {
		t.Errorf("History mismatch (-want +got):\n%s", diff)
	}
	if st.Pending {
		t.Error("Expected pending=false after success")
	}
	if len(n.all()) != 0 {
		t.Errorf("Expected no notifications on success, got %+v", n.all())
	}
}

func TestOnSend_Scenario_NetworkErrorRollsBack(t *testing.T) {
	ft := &fakeTransport{
		post: func(context.Context, string, string) (chat.Message, error) {
			return chat.Message{}, &transport.NetworkError{Op: "post message", Err: errors.New("refused")}
		},
	}
	c, n := newTestController(ft)

	err := c.OnSend(context.Background(), "hi")
	if !transport.IsNetwork(err) {
		t.Fatalf("Expected network error to be returned, got %v", err)
	}

	st := c.Store().Snapshot()
	if len(st.History) != 0 {
		t.Errorf("Expected empty history after rollback, got %+v", st.History)
	}
	if st.Pending {
		t.Error("Expected pending=false after failure")
	}
	want := []Notification{{Level: LevelError, Text: "Unable to reach the server. Please check your internet connection."}}
	if diff := cmp.Diff(want, n.all()); diff != "" {
		t.Errorf("Notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestOnSend_RollbackLaw(t *testing.T) {
	failures := []error{
		&transport.RateLimitError{},
		&transport.ServiceError{Status: 500, Detail: "quota exceeded"},
		&transport.ServiceError{Status: 403},
		&transport.NetworkError{Err: context.DeadlineExceeded},
	}

	for _, failure := range failures {
		ft := &fakeTransport{
			fetch: func(context.Context, string) ([]chat.Message, error) {
				return []chat.Message{
					chat.NewUserMessage("earlier", clientNow),
					chat.NewAssistantMessage("answer", clientNow),
				}, nil
			},
			post: func(context.Context, string, string) (chat.Message, error) {
				return chat.Message{}, failure
			},
		}
		c, n := newTestController(ft)
		if err := c.OnMount(context.Background()); err != nil {
			t.Fatalf("OnMount() error: %v", err)
		}
		before := c.Store().Snapshot()

		_ = c.OnSend(context.Background(), "new question")

		if diff := cmp.Diff(before, c.Store().Snapshot()); diff != "" {
			t.Errorf("%v: state after failed send differs (-before +after):\n%s", failure, diff)
		}
		notes := n.all()
		if len(notes) != 1 || notes[0].Text != errmsg.Classify(failure) {
			t.Errorf("%v: unexpected notifications %+v", failure, notes)
		}
	}
}

func TestOnSend_Guards(t *testing.T) {
	ft := &fakeTransport{}
	c, _ := newTestController(ft)

	if err := c.OnSend(context.Background(), "   "); !errors.Is(err, store.ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}

	release := make(chan struct{})
	entered := make(chan struct{})
	ft.post = func(context.Context, string, string) (chat.Message, error) {
		close(entered)
		<-release
		return chat.NewAssistantMessage("late", clientNow), nil
	}

	done := make(chan error, 1)
	go func() { done <- c.OnSend(context.Background(), "first") }()
	<-entered

	if !c.Store().Pending() {
		t.Fatal("Expected pending while the send is in flight")
	}
	if err := c.OnSend(context.Background(), "second"); !errors.Is(err, store.ErrSendInFlight) {
		t.Errorf("Expected ErrSendInFlight for concurrent send, got %v", err)
	}
	if err := c.OnClear(context.Background()); !errors.Is(err, store.ErrSendInFlight) {
		t.Errorf("Expected ErrSendInFlight for clear during send, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first OnSend() error: %v", err)
	}
	if c.Store().Pending() {
		t.Error("Expected pending=false after the send resolved")
	}
	if len(ft.posts) != 1 {
		t.Errorf("Expected a single request, got %v", ft.posts)
	}
}

func TestOnSend_TrimsText(t *testing.T) {
	ft := &fakeTransport{}
	c, _ := newTestController(ft)
	if err := c.OnSend(context.Background(), "  what are my rights?\n"); err != nil {
		t.Fatalf("OnSend() error: %v", err)
	}
	if ft.posts[0] != "what are my rights?" {
		t.Errorf("Expected trimmed text to be sent, got %q", ft.posts[0])
	}
	if got := c.Store().Snapshot().History[0].Text; got != "what are my rights?" {
		t.Errorf("Expected trimmed text in history, got %q", got)
	}
}

func TestOnSend_NSuccessfulSends(t *testing.T) {
	ft := &fakeTransport{
		fetch: func(context.Context, string) ([]chat.Message, error) {
			return []chat.Message{chat.NewUserMessage("q", clientNow), chat.NewAssistantMessage("a", clientNow)}, nil
		},
	}
	c, _ := newTestController(ft)
	_ = c.OnMount(context.Background())

	const n = 4
	for i := 0; i < n; i++ {
		if err := c.OnSend(context.Background(), "question"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if got := c.Store().Len(); got != 2+2*n {
		t.Errorf("Expected %d messages, got %d", 2+2*n, got)
	}
}

func TestPendingOnlyDuringSend(t *testing.T) {
	var sawPending []bool
	var c *Controller
	ft := &fakeTransport{
		fetch: func(context.Context, string) ([]chat.Message, error) {
			sawPending = append(sawPending, c.Store().Pending())
			return []chat.Message{chat.NewUserMessage("q", clientNow)}, nil
		},
		post: func(context.Context, string, string) (chat.Message, error) {
			sawPending = append(sawPending, c.Store().Pending())
			return chat.NewAssistantMessage("a", clientNow), nil
		},
		delete: func(context.Context, string) error {
			sawPending = append(sawPending, c.Store().Pending())
			return nil
		},
	}
	c, _ = newTestController(ft)

	_ = c.OnMount(context.Background())
	_ = c.OnSend(context.Background(), "hi")
	_ = c.OnClear(context.Background())

	want := []bool{false, true, false}
	if diff := cmp.Diff(want, sawPending); diff != "" {
		t.Errorf("Pending observed during calls (-want +got):\n%s", diff)
	}
}

func TestOnMount_FailureStartsFresh(t *testing.T) {
	ft := &fakeTransport{
		fetch: func(context.Context, string) ([]chat.Message, error) {
			return nil, &transport.ServiceError{Status: 500, Detail: "db down"}
		},
	}
	c, n := newTestController(ft)

	if err := c.OnMount(context.Background()); err == nil {
		t.Fatal("Expected mount error to be returned for logging")
	}
	if c.Store().Len() != 0 {
		t.Error("Expected empty history after failed load")
	}
	if len(n.all()) != 0 {
		t.Errorf("Expected no user-facing notification, got %+v", n.all())
	}
}

func TestOnClear_Success(t *testing.T) {
	deleted := false
	ft := &fakeTransport{delete: func(context.Context, string) error {
		deleted = true
		return nil
	}}
	c, n := newTestController(ft)
	_ = c.OnSend(context.Background(), "hi")

	if err := c.OnClear(context.Background()); err != nil {
		t.Fatalf("OnClear() error: %v", err)
	}
	if !deleted {
		t.Error("Expected DeleteHistory to be called")
	}
	if c.Store().Len() != 0 {
		t.Error("Expected history to be empty after clear")
	}
	want := []Notification{{Level: LevelSuccess, Text: errmsg.HistoryCleared}}
	if diff := cmp.Diff(want, n.all()); diff != "" {
		t.Errorf("Notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestOnClear_FailureLeavesHistory(t *testing.T) {
	ft := &fakeTransport{delete: func(context.Context, string) error {
		return &transport.ServiceError{Status: 500}
	}}
	c, n := newTestController(ft)
	_ = c.OnSend(context.Background(), "hi")
	before := c.Store().Snapshot()

	if err := c.OnClear(context.Background()); err == nil {
		t.Fatal("Expected clear error")
	}
	if diff := cmp.Diff(before, c.Store().Snapshot()); diff != "" {
		t.Errorf("History changed after failed clear (-before +after):\n%s", diff)
	}
	want := []Notification{{Level: LevelError, Text: errmsg.HistoryClearFailed}}
	if diff := cmp.Diff(want, n.all()); diff != "" {
		t.Errorf("Notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestOnClear_EmptyHistoryIsNoop(t *testing.T) {
	called := false
	ft := &fakeTransport{delete: func(context.Context, string) error {
		called = true
		return nil
	}}
	c, _ := newTestController(ft)
	if err := c.OnClear(context.Background()); !errors.Is(err, ErrNothingToClear) {
		t.Errorf("Expected ErrNothingToClear, got %v", err)
	}
	if called {
		t.Error("Expected no delete request for empty history")
	}
}

func TestOnReload(t *testing.T) {
	calls := 0
	ft := &fakeTransport{fetch: func(context.Context, string) ([]chat.Message, error) {
		calls++
		if calls == 1 {
			return []chat.Message{chat.NewUserMessage("q", clientNow)}, nil
		}
		return nil, &transport.NetworkError{Err: errors.New("offline")}
	}}
	c, n := newTestController(ft)

	if err := c.OnReload(context.Background()); err != nil {
		t.Fatalf("OnReload() error: %v", err)
	}
	if c.Store().Len() != 1 {
		t.Errorf("Expected reloaded history, got %d messages", c.Store().Len())
	}

	if err := c.OnReload(context.Background()); err == nil {
		t.Fatal("Expected reload error")
	}
	if c.Store().Len() != 1 {
		t.Error("Failed reload must keep the current history")
	}
	notes := n.all()
	if len(notes) != 2 || notes[1].Level != LevelError || notes[1].Text != errmsg.Unreachable {
		t.Errorf("Unexpected notifications %+v", notes)
	}
}
