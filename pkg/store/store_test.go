package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"lawchat/pkg/chat"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func user(text string) chat.Message      { return chat.NewUserMessage(text, t0) }
func assistant(text string) chat.Message { return chat.NewAssistantMessage(text, t0) }

func TestNew_IsEmptyAndIdle(t *testing.T) {
	s := New("session_1_abc")
	st := s.Snapshot()
	if st.SessionID != "session_1_abc" {
		t.Errorf("Expected session id to be kept, got %q", st.SessionID)
	}
	if len(st.History) != 0 || st.Pending {
		t.Errorf("Expected empty idle state, got %+v", st)
	}
}

func TestHydrate_ReplacesHistory(t *testing.T) {
	s := New("s")
	if err := s.Hydrate([]chat.Message{user("old")}); err != nil {
		t.Fatalf("Hydrate() error: %v", err)
	}
	loaded := []chat.Message{user("q"), assistant("a")}
	if err := s.Hydrate(loaded); err != nil {
		t.Fatalf("Hydrate() error: %v", err)
	}

	loaded[0].Text = "mutated after hydrate"
	want := []chat.Message{user("q"), assistant("a")}
	if diff := cmp.Diff(want, s.Snapshot().History); diff != "" {
		t.Errorf("History mismatch (-want +got):\n%s", diff)
	}
}

func TestSendCycle_Confirm(t *testing.T) {
	s := New("s")

	if err := s.OptimisticAppend(user("hi")); err != nil {
		t.Fatalf("OptimisticAppend() error: %v", err)
	}
	if !s.Pending() {
		t.Fatal("Expected pending after optimistic append")
	}
	if err := s.ConfirmReply(assistant("hello")); err != nil {
		t.Fatalf("ConfirmReply() error: %v", err)
	}

	st := s.Snapshot()
	if st.Pending {
		t.Error("Expected pending=false after confirm")
	}
	want := []chat.Message{user("hi"), assistant("hello")}
	if diff := cmp.Diff(want, st.History); diff != "" {
		t.Errorf("History mismatch (-want +got):\n%s", diff)
	}
}

func TestSendCycle_RollbackRestoresPriorHistory(t *testing.T) {
	s := New("s")
	prior := []chat.Message{user("q1"), assistant("a1")}
	if err := s.Hydrate(prior); err != nil {
		t.Fatalf("Hydrate() error: %v", err)
	}
	before := s.Snapshot()

	if err := s.OptimisticAppend(user("q2")); err != nil {
		t.Fatalf("OptimisticAppend() error: %v", err)
	}
	if err := s.RollbackLastAppend(); err != nil {
		t.Fatalf("RollbackLastAppend() error: %v", err)
	}

	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("State after rollback differs from state before send (-want +got):\n%s", diff)
	}
}

func TestInvalidTransitionsLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Store)
		op      func(*Store) error
		wantErr error
	}{
		{
			name:    "append while pending",
			setup:   func(s *Store) { _ = s.OptimisticAppend(user("first")) },
			op:      func(s *Store) error { return s.OptimisticAppend(user("second")) },
			wantErr: ErrSendInFlight,
		},
		{
			name:    "append empty",
			op:      func(s *Store) error { return s.OptimisticAppend(user("")) },
			wantErr: ErrEmptyMessage,
		},
		{
			name:    "append whitespace",
			op:      func(s *Store) error { return s.OptimisticAppend(user(" \t\n ")) },
			wantErr: ErrEmptyMessage,
		},
		{
			name:    "append assistant role",
			op:      func(s *Store) error { return s.OptimisticAppend(assistant("nope")) },
			wantErr: ErrInvalidRole,
		},
		{
			name:    "confirm without pending",
			op:      func(s *Store) error { return s.ConfirmReply(assistant("orphan")) },
			wantErr: ErrNoPendingSend,
		},
		{
			name:    "confirm with user role",
			setup:   func(s *Store) { _ = s.OptimisticAppend(user("q")) },
			op:      func(s *Store) error { return s.ConfirmReply(user("wrong")) },
			wantErr: ErrInvalidRole,
		},
		{
			name:    "confirm empty reply",
			setup:   func(s *Store) { _ = s.OptimisticAppend(user("q")) },
			op:      func(s *Store) error { return s.ConfirmReply(assistant("")) },
			wantErr: ErrEmptyMessage,
		},
		{
			name:    "rollback without pending",
			setup:   func(s *Store) { _ = s.Hydrate([]chat.Message{user("keep")}) },
			op:      func(s *Store) error { return s.RollbackLastAppend() },
			wantErr: ErrNoPendingSend,
		},
		{
			name:    "clear while pending",
			setup:   func(s *Store) { _ = s.OptimisticAppend(user("q")) },
			op:      func(s *Store) error { return s.Clear() },
			wantErr: ErrSendInFlight,
		},
		{
			name:    "hydrate while pending",
			setup:   func(s *Store) { _ = s.OptimisticAppend(user("q")) },
			op:      func(s *Store) error { return s.Hydrate(nil) },
			wantErr: ErrSendInFlight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("s")
			if tt.setup != nil {
				tt.setup(s)
			}
			before := s.Snapshot()

			err := tt.op(s)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
				t.Errorf("Rejected transition changed state (-before +after):\n%s", diff)
			}
		})
	}
}

func TestClear(t *testing.T) {
	s := New("s")
	_ = s.Hydrate([]chat.Message{user("q"), assistant("a")})
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if s.Len() != 0 || s.Pending() {
		t.Errorf("Expected empty idle state after clear, got %+v", s.Snapshot())
	}
}

func TestNSendsAlternate(t *testing.T) {
	s := New("s")
	_ = s.Hydrate([]chat.Message{user("q0"), assistant("a0")})
	initial := s.Len()

	const n = 5
	for i := 0; i < n; i++ {
		if err := s.OptimisticAppend(user("q")); err != nil {
			t.Fatalf("send %d: OptimisticAppend() error: %v", i, err)
		}
		if err := s.ConfirmReply(assistant("a")); err != nil {
			t.Fatalf("send %d: ConfirmReply() error: %v", i, err)
		}
	}

	st := s.Snapshot()
	if len(st.History) != initial+2*n {
		t.Fatalf("Expected %d messages, got %d", initial+2*n, len(st.History))
	}
	for i := initial; i < len(st.History); i++ {
		want := chat.RoleUser
		if (i-initial)%2 == 1 {
			want = chat.RoleAssistant
		}
		if st.History[i].Role != want {
			t.Errorf("Message %d: expected role %q, got %q", i, want, st.History[i].Role)
		}
	}
}

func TestObserve_ReceivesSnapshotsInOrder(t *testing.T) {
	s := New("s")
	var got []bool
	s.Observe(func(st chat.State) {
		got = append(got, st.Pending)
		// Reads from inside an observer must not deadlock.
		_ = s.Len()
	})

	_ = s.OptimisticAppend(user("q"))
	_ = s.OptimisticAppend(user("rejected"))
	_ = s.ConfirmReply(assistant("a"))

	want := []bool{true, false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Observer calls mismatch (-want +got):\n%s", diff)
	}
}

func TestObserve_SnapshotIsACopy(t *testing.T) {
	s := New("s")
	s.Observe(func(st chat.State) {
		if len(st.History) > 0 {
			st.History[0].Text = "mutated by observer"
		}
	})
	_ = s.OptimisticAppend(user("q"))
	if s.Snapshot().History[0].Text != "q" {
		t.Fatal("Observer mutated store state")
	}
}

func TestConcurrentAppendsAdmitOnlyOne(t *testing.T) {
	s := New("s")

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.OptimisticAppend(user("q")); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("Expected exactly one accepted send, got %d", accepted)
	}
	if s.Len() != 1 || !s.Pending() {
		t.Errorf("Expected one pending message, got %+v", s.Snapshot())
	}
}

func TestSessionID_StableDuringTransitions(t *testing.T) {
	s := New("session_1_abc")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.OptimisticAppend(user("q"))
			_ = s.ConfirmReply(assistant("a"))
			_ = s.Clear()
		}
	}()
	for i := 0; i < 200; i++ {
		if got := s.SessionID(); got != "session_1_abc" {
			t.Fatalf("SessionID() = %q", got)
		}
	}
	wg.Wait()

	if got := s.Snapshot().SessionID; got != "session_1_abc" {
		t.Errorf("Expected snapshot session id kept, got %q", got)
	}
}
