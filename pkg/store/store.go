// Package store owns the client's ConversationState. State only changes
// through the named transitions below; invalid transitions are rejected and
// leave the state untouched.
package store

import (
	"errors"
	"sync"

	"lawchat/pkg/chat"
)

var (
	ErrSendInFlight  = errors.New("store: a send is already in flight")
	ErrNoPendingSend = errors.New("store: no send is in flight")
	ErrEmptyMessage  = errors.New("store: message text is empty")
	ErrInvalidRole   = errors.New("store: message has the wrong role for this transition")
)

// Observer receives a copy of the state after each accepted transition.
type Observer func(chat.State)

// Store is the conversation state machine. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex // guards state and observers
	writeMu   sync.Mutex // serializes transitions and their notifications
	state     chat.State
	observers []Observer
	sessionID string
}

// New creates an empty, idle store for sessionID.
func New(sessionID string) *Store {
	return &Store{state: chat.State{SessionID: sessionID}, sessionID: sessionID}
}

// Observe registers fn. Observers run synchronously, in transition order, and
// must not call transitions themselves.
func (s *Store) Observe(fn Observer) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() chat.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Pending reports whether a send is in flight.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Pending
}

// Len returns the number of messages in the history.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.History)
}

// SessionID returns the immutable session identifier.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Hydrate replaces the history wholesale with msgs.
func (s *Store) Hydrate(msgs []chat.Message) error {
	return s.apply(func(st *chat.State) error {
		if st.Pending {
			return ErrSendInFlight
		}
		history := make([]chat.Message, len(msgs))
		copy(history, msgs)
		st.History = history
		st.Pending = false
		return nil
	})
}

// OptimisticAppend shows a user message before the service has confirmed it.
func (s *Store) OptimisticAppend(msg chat.Message) error {
	return s.apply(func(st *chat.State) error {
		if st.Pending {
			return ErrSendInFlight
		}
		if msg.Role != chat.RoleUser {
			return ErrInvalidRole
		}
		if chat.IsBlank(msg.Text) {
			return ErrEmptyMessage
		}
		st.History = append(st.History, msg)
		st.Pending = true
		return nil
	})
}

// ConfirmReply appends the assistant's reply and ends the pending send.
func (s *Store) ConfirmReply(msg chat.Message) error {
	return s.apply(func(st *chat.State) error {
		if !st.Pending {
			return ErrNoPendingSend
		}
		if msg.Role != chat.RoleAssistant {
			return ErrInvalidRole
		}
		if chat.IsBlank(msg.Text) {
			return ErrEmptyMessage
		}
		st.History = append(st.History, msg)
		st.Pending = false
		return nil
	})
}

// RollbackLastAppend removes the unconfirmed user message and ends the pending send.
func (s *Store) RollbackLastAppend() error {
	return s.apply(func(st *chat.State) error {
		if !st.Pending {
			return ErrNoPendingSend
		}
		if n := len(st.History); n > 0 {
			st.History = st.History[:n-1]
		}
		st.Pending = false
		return nil
	})
}

// Clear empties the history after the service has deleted it.
func (s *Store) Clear() error {
	return s.apply(func(st *chat.State) error {
		if st.Pending {
			return ErrSendInFlight
		}
		st.History = nil
		st.Pending = false
		return nil
	})
}

func (s *Store) apply(transition func(*chat.State) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := s.state.Clone()
	if err := transition(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	snapshot := next.Clone()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	return nil
}
