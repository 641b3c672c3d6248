// Package chat holds the conversation data model shared by the client core.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ParseRole normalizes a wire role. Unknown roles return false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Message is a single entry of a session's history.
type Message struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// NewUserMessage builds a user-authored message stamped at ts.
func NewUserMessage(text string, ts time.Time) Message {
	return Message{Role: RoleUser, Text: text, Timestamp: ts}
}

// NewAssistantMessage builds an assistant-authored message stamped at ts.
func NewAssistantMessage(text string, ts time.Time) Message {
	return Message{Role: RoleAssistant, Text: text, Timestamp: ts}
}

// IsBlank reports whether text has no visible content.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Timestamp layouts accepted from the service, most specific first.
// Python's isoformat() omits the offset for naive datetimes.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without an offset are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("chat: invalid timestamp %q", s)
}

// WireMessage is the JSON shape of a history entry.
type WireMessage struct {
	ID        string `json:"id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ToMessage validates w and converts it to a Message.
func (w WireMessage) ToMessage() (Message, error) {
	role, ok := ParseRole(w.Role)
	if !ok {
		return Message{}, fmt.Errorf("chat: unknown role %q", w.Role)
	}
	if IsBlank(w.Message) {
		return Message{}, fmt.Errorf("chat: empty %s message", role)
	}
	var ts time.Time
	if w.Timestamp != "" {
		parsed, err := ParseTimestamp(w.Timestamp)
		if err != nil {
			return Message{}, err
		}
		ts = parsed
	}
	return Message{Role: role, Text: w.Message, Timestamp: ts}, nil
}

// MarshalJSON encodes m in the wire shape.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(WireMessage{
		Role:      string(m.Role),
		Message:   m.Text,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON decodes m from the wire shape.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w WireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	msg, err := w.ToMessage()
	if err != nil {
		return err
	}
	*m = msg
	return nil
}

// State is the client-side view of a conversation.
type State struct {
	SessionID string
	History   []Message
	Pending   bool
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{SessionID: s.SessionID, Pending: s.Pending}
	if s.History != nil {
		out.History = make([]Message, len(s.History))
		copy(out.History, s.History)
	}
	return out
}

// LastAssistant returns the most recent assistant message, if any.
func (s State) LastAssistant() (Message, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAssistant {
			return s.History[i], true
		}
	}
	return Message{}, false
}
