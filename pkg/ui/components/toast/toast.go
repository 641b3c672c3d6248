// Package toast keeps short-lived notifications shown above the input.
package toast

import (
	"strings"
	"time"

	"lawchat/pkg/controller"
	"lawchat/pkg/ui/components/utils"
	"lawchat/pkg/ui/styles"

	"charm.land/lipgloss/v2"
)

const (
	// DefaultTTL is how long a toast stays visible.
	DefaultTTL = 4 * time.Second
	maxVisible = 3
)

// Toast is one visible notification.
type Toast struct {
	Level   controller.Level
	Text    string
	Expires time.Time
}

// Stack holds the active toasts, oldest first.
type Stack struct {
	items []Toast
	ttl   time.Duration
}

// NewStack creates a stack whose toasts live for ttl.
func NewStack(ttl time.Duration) *Stack {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Stack{ttl: ttl}
}

// TTL returns the lifetime of new toasts.
func (s *Stack) TTL() time.Duration {
	return s.ttl
}

// Push adds n. Repeating the newest toast only extends its lifetime.
func (s *Stack) Push(n controller.Notification, now time.Time) {
	expires := now.Add(s.ttl)
	if last := len(s.items) - 1; last >= 0 && s.items[last].Text == n.Text && s.items[last].Level == n.Level {
		s.items[last].Expires = expires
		return
	}
	s.items = append(s.items, Toast{Level: n.Level, Text: n.Text, Expires: expires})
	if len(s.items) > maxVisible {
		s.items = s.items[len(s.items)-maxVisible:]
	}
}

// Expire drops toasts that expired at or before now and reports whether
// anything changed.
func (s *Stack) Expire(now time.Time) bool {
	kept := s.items[:0]
	for _, t := range s.items {
		if now.Before(t.Expires) {
			kept = append(kept, t)
		}
	}
	changed := len(kept) != len(s.items)
	s.items = kept
	return changed
}

// Items returns the active toasts.
func (s *Stack) Items() []Toast {
	return s.items
}

// Height is the number of lines View renders.
func (s *Stack) Height() int {
	return len(s.items)
}

// View renders one line per toast, right aligned within width.
func (s *Stack) View(width int) string {
	if len(s.items) == 0 || width <= 0 {
		return ""
	}
	lines := make([]string, 0, len(s.items))
	for _, t := range s.items {
		text := utils.Ellipsize(utils.SingleLine(t.Text), max(width-2, 1))
		line := styleFor(t.Level).Render(text)
		lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Right, line))
	}
	return strings.Join(lines, "\n")
}

func styleFor(level controller.Level) lipgloss.Style {
	switch level {
	case controller.LevelError:
		return styles.ToastErrorStyle
	case controller.LevelSuccess:
		return styles.ToastSuccessStyle
	default:
		return styles.ToastInfoStyle
	}
}
