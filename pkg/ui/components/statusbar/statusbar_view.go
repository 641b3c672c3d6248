package statusbar

import (
	"fmt"
	"net/url"
	"strings"

	"lawchat/pkg/ui/styles"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

// Phase is the conversation state shown in the status bar.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseWaiting
	PhaseBusy
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseWaiting:
		return "waiting for reply"
	case PhaseBusy:
		return "working"
	default:
		return "ready"
	}
}

const hint = "/help for commands"

// StatusBarView handles the status bar rendering with Lipgloss
type StatusBarView struct {
	session  string
	server   string
	messages int
	phase    Phase
	message  string
	width    int
	style    lipgloss.Style
}

// NewStatusBarView creates a new status bar view
func NewStatusBarView() *StatusBarView {
	return &StatusBarView{
		width: 80,
		style: styles.StatusBarStyle,
	}
}

// SetSession updates the session id
func (s *StatusBarView) SetSession(id string) {
	s.session = strings.TrimSpace(id)
}

// SetServer updates the service shown. Only the host is displayed.
func (s *StatusBarView) SetServer(baseURL string) {
	s.server = serverLabel(baseURL)
}

// SetMessageCount updates the number of messages in the conversation.
func (s *StatusBarView) SetMessageCount(n int) {
	s.messages = n
}

// SetPhase updates the conversation phase
func (s *StatusBarView) SetPhase(p Phase) {
	s.phase = p
}

// SetMessage sets a temporary message that replaces the hint
func (s *StatusBarView) SetMessage(msg string) {
	s.message = msg
}

// SetWidth updates the width for rendering
func (s *StatusBarView) SetWidth(width int) {
	s.width = width
}

// SetTheme changes the status bar colors
func (s *StatusBarView) SetTheme(theme string) {
	s.style = styles.StatusBarTheme(theme)
}

// Render returns the styled status bar string
func (s *StatusBarView) Render() string {
	parts := []string{"[lawchat] " + s.phase.String()}
	if s.session != "" {
		parts = append(parts, "session "+s.session)
	}
	parts = append(parts, fmt.Sprintf("%d msgs", s.messages))
	if s.server != "" {
		parts = append(parts, s.server)
	}
	if s.message != "" {
		parts = append(parts, s.message)
	} else {
		parts = append(parts, hint)
	}
	content := strings.Join(parts, " | ")

	// Truncate if too long (ANSI-aware width).
	maxWidth := s.width - 2
	if maxWidth < 10 {
		maxWidth = 10
	}
	if ansi.StringWidth(content) > maxWidth {
		content = ansi.Truncate(content, maxWidth, "...")
	}

	// Padding(0, 1) adds one cell on each side.
	styled := s.style.Render(content)
	if pad := s.width - ansi.StringWidth(content) - 2; pad > 0 {
		styled += strings.Repeat(" ", pad)
	}
	return styled
}

func serverLabel(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}
