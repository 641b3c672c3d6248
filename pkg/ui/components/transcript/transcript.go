// Package transcript renders the conversation history as a scrollable list
// of wrapped, lightly formatted messages.
package transcript

import (
	"strings"
	"time"

	"lawchat/pkg/chat"
	"lawchat/pkg/ui/components/utils"
	"lawchat/pkg/ui/styles"
)

const (
	userLabel      = "You"
	assistantLabel = "Legal Assistant"
	typingLabel    = "Legal Assistant is typing"
	bodyIndent     = 2
)

// Transcript is the message pane.
type Transcript struct {
	messages []chat.Message
	pending  bool
	frame    string
	empty    string // shown when there are no messages

	width   int
	height  int
	lines   []string
	scrollY int
	follow  bool
	loc     *time.Location
}

// New creates an empty transcript that follows new output.
func New() *Transcript {
	return &Transcript{follow: true, loc: time.Local}
}

// SetLocation sets the zone used for timestamps.
func (t *Transcript) SetLocation(loc *time.Location) {
	if loc != nil {
		t.loc = loc
		t.reflow()
	}
}

// SetSize sets the pane size in cells.
func (t *Transcript) SetSize(width, height int) {
	if width == t.width && height == t.height {
		return
	}
	t.width = width
	t.height = height
	t.reflow()
}

// SetMessages replaces the rendered history.
func (t *Transcript) SetMessages(msgs []chat.Message) {
	t.messages = msgs
	t.reflow()
}

// SetPending toggles the typing indicator. frame is the spinner glyph.
func (t *Transcript) SetPending(pending bool, frame string) {
	if pending == t.pending && frame == t.frame {
		return
	}
	t.pending = pending
	t.frame = frame
	t.reflow()
}

// SetEmptyView sets the content shown before the first message.
func (t *Transcript) SetEmptyView(content string) {
	t.empty = content
	t.reflow()
}

// Lines returns the rendered lines.
func (t *Transcript) Lines() []string {
	return t.lines
}

// ScrollUp moves the view up by n lines.
func (t *Transcript) ScrollUp(n int) {
	t.scrollY -= n
	if t.scrollY < 0 {
		t.scrollY = 0
	}
	t.follow = false
}

// ScrollDown moves the view down by n lines. Reaching the bottom resumes
// following new messages.
func (t *Transcript) ScrollDown(n int) {
	t.scrollY += n
	if t.scrollY >= t.maxScroll() {
		t.scrollY = t.maxScroll()
		t.follow = true
	}
}

// PageUp scrolls one page up.
func (t *Transcript) PageUp() { t.ScrollUp(max(t.height-1, 1)) }

// PageDown scrolls one page down.
func (t *Transcript) PageDown() { t.ScrollDown(max(t.height-1, 1)) }

// GotoBottom jumps to the newest line.
func (t *Transcript) GotoBottom() {
	t.scrollY = t.maxScroll()
	t.follow = true
}

// AtBottom reports whether the newest line is visible.
func (t *Transcript) AtBottom() bool {
	return t.scrollY >= t.maxScroll()
}

// View renders exactly height lines of width cells.
func (t *Transcript) View() string {
	if t.height <= 0 || t.width <= 0 {
		return ""
	}
	out := make([]string, 0, t.height)
	end := min(t.scrollY+t.height, len(t.lines))
	for i := t.scrollY; i < end; i++ {
		out = append(out, utils.Pad(t.lines[i], t.width))
	}
	for len(out) < t.height {
		out = append(out, strings.Repeat(" ", t.width))
	}
	return strings.Join(out, "\n")
}

func (t *Transcript) reflow() {
	if t.width <= 0 {
		t.lines = nil
		t.scrollY = 0
		return
	}
	t.lines = t.render()
	if t.follow || t.scrollY > t.maxScroll() {
		t.scrollY = t.maxScroll()
	}
}

func (t *Transcript) render() []string {
	if len(t.messages) == 0 && !t.pending {
		if t.empty == "" {
			return nil
		}
		return strings.Split(strings.TrimRight(t.empty, "\n"), "\n")
	}

	bodyWidth := t.width - bodyIndent
	if bodyWidth < 1 {
		bodyWidth = 1
	}
	indent := strings.Repeat(" ", bodyIndent)

	var lines []string
	for i, msg := range t.messages {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, t.header(msg))
		for _, line := range renderMarkdown(msg.Text, bodyWidth) {
			lines = append(lines, indent+line)
		}
	}

	if t.pending {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		typing := typingLabel
		if t.frame != "" {
			typing = t.frame + " " + typing
		}
		lines = append(lines, styles.TextMutedStyle.Render(utils.Ellipsize(typing, t.width)))
	}
	return lines
}

func (t *Transcript) header(msg chat.Message) string {
	label, style := assistantLabel, styles.AssistantLabelStyle
	if msg.Role == chat.RoleUser {
		label, style = userLabel, styles.UserLabelStyle
	}
	stamp := ""
	if !msg.Timestamp.IsZero() {
		stamp = msg.Timestamp.In(t.loc).Format("15:04")
	}
	label = utils.Ellipsize(label, max(t.width-len(stamp)-1, 1))
	if stamp == "" {
		return style.Render(label)
	}
	return style.Render(label) + " " + styles.TimestampStyle.Render(stamp)
}

func (t *Transcript) maxScroll() int {
	return max(len(t.lines)-t.height, 0)
}
