// Package ui is the full-screen chat client built on Bubble Tea.
package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"lawchat/pkg/chat"
	"lawchat/pkg/commands"
	"lawchat/pkg/controller"
	"lawchat/pkg/store"
	"lawchat/pkg/ui/components/statusbar"
	"lawchat/pkg/ui/components/toast"
	"lawchat/pkg/ui/components/transcript"
	"lawchat/pkg/ui/components/welcome"
	"lawchat/pkg/ui/styles"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

const (
	inputHeight = 3
	// input box border plus status bar
	chromeHeight = inputHeight + 2 + 1

	placeholderLoading = "Loading conversation..."
	placeholderWaiting = "Waiting for the assistant..."
	placeholderReady   = "Ask about your consumer rights (/help for commands)"
)

// Model represents the Bubble Tea application state
type Model struct {
	ctx        context.Context
	ctrl       *controller.Controller
	bridge     *Bridge
	dispatcher *commands.Dispatcher
	clipboard  io.Writer
	logger     *slog.Logger
	now        func() time.Time

	// UI Components
	transcript *transcript.Transcript
	input      textarea.Model
	spinner    spinner.Model
	statusBar  *statusbar.StatusBarView
	toasts     *toast.Stack
	notice     string

	// Data
	state chat.State

	// UI state
	width   int
	height  int
	ready   bool
	mounted bool
	busy    bool // a slash command is running
	sending bool // a send was submitted; cleared by sendDoneMsg
}

// Option customizes a Model.
type Option func(*Model)

// WithClock sets the clock used for toast expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithClipboard sets where /copy writes its OSC 52 sequence.
func WithClipboard(w io.Writer) Option {
	return func(m *Model) { m.clipboard = w }
}

// WithTheme sets the status bar theme.
func WithTheme(theme string) Option {
	return func(m *Model) { m.statusBar.SetTheme(theme) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithContext sets the context passed to controller calls.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// NewModel creates the chat model. bridge must already be attached to the
// controller's store and used as its notifier.
func NewModel(ctrl *controller.Controller, bridge *Bridge, baseURL string, opts ...Option) Model {
	input := textarea.New()
	input.ShowLineNumbers = false
	input.Prompt = "> "
	input.Placeholder = placeholderLoading
	input.CharLimit = 0
	input.SetHeight(inputHeight)

	sb := statusbar.NewStatusBarView()
	sb.SetSession(ctrl.SessionID())
	sb.SetServer(baseURL)

	tr := transcript.New()
	tr.SetEmptyView(welcome.WelcomeMessage())

	m := Model{
		ctx:        context.Background(),
		ctrl:       ctrl,
		bridge:     bridge,
		dispatcher: commands.NewDispatcher(),
		logger:     slog.Default(),
		now:        time.Now,
		transcript: tr,
		input:      input,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.TitleStyle)),
		statusBar:  sb,
		toasts:     toast.NewStack(toast.DefaultTTL),
		state:      ctrl.Store().Snapshot(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the model (Bubble Tea lifecycle method)
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.bridge.Listen(),
		mountCmd(m.ctx, m.ctrl),
	)
}

// Message types

type mountDoneMsg struct{ err error }

type sendDoneMsg struct{ err error }

type commandDoneMsg struct{ result *commands.Result }

type toastExpireMsg struct{}

func mountCmd(ctx context.Context, ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		return mountDoneMsg{err: ctrl.OnMount(ctx)}
	}
}

func sendCmd(ctx context.Context, ctrl *controller.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: ctrl.OnSend(ctx, text)}
	}
}

func (m Model) commandCmd(name string) tea.Cmd {
	cmdCtx := commands.NewContext(m.ctx, m.ctrl)
	if m.clipboard != nil {
		cmdCtx.Clipboard = m.clipboard
	}
	d := m.dispatcher
	return func() tea.Msg {
		return commandDoneMsg{result: d.Dispatch(name, cmdCtx)}
	}
}

func expireCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return toastExpireMsg{} })
}

// Update handles messages and updates model state (Bubble Tea lifecycle method)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.PasteMsg:
		if !m.inputEnabled() {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case bridgeMsg:
		cmds := []tea.Cmd{m.bridge.Listen()}
		if msg.state != nil {
			wasPending := m.state.Pending
			m.state = *msg.state
			if m.state.Pending && !wasPending {
				cmds = append(cmds, m.spinner.Tick)
			}
			m.syncState()
		}
		if len(msg.notes) > 0 {
			now := m.now()
			for _, n := range msg.notes {
				m.toasts.Push(n, now)
			}
			cmds = append(cmds, expireCmd(m.toasts.TTL()))
			m.layout()
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.state.Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.transcript.SetPending(true, m.spinner.View())
		return m, cmd

	case mountDoneMsg:
		m.mounted = true
		if msg.err != nil {
			m.logger.Debug("mount_failed_starting_fresh", "error", msg.err)
		}
		m.syncState()
		return m, m.input.Focus()

	case sendDoneMsg:
		m.sending = false
		if errors.Is(msg.err, store.ErrSendInFlight) {
			m.logger.Debug("send_rejected", "error", msg.err)
		}
		m.syncState()
		return m, m.input.Focus()

	case commandDoneMsg:
		m.busy = false
		res := msg.result
		if res != nil && res.Action == commands.ActionQuit {
			m.bridge.Close()
			return m, tea.Quit
		}
		if res != nil && res.Content != "" {
			m.notice = res.Content
		}
		m.syncState()
		return m, m.input.Focus()

	case toastExpireMsg:
		if m.toasts.Expire(m.now()) {
			m.layout()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "ctrl+d":
		m.bridge.Close()
		return m, tea.Quit
	case "pgup":
		m.transcript.PageUp()
		return m, nil
	case "pgdown":
		m.transcript.PageDown()
		return m, nil
	case "ctrl+end":
		m.transcript.GotoBottom()
		return m, nil
	case "esc":
		if m.notice != "" {
			m.notice = ""
			m.layout()
		}
		return m, nil
	case "enter":
		return m.submit()
	case "shift+enter", "alt+enter":
		if m.inputEnabled() {
			m.input.InsertString("\n")
		}
		return m, nil
	}

	if !m.inputEnabled() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.inputEnabled() {
		return m, nil
	}
	text := m.input.Value()
	if chat.IsBlank(text) {
		return m, nil
	}

	m.input.Reset()
	m.notice = ""

	if commands.IsCommand(text) {
		m.busy = true
		m.syncState()
		return m, m.commandCmd(strings.TrimSpace(text))
	}

	m.sending = true
	m.syncState()
	m.transcript.GotoBottom()
	return m, sendCmd(m.ctx, m.ctrl, text)
}

// inputEnabled reports whether the user may type and send.
func (m Model) inputEnabled() bool {
	return m.mounted && !m.state.Pending && !m.sending && !m.busy
}

func (m *Model) syncState() {
	m.transcript.SetMessages(m.state.History)
	frame := ""
	if m.state.Pending {
		frame = m.spinner.View()
	}
	m.transcript.SetPending(m.state.Pending, frame)

	m.statusBar.SetMessageCount(len(m.state.History))
	switch {
	case !m.mounted:
		m.statusBar.SetPhase(statusbar.PhaseLoading)
		m.input.Placeholder = placeholderLoading
	case m.state.Pending, m.sending:
		m.statusBar.SetPhase(statusbar.PhaseWaiting)
		m.input.Placeholder = placeholderWaiting
	case m.busy:
		m.statusBar.SetPhase(statusbar.PhaseBusy)
		m.input.Placeholder = placeholderWaiting
	default:
		m.statusBar.SetPhase(statusbar.PhaseReady)
		m.input.Placeholder = placeholderReady
	}
	if !m.inputEnabled() {
		m.input.Blur()
	}
	m.layout()
}

func (m *Model) noticeView() string {
	if m.notice == "" || m.width <= 0 {
		return ""
	}
	return styles.NoticeStyle.Width(m.width).Render(m.notice + "\n(Esc to dismiss)")
}

// layout distributes the height between the panes.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	m.statusBar.SetWidth(m.width)
	m.input.SetWidth(max(m.width-2, 1))

	used := chromeHeight + m.toasts.Height()
	if notice := m.noticeView(); notice != "" {
		used += lipgloss.Height(notice)
	}
	m.transcript.SetSize(m.width, max(m.height-used, 1))
}

// View renders the UI (Bubble Tea lifecycle method)
func (m Model) View() tea.View {
	if !m.ready {
		return tea.NewView("Initializing...")
	}

	sections := []string{m.transcript.View()}
	if notice := m.noticeView(); notice != "" {
		sections = append(sections, notice)
	}
	if toasts := m.toasts.View(m.width); toasts != "" {
		sections = append(sections, toasts)
	}

	box := styles.InputBoxStyle
	if !m.inputEnabled() {
		box = styles.InputBoxDisabledStyle
	}
	sections = append(sections, box.Width(m.width).Render(m.input.View()))
	sections = append(sections, m.statusBar.Render())

	v := tea.NewView(lipgloss.JoinVertical(lipgloss.Left, sections...))
	v.AltScreen = true
	v.WindowTitle = "lawchat"
	return v
}
