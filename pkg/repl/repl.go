// Package repl is the line-oriented client used when stdin or stdout is not
// a terminal.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lawchat/pkg/chat"
	"lawchat/pkg/commands"
	"lawchat/pkg/controller"
)

const maxLineBytes = 1 << 20

// REPL reads one message or command per line and prints the conversation as
// plain text.
type REPL struct {
	in         io.Reader
	out        io.Writer
	prompt     string
	loc        *time.Location
	logger     *slog.Logger
	clipboard  io.Writer
	dispatcher *commands.Dispatcher

	mu    sync.Mutex
	shown int
}

// Option customizes a REPL.
type Option func(*REPL)

// WithPrompt sets the prompt written before each read. Empty disables it.
func WithPrompt(p string) Option {
	return func(r *REPL) { r.prompt = p }
}

// WithLocation sets the zone used for message times.
func WithLocation(loc *time.Location) Option {
	return func(r *REPL) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *REPL) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClipboard sets where /copy writes its OSC 52 sequence.
func WithClipboard(w io.Writer) Option {
	return func(r *REPL) { r.clipboard = w }
}

// New creates a REPL. It is also the controller's notifier, so build it
// before the controller and pass it to Run afterwards.
func New(in io.Reader, out io.Writer, opts ...Option) *REPL {
	r := &REPL{
		in:         in,
		out:        out,
		loc:        time.Local,
		logger:     slog.Default(),
		clipboard:  out,
		dispatcher: commands.NewDispatcher(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Notify implements controller.Notifier.
func (r *REPL) Notify(n controller.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s\n\n", n.Level, n.Text)
}

// Run loads the history and processes input until EOF, /quit or ctx is done.
func (r *REPL) Run(ctx context.Context, ctrl *controller.Controller) error {
	r.printBanner(ctrl.SessionID())

	if err := ctrl.OnMount(ctx); err == nil {
		r.printNew(ctrl.Store().Snapshot())
	}

	lines, scanErr := r.readLines(ctx)
	for {
		r.writePrompt()
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			if r.prompt != "" {
				r.write("\n")
			}
			return <-scanErr
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if commands.IsCommand(line) {
			if r.runCommand(ctx, ctrl, line) {
				return nil
			}
			continue
		}

		if err := ctrl.OnSend(ctx, line); err != nil {
			r.logger.Debug("repl_send_failed", "error", err)
		}
		r.printNew(ctrl.Store().Snapshot())
	}
}

// readLines scans r.in on its own goroutine so Run can stop on ctx.
func (r *REPL) readLines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (r *REPL) runCommand(ctx context.Context, ctrl *controller.Controller, name string) bool {
	cmdCtx := commands.NewContext(ctx, ctrl)
	cmdCtx.Clipboard = r.clipboard

	res := r.dispatcher.Dispatch(name, cmdCtx)
	if res.Action == commands.ActionQuit {
		return true
	}
	if res.Error != nil {
		r.logger.Debug("repl_command_failed", "command", name, "error", res.Error)
	}
	if res.Content != "" {
		r.write(res.Content + "\n\n")
	}
	if name == "/reload" && res.Error == nil {
		r.mu.Lock()
		r.shown = 0
		r.mu.Unlock()
	}
	r.printNew(ctrl.Store().Snapshot())
	return false
}

func (r *REPL) printBanner(sessionID string) {
	r.write(fmt.Sprintf("Consumer Protection Legal Assistant\nSession: %s\nType /help for commands. Answers are general information, not legal advice.\n\n", sessionID))
}

// printNew writes the messages added since the last call.
func (r *REPL) printNew(state chat.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(state.History) < r.shown {
		r.shown = len(state.History)
	}
	for _, msg := range state.History[r.shown:] {
		io.WriteString(r.out, r.formatMessage(msg))
	}
	r.shown = len(state.History)
}

func (r *REPL) formatMessage(msg chat.Message) string {
	label := "You"
	if msg.Role == chat.RoleAssistant {
		label = "Legal Assistant"
	}
	lines := strings.Split(strings.TrimRight(msg.Text, "\n"), "\n")

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]: %s\n", label, msg.Timestamp.In(r.loc).Format("15:04"), lines[0])
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString("  " + line + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func (r *REPL) writePrompt() {
	if r.prompt != "" {
		r.write(r.prompt)
	}
}

func (r *REPL) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.out, s)
}
