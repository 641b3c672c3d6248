package commands

import (
	"fmt"
	"sort"
	"strings"
)

// Action tells the front end to do something after a command ran.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
)

// Result represents the result of a command execution
type Result struct {
	Title   string
	Content string
	Error   error
	Action  Action
}

// Handler is the interface for command handlers
type Handler interface {
	Execute(ctx *Context) *Result
	Name() string
	Description() string
}

// Dispatcher routes commands to their handlers
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher creates a new command dispatcher
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
	}

	// Register default handlers
	d.Register(&ClearHandler{})
	d.Register(&ReloadHandler{})
	d.Register(&CopyHandler{})
	d.Register(&SessionHandler{})
	d.Register(&HelpHandler{})
	d.Register(&QuitHandler{})

	return d
}

// Register adds a handler to the dispatcher
func (d *Dispatcher) Register(h Handler) {
	d.handlers[h.Name()] = h
}

// IsCommand reports whether input is a slash command rather than a message.
func IsCommand(input string) bool {
	trimmed := strings.TrimSpace(input)
	return strings.HasPrefix(trimmed, "/") && !strings.ContainsAny(trimmed, " \n\t")
}

// Dispatch executes a command by name
func (d *Dispatcher) Dispatch(cmdName string, ctx *Context) *Result {
	cmdName = strings.ToLower(strings.TrimSpace(cmdName))
	handler, ok := d.handlers[cmdName]
	if !ok {
		return &Result{
			Title:   "Error",
			Content: "Unknown command: " + cmdName + ". Type /help for the list.",
			Error:   fmt.Errorf("unknown command %q", cmdName),
		}
	}

	if ctx.Commands == nil {
		ctx.Commands = d.Handlers()
	}
	return handler.Execute(ctx)
}

// GetHandler returns a handler by name
func (d *Dispatcher) GetHandler(cmdName string) (Handler, bool) {
	h, ok := d.handlers[cmdName]
	return h, ok
}

// Handlers returns the registered handlers sorted by name.
func (d *Dispatcher) Handlers() []Handler {
	out := make([]Handler, 0, len(d.handlers))
	for _, h := range d.handlers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
