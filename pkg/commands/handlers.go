package commands

import (
	"errors"
	"fmt"
	"strings"

	"lawchat/pkg/controller"
	"lawchat/pkg/store"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

// ClearHandler handles the /clear command
type ClearHandler struct{}

func (h *ClearHandler) Name() string        { return "/clear" }
func (h *ClearHandler) Description() string { return "Delete this conversation on the server" }

func (h *ClearHandler) Execute(ctx *Context) *Result {
	err := ctx.Controller.OnClear(ctx.Ctx)
	switch {
	case err == nil:
		return &Result{Title: "Clear"}
	case errors.Is(err, controller.ErrNothingToClear):
		return &Result{Title: "Clear", Content: "Nothing to clear."}
	case errors.Is(err, store.ErrSendInFlight):
		return &Result{Title: "Clear", Content: "Wait for the current reply before clearing.", Error: err}
	default:
		// The controller already notified the user.
		return &Result{Title: "Clear", Error: err}
	}
}

// ReloadHandler handles the /reload command
type ReloadHandler struct{}

func (h *ReloadHandler) Name() string        { return "/reload" }
func (h *ReloadHandler) Description() string { return "Reload the conversation from the server" }

func (h *ReloadHandler) Execute(ctx *Context) *Result {
	return &Result{Title: "Reload", Error: ctx.Controller.OnReload(ctx.Ctx)}
}

// CopyHandler handles the /copy command
type CopyHandler struct{}

func (h *CopyHandler) Name() string        { return "/copy" }
func (h *CopyHandler) Description() string { return "Copy the last reply to the clipboard" }

func (h *CopyHandler) Execute(ctx *Context) *Result {
	reply, ok := ctx.State().LastAssistant()
	if !ok {
		return &Result{Title: "Copy", Content: "No reply to copy yet."}
	}
	if ctx.Clipboard == nil {
		return &Result{Title: "Copy", Content: "Clipboard is not available.", Error: errors.New("no clipboard writer")}
	}
	if _, err := fmt.Fprint(ctx.Clipboard, osc52.New(reply.Text)); err != nil {
		return &Result{Title: "Copy", Content: "Failed to copy to the clipboard.", Error: err}
	}
	return &Result{Title: "Copy", Content: "Copied the last reply to the clipboard."}
}

// SessionHandler handles the /session command
type SessionHandler struct{}

func (h *SessionHandler) Name() string        { return "/session" }
func (h *SessionHandler) Description() string { return "Show the session id" }

func (h *SessionHandler) Execute(ctx *Context) *Result {
	state := ctx.State()
	return &Result{
		Title: "Session",
		Content: fmt.Sprintf("Session: %s (%d messages)\nResume it with --session %s",
			state.SessionID, len(state.History), state.SessionID),
	}
}

// HelpHandler handles the /help command
type HelpHandler struct{}

func (h *HelpHandler) Name() string        { return "/help" }
func (h *HelpHandler) Description() string { return "Show help" }

func (h *HelpHandler) Execute(ctx *Context) *Result {
	var sb strings.Builder
	sb.WriteString("Ask any consumer-protection question and press Enter.\n\nCommands:\n")
	for _, cmd := range ctx.Commands {
		fmt.Fprintf(&sb, "  %-9s %s\n", cmd.Name(), cmd.Description())
	}
	return &Result{
		Title:   "Help",
		Content: strings.TrimRight(sb.String(), "\n"),
	}
}

// QuitHandler handles the /quit command
type QuitHandler struct{}

func (h *QuitHandler) Name() string        { return "/quit" }
func (h *QuitHandler) Description() string { return "Exit" }

func (h *QuitHandler) Execute(ctx *Context) *Result {
	return &Result{Title: "Quit", Action: ActionQuit}
}
