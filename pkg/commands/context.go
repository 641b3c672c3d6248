package commands

import (
	"context"
	"io"
	"os"

	"lawchat/pkg/chat"
	"lawchat/pkg/controller"
)

// Context contains everything a command needs to run.
type Context struct {
	Ctx        context.Context
	Controller *controller.Controller
	// Clipboard receives OSC 52 sequences. Defaults to stdout.
	Clipboard io.Writer
	// Commands lists the registered commands, for /help.
	Commands []Handler
}

// NewContext creates a command context for ctrl.
func NewContext(ctx context.Context, ctrl *controller.Controller) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Ctx:        ctx,
		Controller: ctrl,
		Clipboard:  os.Stdout,
	}
}

// State returns the current conversation state.
func (c *Context) State() chat.State {
	if c.Controller == nil {
		return chat.State{}
	}
	return c.Controller.Store().Snapshot()
}
