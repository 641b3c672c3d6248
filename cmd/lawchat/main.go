package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lawchat/pkg/config"
	"lawchat/pkg/controller"
	"lawchat/pkg/logging"
	"lawchat/pkg/repl"
	"lawchat/pkg/session"
	"lawchat/pkg/store"
	"lawchat/pkg/transport"
	"lawchat/pkg/ui"
	"lawchat/pkg/version"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version information and exit")
	baseURL := flag.String("base-url", "", "Chat service URL (overrides "+config.BaseURLEnv+" and the config file)")
	sessionID := flag.String("session", "", "Resume an existing session instead of starting a new one")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Line("lawchat"))
		return
	}

	if err := run(*baseURL, *sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "lawchat: %v\n", err)
		os.Exit(1)
	}
}

func run(baseURL, sessionID string) error {
	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	cfg = cfg.ApplyOverrides(os.Getenv, baseURL)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration (%s): %w", configPath, err)
	}

	logger, err := logging.Init(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	client, err := transport.NewClient(cfg.BaseURL, transport.WithTimeout(cfg.RequestTimeout()))
	if err != nil {
		return err
	}

	sid := session.Fixed(sessionID).ID()
	st := store.New(sid)
	logger.Info("client_starting", "version", version.Summary(), "session_id", sid, "base_url", client.BaseURL())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		prompt := ""
		if term.IsTerminal(int(os.Stdin.Fd())) {
			prompt = "> "
		}
		r := repl.New(os.Stdin, os.Stdout, repl.WithPrompt(prompt), repl.WithLogger(logger))
		ctrl := controller.New(st, client, r, controller.WithLogger(logger))
		if err := r.Run(ctx, ctrl); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	bridge := ui.NewBridge()
	bridge.Attach(st)
	ctrl := controller.New(st, client, bridge, controller.WithLogger(logger))

	model := ui.NewModel(ctrl, bridge, client.BaseURL(),
		ui.WithContext(ctx),
		ui.WithLogger(logger),
		ui.WithTheme(cfg.Theme),
	)
	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui error: %w", err)
	}
	logger.Info("client_exiting", "session_id", sid)
	return nil
}
