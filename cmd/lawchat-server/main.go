package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lawchat/pkg/ai"
	_ "lawchat/pkg/ai/providers"
	"lawchat/pkg/config"
	"lawchat/pkg/history"
	"lawchat/pkg/logging"
	"lawchat/pkg/server"
	"lawchat/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Print version information and exit")
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Line("lawchat-server"))
		return
	}

	if err := run(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "lawchat-server: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.LoadServer(envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var logger *slog.Logger
	if cfg.Log.File == "" {
		logger = logging.InitWriter(cfg.Log, os.Stdout)
	} else if logger, err = logging.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Info("server_starting", "version", version.Summary(), "provider", cfg.LLMProvider, "backend", cfg.HistoryBackend)

	prompt, err := ai.LoadSystemPrompt(cfg.SystemPromptPath)
	if err != nil {
		return err
	}

	llm, err := ai.GetProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := history.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	pruner := history.NewPruner(store, cfg.HistoryRetention, cfg.PruneSchedule, logger)
	if err := pruner.Start(); err != nil {
		return err
	}
	defer pruner.Stop()

	srv := server.New(store, llm,
		server.WithSystemPrompt(prompt),
		server.WithHistoryLimit(cfg.HistoryLimit),
		server.WithContextMessages(cfg.ContextMessages),
		server.WithCORSOrigins(cfg.CORSOrigins),
		server.WithLogger(logger),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
		return err
	}
	return nil
}
