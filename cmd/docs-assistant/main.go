// Package main runs the MCP documentation assistant: the chat front end,
// the MCP endpoint and, optionally, the MCP stdio transport.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/bull/mcp-docs-assistant/internal/app"
	"github.com/bull/mcp-docs-assistant/internal/config"
	"github.com/bull/mcp-docs-assistant/internal/logger"
	mcpserver "github.com/bull/mcp-docs-assistant/internal/mcp"
	"github.com/bull/mcp-docs-assistant/internal/server"
)

var version = "dev"

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "docs-assistant: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("docs-assistant", pflag.ExitOnError)
	config.AddFlags(fs)
	stdio := fs.Bool("stdio", false, "Also serve MCP over stdin/stdout")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	// stdout belongs to the MCP transport in stdio mode.
	var out io.Writer = os.Stdout
	if *stdio {
		out = os.Stderr
	}
	log := logger.New(append(logger.FromFormat(cfg.LogFormat, cfg.Debug), logger.WithWriter(out))...)
	slog.SetDefault(log)

	if err := cfg.RequireOpenAI(); err != nil {
		return err
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	components, err := app.Build(cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	// The index must be ready before the first request is accepted.
	log.Info("Starting system initialization")
	components.Prepare(ctx)
	engine := components.LoadEngine(ctx)
	log.Info("System initialization complete", "ready", engine.Ready())

	mcp := mcpserver.NewServer(&mcpserver.Config{Engine: engine, Version: version})
	srv := server.NewServer(server.Config{
		ListenAddr: fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Engine:     engine,
		MCP:        mcpserver.NewHTTPHandler(mcp, nil),
		Logger:     log,
	})

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Run() }()

	if *stdio {
		go func() {
			if err := runStdio(ctx, mcp.Run, log); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err = <-errCh:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			log.Error("Server stopped", "error", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Error("Shutdown failed", "error", serr)
	}
	return err
}

// runStdio serves MCP over stdin/stdout. When the client closes stdin only
// the stdio session ends; the HTTP front end keeps serving.
func runStdio(ctx context.Context, run func(context.Context) error, log *slog.Logger) error {
	log.Info("Serving MCP over stdio")
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	log.Info("MCP stdio session closed")
	return nil
}
