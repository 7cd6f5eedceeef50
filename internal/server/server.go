// Package server is the web front end: a chat page, the chat endpoint, a
// health check and the MCP endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	mcpserver "github.com/bull/mcp-docs-assistant/internal/mcp"
	"github.com/bull/mcp-docs-assistant/internal/rag"
)

// Engine answers chat messages and reports readiness.
type Engine interface {
	Ask(ctx context.Context, message string) rag.Answer
	Health(ctx context.Context) error
}

// Config holds the server's dependencies.
type Config struct {
	ListenAddr string
	Engine     Engine
	// MCP is mounted at /mcp when set.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	config Config
	engine Engine
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates the fiber app and registers the routes.
func NewServer(config Config) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		engine: config.Engine,
		logger: logger,
		app:    app,
	}

	app.Get("/", s.handleIndex)
	app.Post("/chat", s.handleChat)
	app.Get("/health", adaptor.HTTPHandlerFunc(mcpserver.NewHealthHandler(config.Engine)))
	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s
}

// Run starts the server on the configured address. It blocks until the
// server stops.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server",
		"listen", s.config.ListenAddr,
		"mcp", s.config.MCP != nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
