package rag

import (
	"context"
	"log/slog"

	"github.com/bull/mcp-docs-assistant/internal/embedding"
	"github.com/bull/mcp-docs-assistant/internal/index"
)

// SearcherFactory chooses the searcher for a loaded artifact. The default
// searches the artifact's in-memory index.
type SearcherFactory func(ctx context.Context, a *index.Artifact) (Searcher, error)

// LoadConfig describes where the artifacts live and which models answer.
type LoadConfig struct {
	Paths       index.Paths
	Embedder    embedding.Model
	Generator   Generator
	TopK        int
	NewSearcher SearcherFactory
	Logger      *slog.Logger
}

// Load reads the persisted artifacts and builds an engine over them. Load
// never fails: a missing, corrupt or incompatible artifact yields a disabled
// engine whose Status explains why.
func Load(ctx context.Context, cfg LoadConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	artifact, err := index.Load(cfg.Paths)
	if err != nil {
		logger.Error("Failed to load index", "index", cfg.Paths.Index, "metadata", cfg.Paths.Metadata, "error", err)
		return Disabled(err.Error(), logger)
	}

	var searcher Searcher = artifact.Index
	if cfg.NewSearcher != nil {
		searcher, err = cfg.NewSearcher(ctx, artifact)
		if err != nil {
			logger.Error("Failed to create searcher", "error", err)
			return Disabled(err.Error(), logger)
		}
	}

	engine, err := New(Config{
		Searcher:  searcher,
		Records:   artifact.Records,
		BuildID:   artifact.BuildID,
		Model:     artifact.Model,
		Embedder:  cfg.Embedder,
		Generator: cfg.Generator,
		TopK:      cfg.TopK,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to create query engine", "error", err)
		return Disabled(err.Error(), logger)
	}

	logger.Info("Loaded index",
		"chunks", len(artifact.Records),
		"build", artifact.BuildID,
		"model", artifact.Model,
	)
	return engine
}
