package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bull/mcp-docs-assistant/internal/chunker"
	"github.com/bull/mcp-docs-assistant/internal/config"
	"github.com/bull/mcp-docs-assistant/internal/embedding"
	"github.com/bull/mcp-docs-assistant/internal/generation"
	"github.com/bull/mcp-docs-assistant/internal/github"
	"github.com/bull/mcp-docs-assistant/internal/index"
	"github.com/bull/mcp-docs-assistant/internal/indexer"
	"github.com/bull/mcp-docs-assistant/internal/rag"
	"github.com/bull/mcp-docs-assistant/internal/storage"
)

// Components are the collaborators built from the configuration.
type Components struct {
	Config    *config.Config
	Paths     index.Paths
	Embedder  embedding.Model
	Generator rag.Generator
	Fetcher   *github.Fetcher
	Pipeline  *indexer.Pipeline
	Logger    *slog.Logger

	mu      sync.Mutex
	closers []func() error
}

// Build creates the components for cfg. The chat generator is left nil when
// no OpenAI key is configured; an engine loaded without one is disabled.
func Build(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var openaiClient *embedding.Client
	if cfg.OpenAIAPIKey != "" {
		var err error
		openaiClient, err = embedding.NewClient(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
	}

	embedder, err := embedding.NewModel(embedding.Options{
		Provider:  cfg.EmbeddingProvider,
		Model:     cfg.EmbeddingModel,
		OpenAI:    openaiClient,
		OllamaURL: cfg.OllamaURL,
	})
	if err != nil {
		return nil, err
	}

	var generator rag.Generator
	if openaiClient != nil {
		temperature := cfg.ChatTemperature
		generator = generation.NewChatGenerator(openaiClient.Client(), generation.Config{
			Model:       cfg.ChatModel,
			Temperature: &temperature,
			Logger:      logger,
		})
	}

	ghClient, err := github.NewClient(cfg.GitHubToken)
	if err != nil {
		return nil, err
	}
	if cfg.GitHubToken == "" {
		logger.Warn("GITHUB_TOKEN not set, GitHub requests are unauthenticated")
	}

	paths := index.DefaultPaths(cfg.DataDir)
	return &Components{
		Config:    cfg,
		Paths:     paths,
		Embedder:  embedder,
		Generator: generator,
		Fetcher:   github.NewFetcher(ghClient, cfg.DataDir, nil, logger),
		Pipeline: indexer.NewPipeline(indexer.Config{
			DataDir:  cfg.DataDir,
			Paths:    paths,
			Chunker:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
			Embedder: embedder,
			Logger:   logger,
		}),
		Logger: logger,
	}, nil
}

// Prepare runs the startup preparation with the configured fetcher and
// pipeline.
func (c *Components) Prepare(ctx context.Context) *PrepareResult {
	return Prepare(ctx, c.Paths, c.Fetcher, c.Pipeline, c.Logger)
}

// LoadEngine loads the artifacts and builds the query engine over the
// configured vector backend. It never fails; see rag.Load.
func (c *Components) LoadEngine(ctx context.Context) *rag.Engine {
	if c.Generator == nil {
		return rag.Disabled(config.ErrMissingOpenAIKey.Error(), c.Logger)
	}

	lc := rag.LoadConfig{
		Paths:     c.Paths,
		Embedder:  c.Embedder,
		Generator: c.Generator,
		TopK:      c.Config.TopK,
		Logger:    c.Logger,
	}
	if c.Config.UsesQdrant() {
		lc.NewSearcher = c.qdrantSearcher
	}
	return rag.Load(ctx, lc)
}

// PublishQdrant pushes the local artifacts to Qdrant unless the collection
// already holds them.
func (c *Components) PublishQdrant(ctx context.Context) error {
	artifact, err := index.Load(c.Paths)
	if err != nil {
		return err
	}
	_, err = c.qdrantSearcher(ctx, artifact)
	return err
}

func (c *Components) qdrantSearcher(ctx context.Context, a *index.Artifact) (rag.Searcher, error) {
	store, err := storage.NewQdrantStorage(c.Config.QdrantHost, c.Config.QdrantPort)
	if err != nil {
		return nil, err
	}

	idx := store.Index(a.BuildID, a.Index.Dim(), c.Logger)
	if err := idx.Sync(ctx, a); err != nil {
		store.Close()
		return nil, err
	}

	c.mu.Lock()
	c.closers = append(c.closers, store.Close)
	c.mu.Unlock()
	return idx, nil
}

// Close releases connections opened by LoadEngine.
func (c *Components) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	c.closers = nil
	return errors.Join(errs...)
}
