// Package main provides the CLI for fetching, indexing and querying the MCP documentation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/mcp-docs-assistant/internal/app"
	"github.com/bull/mcp-docs-assistant/internal/config"
	"github.com/bull/mcp-docs-assistant/internal/github"
	"github.com/bull/mcp-docs-assistant/internal/index"
	"github.com/bull/mcp-docs-assistant/internal/indexer"
	"github.com/bull/mcp-docs-assistant/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "docs-sync",
	Short:        "MCP documentation indexing tool",
	Long:         "CLI tool for downloading the Model Context Protocol documentation and managing its search index",
	SilenceUsage: true,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the documentation from GitHub",
	Long: `Mirrors the Model Context Protocol documentation repositories into DATA_DIR.

Files whose content is unchanged are not downloaded again.

Environment variables:
  DATA_DIR       Corpus and index directory (default: data)
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the search index from the downloaded documentation",
	Long: `Chunks every .md and .txt file under DATA_DIR, embeds the chunks and
replaces the index and metadata artifacts.

Environment variables:
  DATA_DIR            Corpus and index directory (default: data)
  CHUNK_SIZE          Characters per chunk (default: 500)
  CHUNK_OVERLAP       Characters shared by consecutive chunks (default: 100)
  EMBEDDING_PROVIDER  openai or ollama (default: openai)
  OPENAI_API_KEY      OpenAI API key (required for the openai provider)`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch, re-index and publish the documentation",
	Long: `Downloads the latest documentation, rebuilds the index and, when
VECTOR_BACKEND=qdrant, publishes it to Qdrant.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the local index contains",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	config.AddFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(fetchCmd, indexCmd, syncCmd, askCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup resolves the configuration and logger for a command.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	format := cfg.LogFormat
	if !cmd.Flags().Changed("log-format") && os.Getenv("LOG_FORMAT") == "" {
		format = "pretty"
	}
	log := logger.New(append(logger.FromFormat(format, cfg.Debug), logger.WithWriter(os.Stderr))...)
	slog.SetDefault(log)
	return cfg, log, nil
}

// fetcher builds the GitHub fetcher alone, so fetching needs no OpenAI key.
func fetcher(cfg *config.Config, log *slog.Logger) (*github.Fetcher, error) {
	client, err := github.NewClient(cfg.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return github.NewFetcher(client, cfg.DataDir, nil, log), nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	f, err := fetcher(cfg, log)
	if err != nil {
		return err
	}

	fmt.Printf("Fetching documentation into %s...\n", cfg.DataDir)
	printRefresh(f.Refresh(cmd.Context()))
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	components, err := app.Build(cfg, log)
	if err != nil {
		return err
	}

	fmt.Println("Indexing documents...")
	result, err := components.Pipeline.Run(cmd.Context())
	if result != nil {
		printIndex(result)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	components, err := app.Build(cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	// 1. Fetch
	fmt.Println("Fetching documentation from GitHub...")
	printRefresh(components.Fetcher.Refresh(ctx))

	// 2. Index
	fmt.Println()
	fmt.Println("Indexing documents...")
	result, err := components.Pipeline.Run(ctx)
	if result != nil {
		printIndex(result)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	// 3. Publish
	if cfg.UsesQdrant() {
		fmt.Println()
		fmt.Printf("Publishing to Qdrant at %s:%d...\n", cfg.QdrantHost, cfg.QdrantPort)
		if err := components.PublishQdrant(ctx); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
		fmt.Println("Qdrant collection up to date")
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireOpenAI(); err != nil {
		return err
	}

	components, err := app.Build(cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	engine := components.LoadEngine(cmd.Context())
	answer := engine.Ask(cmd.Context(), strings.Join(args, " "))

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range answer.Sources {
			fmt.Printf("  - %s (chunk %d, score %.3f)\n", s.Path, s.ChunkIndex, s.Score)
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	paths := index.DefaultPaths(cfg.DataDir)
	artifact, err := index.Load(paths)
	if err != nil {
		fmt.Printf("Index not ready: %v\n", err)
		return nil
	}

	docs := make(map[string]int)
	for _, r := range artifact.Records {
		docs[r.Path]++
	}

	fmt.Println("Index ready")
	fmt.Printf("  Build:     %s\n", artifact.BuildID)
	fmt.Printf("  Model:     %s\n", artifact.Model)
	fmt.Printf("  Documents: %d\n", len(docs))
	fmt.Printf("  Chunks:    %d\n", len(artifact.Records))
	fmt.Printf("  Dimension: %d\n", artifact.Index.Dim())
	fmt.Printf("  Files:     %s, %s\n", paths.Index, paths.Metadata)
	return nil
}

func printRefresh(res *github.RefreshResult) {
	fmt.Printf("  Downloaded: %d\n", res.Downloaded)
	fmt.Printf("  Unchanged:  %d\n", res.Unchanged)
	fmt.Printf("  Failed:     %d\n", res.Failed)
	fmt.Printf("  Duration:   %s\n", res.Duration.Round(time.Millisecond))
	for source, sha := range res.Commits {
		fmt.Printf("  Commit %s: %s\n", source, sha)
	}

	if res.Failed > 0 {
		fmt.Println()
		fmt.Println("Failed items:")
		for _, item := range res.Items {
			if item.Status == github.StatusFailed {
				fmt.Printf("  - %s %s: %s\n", item.Source, item.Path, item.Reason)
			}
		}
	}
}

func printIndex(result *indexer.Result) {
	fmt.Printf("  Documents: %d/%d\n", result.IndexedFiles, result.TotalFiles)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	if result.BuildID != "" {
		fmt.Printf("  Build: %s\n", result.BuildID)
		fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	}

	if skipped := result.Skipped(); len(skipped) > 0 {
		fmt.Println()
		fmt.Println("Skipped documents:")
		for _, f := range skipped {
			fmt.Printf("  - %s: %s\n", f.Path, f.Reason)
		}
	}
}
