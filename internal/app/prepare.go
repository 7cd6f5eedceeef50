// Package app wires the components together and prepares the index before
// the front end starts.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/bull/mcp-docs-assistant/internal/github"
	"github.com/bull/mcp-docs-assistant/internal/index"
	"github.com/bull/mcp-docs-assistant/internal/indexer"
)

// Refresher brings the local corpus up to date. It never fails.
type Refresher interface {
	Refresh(ctx context.Context) *github.RefreshResult
}

// Builder rebuilds the index artifacts from the local corpus.
type Builder interface {
	Run(ctx context.Context) (*indexer.Result, error)
}

// PrepareResult reports what Prepare did.
type PrepareResult struct {
	// Ran is false when both artifacts already existed.
	Ran      bool
	Refresh  *github.RefreshResult
	Index    *indexer.Result
	Err      error
	Duration time.Duration
}

// Prepare makes sure the index artifacts exist. When either is missing it
// refreshes the corpus and rebuilds the index, synchronously. Failures are
// logged and reported in the result; the caller starts with whatever
// artifacts exist afterwards. A nil refresher skips the download.
func Prepare(ctx context.Context, paths index.Paths, refresher Refresher, builder Builder, logger *slog.Logger) *PrepareResult {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	result := &PrepareResult{}

	if paths.Exists() {
		logger.Info("Index found, skipping preparation", "index", paths.Index, "metadata", paths.Metadata)
		return result
	}

	result.Ran = true
	logger.Info("Processed data not found, starting data pipeline")

	if refresher != nil {
		result.Refresh = refresher.Refresh(ctx)
	}

	result.Index, result.Err = builder.Run(ctx)
	if result.Err != nil {
		logger.Error("Failed to build index", "error", result.Err)
	}

	result.Duration = time.Since(start)
	logger.Info("Preparation finished", "duration", result.Duration, "ok", result.Err == nil)
	return result
}
