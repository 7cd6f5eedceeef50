// Package rag answers questions from the indexed documentation: it embeds
// the question, retrieves the nearest chunks and asks a chat model to answer
// from them.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/mcp-docs-assistant/internal/embedding"
	"github.com/bull/mcp-docs-assistant/internal/index"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

var (
	ErrNotReady      = errors.New("query engine not ready")
	ErrModelMismatch = errors.New("index was built with a different embedding model")
	ErrBadEmbedding  = errors.New("embedder returned an unusable query vector")
)

// Searcher is a nearest-neighbor oracle over the indexed vectors. Results
// are positions into the record list, best first; positions may be
// index.NotFound or past the end and are filtered by the engine.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]index.Neighbor, error)
}

// Generator turns a prompt into answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HealthChecker is implemented by searchers backed by a remote service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Result is one retrieved chunk.
type Result struct {
	Record   index.Record
	Score    float32
	Position int
}

// Source describes a chunk that grounded an answer.
type Source struct {
	File       string  `json:"file"`
	Path       string  `json:"path"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Answer is the reply to a user message. Text is always set.
type Answer struct {
	Text    string   `json:"response"`
	Sources []Source `json:"sources"`
}

// Status summarizes the loaded index.
type Status struct {
	Ready     bool   `json:"ready"`
	Reason    string `json:"reason,omitempty"`
	Chunks    int    `json:"chunks"`
	Documents int    `json:"documents"`
	BuildID   string `json:"build_id,omitempty"`
	Model     string `json:"model,omitempty"`
	TopK      int    `json:"top_k"`
}

// Config holds the engine's collaborators. Model is the embedding model id
// the indexed vectors came from; when set it must equal Embedder.ModelID().
type Config struct {
	Searcher  Searcher
	Records   []index.Record
	BuildID   string
	Model     string
	Embedder  embedding.Model
	Generator Generator
	TopK      int
	Logger    *slog.Logger
}

// Engine is the query engine. It is immutable after construction and safe
// for concurrent use.
type Engine struct {
	searcher  Searcher
	records   []index.Record
	buildID   string
	model     string
	embedder  embedding.Model
	generator Generator
	topK      int
	logger    *slog.Logger

	ready  bool
	reason string
}

// New creates a ready engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Searcher == nil || cfg.Embedder == nil || cfg.Generator == nil {
		return nil, errors.New("rag: searcher, embedder and generator are required")
	}
	if cfg.Model != "" && cfg.Model != cfg.Embedder.ModelID() {
		return nil, fmt.Errorf("%w: index %q, embedder %q", ErrModelMismatch, cfg.Model, cfg.Embedder.ModelID())
	}

	e := &Engine{
		searcher:  cfg.Searcher,
		records:   append([]index.Record(nil), cfg.Records...),
		buildID:   cfg.BuildID,
		model:     cfg.Embedder.ModelID(),
		embedder:  cfg.Embedder,
		generator: cfg.Generator,
		topK:      cfg.TopK,
		logger:    cfg.Logger,
		ready:     true,
	}
	if e.topK <= 0 {
		e.topK = DefaultTopK
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// Disabled returns an engine that answers every question with
// NotReadyResponse. reason is reported by Status and Health.
func Disabled(reason string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{reason: reason, topK: DefaultTopK, logger: logger}
}

// Ready reports whether the engine can answer questions.
func (e *Engine) Ready() bool { return e.ready }

// TopK returns the default number of retrieved chunks.
func (e *Engine) TopK() int { return e.topK }

// Retrieve returns up to k chunks ranked by similarity to question. A
// non-positive k selects the engine default.
func (e *Engine) Retrieve(ctx context.Context, question string, k int) ([]Result, error) {
	if !e.ready {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, e.reason)
	}
	if k <= 0 {
		k = e.topK
	}

	vectors, err := e.embedder.GenerateEmbeddings(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, ErrBadEmbedding
	}
	query := index.Normalize(vectors[0])

	neighbors, err := e.searcher.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Position == index.NotFound || n.Position < 0 || n.Position >= len(e.records) {
			continue
		}
		results = append(results, Result{
			Record:   e.records[n.Position],
			Score:    n.Score,
			Position: n.Position,
		})
		if len(results) == k {
			break
		}
	}

	e.logger.Debug("Retrieved chunks", "count", len(results), "k", k)
	return results, nil
}

// Ask answers message. It never fails: internal errors are logged and
// replaced by one of the canned responses.
func (e *Engine) Ask(ctx context.Context, message string) Answer {
	if !e.ready {
		return Answer{Text: NotReadyResponse}
	}

	question := strings.TrimSpace(message)
	if question == "" {
		return Answer{Text: EmptyMessageResponse}
	}

	results, err := e.Retrieve(ctx, question, e.topK)
	if err != nil {
		e.logger.Error("Retrieval failed", "error", err)
		return Answer{Text: ErrorResponse}
	}
	if len(results) == 0 {
		return Answer{Text: NoContextResponse}
	}

	prompt := Prompt(BuildContext(results), question)
	text, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.Error("Generation failed", "error", err)
		return Answer{Text: GenerationErrorResponse}
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			File:       r.Record.File,
			Path:       r.Record.Path,
			ChunkIndex: r.Record.ChunkIndex,
			Score:      r.Score,
		}
	}
	return Answer{Text: text, Sources: sources}
}

// Status reports what the engine has loaded.
func (e *Engine) Status() Status {
	docs := make(map[string]struct{})
	for _, r := range e.records {
		docs[r.Path] = struct{}{}
	}
	return Status{
		Ready:     e.ready,
		Reason:    e.reason,
		Chunks:    len(e.records),
		Documents: len(docs),
		BuildID:   e.buildID,
		Model:     e.model,
		TopK:      e.topK,
	}
}

// Health returns nil when the engine is ready and its searcher, if remote,
// is reachable.
func (e *Engine) Health(ctx context.Context) error {
	if !e.ready {
		return fmt.Errorf("%w: %s", ErrNotReady, e.reason)
	}
	if hc, ok := e.searcher.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}
