package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bull/mcp-docs-assistant/internal/chunker"
	"github.com/bull/mcp-docs-assistant/internal/embedding"
	"github.com/bull/mcp-docs-assistant/internal/index"
	"github.com/bull/mcp-docs-assistant/internal/markdown"
)

// ErrNoChunks is returned when the corpus produced nothing to index.
var ErrNoChunks = errors.New("no chunks to index")

// DefaultExtensions are the document types indexed from the data directory.
var DefaultExtensions = []string{".md", ".txt"}

// FileStatus is the outcome for one source file.
type FileStatus string

const (
	StatusIndexed FileStatus = "indexed"
	StatusEmpty   FileStatus = "empty"
	StatusSkipped FileStatus = "skipped"
)

// FileResult records what happened to one source file.
type FileResult struct {
	Path   string
	Status FileStatus
	Chunks int
	Reason string
}

// Result contains statistics about an indexing run.
type Result struct {
	TotalFiles   int
	IndexedFiles int
	TotalChunks  int
	Files        []FileResult
	BuildID      string
	Model        string
	Duration     time.Duration
}

// Skipped returns the files that could not be processed.
func (r *Result) Skipped() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Status == StatusSkipped {
			out = append(out, f)
		}
	}
	return out
}

// Config holds the pipeline's collaborators.
type Config struct {
	DataDir    string
	Paths      index.Paths
	Chunker    *chunker.Chunker
	Converter  *markdown.Converter
	Embedder   embedding.Model
	Extensions []string
	Logger     *slog.Logger
}

// Pipeline turns the documents under a data directory into the persisted
// index and metadata artifacts.
type Pipeline struct {
	dataDir    string
	paths      index.Paths
	chunker    *chunker.Chunker
	converter  *markdown.Converter
	embedder   embedding.Model
	extensions []string
	logger     *slog.Logger

	readFile func(string) ([]byte, error)
	walk     func(string, fs.WalkDirFunc) error
}

// NewPipeline creates a new indexing pipeline with the given components.
func NewPipeline(cfg Config) *Pipeline {
	p := &Pipeline{
		dataDir:    cfg.DataDir,
		paths:      cfg.Paths,
		chunker:    cfg.Chunker,
		converter:  cfg.Converter,
		embedder:   cfg.Embedder,
		extensions: cfg.Extensions,
		logger:     cfg.Logger,
		readFile:   os.ReadFile,
		walk:       filepath.WalkDir,
	}
	if p.paths == (index.Paths{}) {
		p.paths = index.DefaultPaths(cfg.DataDir)
	}
	if p.chunker == nil {
		p.chunker = chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	}
	if p.converter == nil {
		p.converter = markdown.NewConverter()
	}
	if len(p.extensions) == 0 {
		p.extensions = DefaultExtensions
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run indexes every document under the data directory and replaces the
// artifacts. A file or directory that cannot be read or parsed is logged,
// recorded as skipped and left out; the rest of the corpus is still indexed. Run fails
// only when nothing can be indexed or the embedding or persistence step
// fails, in which case the previous artifacts are left untouched.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{Model: p.embedder.ModelID()}

	// 1. Find documents
	files, unreadable, err := p.listFiles()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	result.TotalFiles = len(files)
	result.Files = append(result.Files, unreadable...)
	p.logger.Info("Found documents", "count", len(files), "dir", p.dataDir)

	// 2. Parse and chunk each document
	var records []index.Record
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileRecords, err := p.processFile(file)
		if err != nil {
			p.logger.Warn("Skipping document", "path", file, "error", err)
			result.Files = append(result.Files, FileResult{Path: file, Status: StatusSkipped, Reason: err.Error()})
			continue
		}

		status := StatusIndexed
		if len(fileRecords) == 0 {
			status = StatusEmpty
		} else {
			result.IndexedFiles++
		}
		result.Files = append(result.Files, FileResult{Path: file, Status: status, Chunks: len(fileRecords)})
		records = append(records, fileRecords...)
	}
	result.TotalChunks = len(records)

	if len(records) == 0 {
		return result, ErrNoChunks
	}

	// 3. Embed all chunks in one call
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vectors, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("embeddings: %w", err)
	}
	if len(vectors) != len(records) {
		return result, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(vectors), len(records))
	}

	// 4. Normalize and build the exact index
	flat, err := index.BuildFlat(index.NormalizeAll(vectors))
	if err != nil {
		return result, fmt.Errorf("build index: %w", err)
	}

	// 5. Persist both artifacts under one build id
	result.BuildID = uuid.New().String()
	artifact := &index.Artifact{
		BuildID: result.BuildID,
		Model:   result.Model,
		Index:   flat,
		Records: records,
	}
	if err := index.Save(p.paths, artifact); err != nil {
		return result, fmt.Errorf("save artifacts: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"indexed", result.IndexedFiles,
		"skipped", len(result.Skipped()),
		"chunks", result.TotalChunks,
		"build", result.BuildID,
		"duration", result.Duration,
	)

	return result, nil
}

// listFiles returns the wanted documents under the data directory as
// slash-separated relative paths in lexical order, plus a skipped entry for
// every path below the root that could not be read.
func (p *Pipeline) listFiles() ([]string, []FileResult, error) {
	var (
		files   []string
		skipped []FileResult
	)
	err := p.walk(p.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The root itself must exist.
			if path == p.dataDir {
				return err
			}
			p.logger.Warn("Skipping unreadable path", "path", path, "error", err)
			skipped = append(skipped, FileResult{Path: p.rel(path), Status: StatusSkipped, Reason: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !p.wanted(d.Name()) {
			return nil
		}
		files = append(files, p.rel(path))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(files)
	return files, skipped, nil
}

func (p *Pipeline) rel(path string) string {
	rel, err := filepath.Rel(p.dataDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (p *Pipeline) wanted(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range p.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// processFile reads, converts and chunks one document.
func (p *Pipeline) processFile(rel string) ([]index.Record, error) {
	raw, err := p.readFile(filepath.Join(p.dataDir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	text := string(raw)
	var title string
	if strings.EqualFold(filepath.Ext(rel), ".md") {
		doc, err := p.converter.Convert(raw)
		if err != nil {
			return nil, fmt.Errorf("convert: %w", err)
		}
		text, title = doc.Text, doc.Title
	}

	chunks := p.chunker.Split(text)
	records := make([]index.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = index.Record{
			File:       filepath.Base(rel),
			Path:       rel,
			ChunkIndex: i,
			Title:      title,
			Text:       chunk,
		}
	}
	p.logger.Debug("Chunked document", "path", rel, "chunks", len(records))
	return records, nil
}
