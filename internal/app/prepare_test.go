package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/mcp-docs-assistant/internal/chunker"
	"github.com/bull/mcp-docs-assistant/internal/github"
	"github.com/bull/mcp-docs-assistant/internal/index"
	"github.com/bull/mcp-docs-assistant/internal/indexer"
	"github.com/bull/mcp-docs-assistant/internal/logger"
	"github.com/bull/mcp-docs-assistant/internal/rag"
	"github.com/bull/mcp-docs-assistant/internal/testutil"
)

// fakeRefresher writes a fixed corpus into dir, like a first download.
type fakeRefresher struct {
	dir   string
	files map[string]string
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) *github.RefreshResult {
	f.calls++
	res := &github.RefreshResult{}
	for rel, content := range f.files {
		path := filepath.Join(f.dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if err := os.WriteFile(path, []byte(content), 0o644); err == nil {
				res.Downloaded++
				continue
			}
		}
		res.Failed++
	}
	return res
}

type fakeBuilder struct {
	err   error
	calls int
}

func (b *fakeBuilder) Run(context.Context) (*indexer.Result, error) {
	b.calls++
	return &indexer.Result{}, b.err
}

var mcpDocs = map[string]string{
	"docs/transports.md": "# Transports\n\n" + strings.Join([]string{
		"The stdio transport launches the server as a subprocess of the client.",
		"Streamable HTTP lets a server handle many clients over plain HTTP requests.",
	}, " "),
	"specification/tools.md": "# Tools\n\n" + strings.Join([]string{
		"Tools let language models invoke functions exposed by servers.",
		"Each tool declares a JSON schema describing its arguments.",
	}, " "),
	"python-sdk/README.txt": "The Python SDK implements clients and servers with asyncio.",
}

func TestPrepare_SkipsWhenArtifactsExist(t *testing.T) {
	dir := t.TempDir()
	paths := index.DefaultPaths(dir)
	require.NoError(t, os.WriteFile(paths.Index, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(paths.Metadata, []byte("x"), 0o644))

	refresher := &fakeRefresher{dir: dir}
	builder := &fakeBuilder{}
	res := Prepare(context.Background(), paths, refresher, builder, logger.Nop())

	assert.False(t, res.Ran)
	assert.Zero(t, refresher.calls)
	assert.Zero(t, builder.calls)
}

func TestPrepare_RunsWhenEitherArtifactMissing(t *testing.T) {
	dir := t.TempDir()
	paths := index.DefaultPaths(dir)
	require.NoError(t, os.WriteFile(paths.Index, []byte("x"), 0o644))

	refresher := &fakeRefresher{dir: dir}
	builder := &fakeBuilder{}
	res := Prepare(context.Background(), paths, refresher, builder, logger.Nop())

	assert.True(t, res.Ran)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 1, builder.calls)
	assert.NoError(t, res.Err)
}

func TestPrepare_BuildFailureIsNotFatal(t *testing.T) {
	builder := &fakeBuilder{err: errors.New("embedding service down")}
	res := Prepare(context.Background(), index.DefaultPaths(t.TempDir()), nil, builder, logger.Nop())

	assert.True(t, res.Ran)
	assert.Nil(t, res.Refresh)
	assert.EqualError(t, res.Err, "embedding service down")
}

func TestPrepareThenLoad_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	paths := index.DefaultPaths(dir)
	emb := testutil.NewHashEmbedder()

	pipeline := indexer.NewPipeline(indexer.Config{
		DataDir:  dir,
		Chunker:  chunker.New(80, 10),
		Embedder: emb,
		Logger:   logger.Nop(),
	})
	refresher := &fakeRefresher{dir: dir, files: mcpDocs}

	res := Prepare(context.Background(), paths, refresher, pipeline, logger.Nop())
	require.NoError(t, res.Err)
	require.True(t, res.Ran)
	assert.Equal(t, 3, res.Refresh.Downloaded)
	assert.Equal(t, 3, res.Index.IndexedFiles)
	assert.True(t, paths.Exists())

	gen := &testutil.StubGenerator{Answer: "Tools are functions servers expose to models."}
	engine := rag.Load(context.Background(), rag.LoadConfig{
		Paths:     paths,
		Embedder:  emb,
		Generator: gen,
		Logger:    logger.Nop(),
	})
	require.True(t, engine.Ready())

	answer := engine.Ask(context.Background(), "How do language models invoke tools exposed by servers?")
	assert.Equal(t, "Tools are functions servers expose to models.", answer.Text)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "specification/tools.md", answer.Sources[0].Path)

	require.Len(t, gen.Prompts(), 1)
	assert.Contains(t, gen.Prompts()[0], "From tools.md:\n")
	assert.Contains(t, gen.Prompts()[0], "### User Question:\nHow do language models invoke tools exposed by servers?\n")

	// A second start finds the artifacts and does not download again.
	again := Prepare(context.Background(), paths, refresher, pipeline, logger.Nop())
	assert.False(t, again.Ran)
	assert.Equal(t, 1, refresher.calls)
}
