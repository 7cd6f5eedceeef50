package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory repository served through the contents API.
type fakeRepo struct {
	files  map[string]string // path -> content
	broken map[string]bool   // file or directory paths whose request fails
}

type fakeGitHub struct {
	t     *testing.T
	repos map[string]*fakeRepo // "owner/repo" -> repo

	mu       sync.Mutex
	requests []string
}

func (g *fakeGitHub) contentRequests() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, r := range g.requests {
		if strings.Contains(r, "/contents/") {
			out = append(out, r)
		}
	}
	return out
}

func (g *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.requests = append(g.requests, r.URL.Path)
	g.mu.Unlock()

	// /repos/{owner}/{repo}/{contents|commits}/...
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/repos/"), "/", 4)
	if len(parts) < 3 {
		http.NotFound(w, r)
		return
	}
	repo, ok := g.repos[parts[0]+"/"+parts[1]]
	if !ok {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch parts[2] {
	case "commits":
		json.NewEncoder(w).Encode([]map[string]any{{"sha": "c0ffee"}})
	case "contents":
		p := ""
		if len(parts) == 4 {
			p, _ = url.PathUnescape(parts[3])
		}
		g.serveContents(w, repo, strings.Trim(p, "/"))
	default:
		http.NotFound(w, r)
	}
}

func (g *fakeGitHub) serveContents(w http.ResponseWriter, repo *fakeRepo, p string) {
	if repo.broken[p] {
		http.Error(w, `{"message":"Server Error"}`, http.StatusInternalServerError)
		return
	}
	if content, ok := repo.files[p]; ok {
		json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"name":     filepath.Base(p),
			"path":     p,
			"sha":      gitBlobSHA([]byte(content)),
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
		})
		return
	}

	// Directory listing: direct children of p.
	prefix := p
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var entries []map[string]any
	for fp, content := range repo.files {
		if !strings.HasPrefix(fp, prefix) {
			continue
		}
		rest := strings.TrimPrefix(fp, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			dir := prefix + rest[:i]
			if !seen[dir] {
				seen[dir] = true
				entries = append(entries, map[string]any{"type": "dir", "name": rest[:i], "path": dir, "sha": "d"})
			}
			continue
		}
		entries = append(entries, map[string]any{
			"type": "file", "name": rest, "path": fp, "sha": gitBlobSHA([]byte(content)),
		})
	}
	if entries == nil {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(entries)
}

func newTestFetcher(t *testing.T, fake *fakeGitHub, dataDir string, sources []Source) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base

	return NewFetcher(&Client{Client: gh}, dataDir, sources, nil)
}

func TestGitBlobSHA(t *testing.T) {
	// git hash-object of "hello world\n"
	assert.Equal(t, "3b18e512dba79e4c8300dd08aeb37f8e728b8dad", gitBlobSHA([]byte("hello world\n")))
}

func TestRefresh_DownloadsThenIsIdempotent(t *testing.T) {
	fake := &fakeGitHub{t: t, repos: map[string]*fakeRepo{
		"modelcontextprotocol/docs": {files: map[string]string{
			"README.md":               "# Docs\n",
			"logo.png":                "binary",
			"guides/quickstart.md":    "Install the SDK.",
			"guides/deep/schema.json": `{"type":"object"}`,
			"notes.txt":               "plain notes",
		}},
	}}
	dataDir := t.TempDir()
	f := newTestFetcher(t, fake, dataDir, []Source{{Owner: "modelcontextprotocol", Repo: "docs"}})

	first := f.Refresh(context.Background())
	assert.Equal(t, 4, first.Downloaded)
	assert.Equal(t, 0, first.Failed)
	assert.Equal(t, "c0ffee", first.Commits["modelcontextprotocol/docs"])

	got, err := os.ReadFile(filepath.Join(dataDir, "docs", "guides", "quickstart.md"))
	require.NoError(t, err)
	assert.Equal(t, "Install the SDK.", string(got))
	_, err = os.Stat(filepath.Join(dataDir, "docs", "logo.png"))
	assert.True(t, os.IsNotExist(err), "unwanted extensions must not be downloaded")

	before := len(fake.contentRequests())
	second := f.Refresh(context.Background())
	assert.Equal(t, 0, second.Downloaded)
	assert.Equal(t, 4, second.Unchanged)

	// Only directory listings were requested the second time.
	for _, p := range fake.contentRequests()[before:] {
		assert.False(t, strings.HasSuffix(p, ".md") || strings.HasSuffix(p, ".txt") || strings.HasSuffix(p, ".json"),
			"unexpected file download %s", p)
	}
}

func TestRefresh_RedownloadsChangedFiles(t *testing.T) {
	repo := &fakeRepo{files: map[string]string{"spec.md": "v1"}}
	fake := &fakeGitHub{t: t, repos: map[string]*fakeRepo{"modelcontextprotocol/specification": repo}}
	dataDir := t.TempDir()
	f := newTestFetcher(t, fake, dataDir, []Source{{Owner: "modelcontextprotocol", Repo: "specification"}})

	require.Equal(t, 1, f.Refresh(context.Background()).Downloaded)

	repo.files["spec.md"] = "v2"
	res := f.Refresh(context.Background())
	assert.Equal(t, 1, res.Downloaded)

	got, err := os.ReadFile(filepath.Join(dataDir, "specification", "spec.md"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestRefresh_BestEffort(t *testing.T) {
	fake := &fakeGitHub{t: t, repos: map[string]*fakeRepo{
		"modelcontextprotocol/python-sdk": {
			files:  map[string]string{"a.md": "ok", "b.md": "fails"},
			broken: map[string]bool{"b.md": true},
		},
	}}
	dataDir := t.TempDir()
	f := newTestFetcher(t, fake, dataDir, []Source{
		{Owner: "modelcontextprotocol", Repo: "missing-repo"},
		{Owner: "modelcontextprotocol", Repo: "python-sdk"},
	})

	res := f.Refresh(context.Background())

	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 2, res.Failed)

	byKey := map[string]ItemResult{}
	for _, item := range res.Items {
		byKey[item.Source+":"+item.Path] = item
	}
	assert.Equal(t, StatusFailed, byKey["modelcontextprotocol/missing-repo:"].Status)
	assert.NotEmpty(t, byKey["modelcontextprotocol/missing-repo:"].Reason)
	assert.Equal(t, StatusFailed, byKey["modelcontextprotocol/python-sdk:b.md"].Status)
	assert.Equal(t, StatusDownloaded, byKey["modelcontextprotocol/python-sdk:a.md"].Status)
}

func TestRefresh_FailedSubdirectoryKeepsSiblings(t *testing.T) {
	fake := &fakeGitHub{t: t, repos: map[string]*fakeRepo{
		"modelcontextprotocol/docs": {
			files: map[string]string{
				"README.md":          "# Docs\n",
				"good.md":            "good",
				"broken/inside.md":   "unreachable",
				"nested/ok/deep.txt": "deep",
				"nested/bad/x.md":    "unreachable",
			},
			broken: map[string]bool{"broken": true, "nested/bad": true},
		},
	}}
	dataDir := t.TempDir()
	f := newTestFetcher(t, fake, dataDir, []Source{{Owner: "modelcontextprotocol", Repo: "docs"}})

	res := f.Refresh(context.Background())

	assert.Equal(t, 3, res.Downloaded)
	assert.Equal(t, 2, res.Failed)

	failed := map[string]string{}
	for _, item := range res.Items {
		if item.Status == StatusFailed {
			failed[item.Path] = item.Reason
		}
	}
	assert.Contains(t, failed, "broken")
	assert.Contains(t, failed, "nested/bad")
	assert.NotContains(t, failed, "", "the source itself was listed")

	for _, rel := range []string{"README.md", "good.md", "nested/ok/deep.txt"} {
		_, err := os.Stat(filepath.Join(dataDir, "docs", filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}
}

func TestRefresh_CancelledContext(t *testing.T) {
	fake := &fakeGitHub{t: t, repos: map[string]*fakeRepo{}}
	f := newTestFetcher(t, fake, t.TempDir(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.Refresh(ctx)
	assert.Equal(t, len(DefaultSources), res.Failed)
	assert.Zero(t, res.Downloaded)
}

func TestRefresh_BasePath(t *testing.T) {
	fake := &fakeGitHub{t: t, repos: map[string]*fakeRepo{
		"modelcontextprotocol/typescript-sdk": {files: map[string]string{
			"docs/server.md": "server docs",
			"src/index.ts":   "code",
			"README.md":      "outside base path",
		}},
	}}
	dataDir := t.TempDir()
	f := newTestFetcher(t, fake, dataDir, []Source{{Owner: "modelcontextprotocol", Repo: "typescript-sdk", BasePath: "docs"}})

	res := f.Refresh(context.Background())
	require.Equal(t, 1, res.Downloaded)
	assert.Equal(t, "server.md", res.Items[0].Path)

	_, err := os.Stat(filepath.Join(dataDir, "typescript-sdk", "server.md"))
	assert.NoError(t, err)
}

func TestLocalPath_RejectsEscapes(t *testing.T) {
	f := NewFetcher(nil, "/data", nil, nil)
	src := Source{Repo: "docs"}

	for _, rel := range []string{"../etc/passwd", "a/../../b", "", "/abs.md"} {
		_, err := f.localPath(src, rel)
		assert.Error(t, err, rel)
	}

	got, err := f.localPath(src, "guides/x.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "docs", "guides", "x.md"), got)
}
