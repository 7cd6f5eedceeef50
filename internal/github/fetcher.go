package github

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
)

// Source is one repository directory mirrored into the data directory.
type Source struct {
	Owner    string
	Repo     string
	BasePath string // Directory inside the repository, "" for the root
}

func (s Source) String() string {
	if s.BasePath == "" {
		return s.Owner + "/" + s.Repo
	}
	return s.Owner + "/" + s.Repo + "/" + s.BasePath
}

// DefaultSources are the Model Context Protocol documentation repositories.
var DefaultSources = []Source{
	{Owner: "modelcontextprotocol", Repo: "docs"},
	{Owner: "modelcontextprotocol", Repo: "specification"},
	{Owner: "modelcontextprotocol", Repo: "python-sdk"},
	{Owner: "modelcontextprotocol", Repo: "typescript-sdk"},
}

// DefaultExtensions are the file types downloaded from each source.
var DefaultExtensions = []string{".md", ".txt", ".json"}

// ItemStatus is the outcome for one file or source during a refresh.
type ItemStatus string

const (
	StatusDownloaded ItemStatus = "downloaded"
	StatusUnchanged  ItemStatus = "unchanged"
	StatusFailed     ItemStatus = "failed"
)

// ItemResult records what happened to one remote file. A source whose
// listing failed is reported as a single failed item with an empty Path; a
// subdirectory that could not be listed is a failed item with its own Path.
type ItemResult struct {
	Source string
	Path   string
	Status ItemStatus
	Reason string
}

// RefreshResult summarizes a refresh.
type RefreshResult struct {
	Items      []ItemResult
	Downloaded int
	Unchanged  int
	Failed     int
	Commits    map[string]string // Source -> latest commit SHA, when known
	Duration   time.Duration
}

func (r *RefreshResult) add(item ItemResult) {
	r.Items = append(r.Items, item)
	switch item.Status {
	case StatusDownloaded:
		r.Downloaded++
	case StatusUnchanged:
		r.Unchanged++
	case StatusFailed:
		r.Failed++
	}
}

// RemoteFile is a file found while listing a source.
type RemoteFile struct {
	Path string // Full path inside the repository
	Rel  string // Path relative to the source's BasePath
	SHA  string // Git blob SHA
}

// Fetcher mirrors documentation files from GitHub into a local directory.
type Fetcher struct {
	client     *Client
	dataDir    string
	sources    []Source
	extensions []string
	logger     *slog.Logger
}

// NewFetcher creates a fetcher writing into dataDir. Files of source s land
// in dataDir/<s.Repo>/<path relative to s.BasePath>.
func NewFetcher(client *Client, dataDir string, sources []Source, logger *slog.Logger) *Fetcher {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:     client,
		dataDir:    dataDir,
		sources:    sources,
		extensions: DefaultExtensions,
		logger:     logger,
	}
}

// Refresh brings the local mirror up to date. Files whose content already
// matches the remote blob are left alone, so repeated calls only download
// what changed. Refresh is best effort and never fails: listing or download
// errors are logged and recorded per item.
func (f *Fetcher) Refresh(ctx context.Context) (result *RefreshResult) {
	start := time.Now()
	result = &RefreshResult{Commits: make(map[string]string)}

	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Refresh aborted", "panic", r)
			result.add(ItemResult{Status: StatusFailed, Reason: fmt.Sprintf("panic: %v", r)})
		}
		result.Duration = time.Since(start)
	}()

	for _, src := range f.sources {
		if ctx.Err() != nil {
			result.add(ItemResult{Source: src.String(), Status: StatusFailed, Reason: ctx.Err().Error()})
			continue
		}
		f.refreshSource(ctx, src, result)
	}

	f.logger.Info("Refresh complete",
		"downloaded", result.Downloaded,
		"unchanged", result.Unchanged,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
	return result
}

func (f *Fetcher) refreshSource(ctx context.Context, src Source, result *RefreshResult) {
	name := src.String()

	if sha, err := f.GetLatestCommitSHA(ctx, src); err != nil {
		f.logger.Debug("Could not resolve latest commit", "source", name, "error", err)
	} else {
		result.Commits[name] = sha
	}

	listing, err := f.ListFiles(ctx, src)
	if err != nil {
		f.logger.Warn("Failed to list source", "source", name, "error", err)
		result.add(ItemResult{Source: name, Status: StatusFailed, Reason: err.Error()})
		return
	}
	f.logger.Info("Found files", "source", name, "count", len(listing.Files))

	for _, item := range listing.Failed {
		result.add(item)
	}

	for _, file := range listing.Files {
		item := ItemResult{Source: name, Path: file.Rel}

		status, err := f.syncFile(ctx, src, file)
		if err != nil {
			f.logger.Warn("Failed to fetch file", "source", name, "path", file.Path, "error", err)
			item.Status = StatusFailed
			item.Reason = err.Error()
		} else {
			item.Status = status
		}
		result.add(item)
	}
}

func (f *Fetcher) syncFile(ctx context.Context, src Source, file RemoteFile) (ItemStatus, error) {
	local, err := f.localPath(src, file.Rel)
	if err != nil {
		return "", err
	}

	if existing, err := os.ReadFile(local); err == nil && gitBlobSHA(existing) == file.SHA {
		return StatusUnchanged, nil
	}

	content, err := f.FetchFile(ctx, src, file.Path)
	if err != nil {
		return "", err
	}
	if err := writeFile(local, content); err != nil {
		return "", fmt.Errorf("write %s: %w", local, err)
	}
	return StatusDownloaded, nil
}

// localPath maps a source-relative path into the data directory, refusing
// paths that would escape it.
func (f *Fetcher) localPath(src Source, rel string) (string, error) {
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel {
		return "", fmt.Errorf("refusing unsafe path %q", rel)
	}
	return filepath.Join(f.dataDir, src.Repo, filepath.FromSlash(clean)), nil
}

// Listing is what ListFiles found in one source. Failed holds the
// subdirectories that could not be listed; the files found elsewhere are
// still returned.
type Listing struct {
	Files  []RemoteFile
	Failed []ItemResult
}

// ListFiles recursively lists the files of src with a wanted extension. Only
// a failure to list the source's own directory is returned as an error.
func (f *Fetcher) ListFiles(ctx context.Context, src Source) (*Listing, error) {
	listing := &Listing{}
	if err := f.listRecursive(ctx, src, src.BasePath, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func (f *Fetcher) listRecursive(ctx context.Context, src Source, dir string, listing *Listing) error {
	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, src.Owner, src.Repo, dir, nil)
	if err != nil {
		return fmt.Errorf("failed to get contents of %s/%s: %w", src.Repo, dir, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Path == nil {
			continue
		}

		switch item.GetType() {
		case "file":
			if !f.wanted(item.GetName()) {
				continue
			}
			listing.Files = append(listing.Files, RemoteFile{
				Path: item.GetPath(),
				Rel:  f.relPath(src, item.GetPath()),
				SHA:  item.GetSHA(),
			})

		case "dir":
			if err := f.listRecursive(ctx, src, item.GetPath(), listing); err != nil {
				f.logger.Warn("Failed to list directory", "source", src.String(), "path", item.GetPath(), "error", err)
				listing.Failed = append(listing.Failed, ItemResult{
					Source: src.String(),
					Path:   f.relPath(src, item.GetPath()),
					Status: StatusFailed,
					Reason: err.Error(),
				})
			}
		}
	}

	return nil
}

func (f *Fetcher) relPath(src Source, p string) string {
	return strings.TrimPrefix(strings.TrimPrefix(p, src.BasePath), "/")
}

func (f *Fetcher) wanted(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range f.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FetchFile downloads the content of one file.
func (f *Fetcher) FetchFile(ctx context.Context, src Source, filePath string) ([]byte, error) {
	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, src.Owner, src.Repo, filePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", filePath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", filePath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", filePath, err)
	}
	return []byte(content), nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the source directory
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context, src Source) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, src.Owner, src.Repo, &github.CommitsListOptions{
		Path:        src.BasePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for %s", src)
	}
	return commits[0].GetSHA(), nil
}

// gitBlobSHA returns the SHA git assigns to a blob with this content.
func gitBlobSHA(content []byte) string {
	h := sha1.New()
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func writeFile(target string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}
