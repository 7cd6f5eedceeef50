package index

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	DefaultIndexFile    = "index.gob"
	DefaultMetadataFile = "documents.json"
)

// Paths locates the two persisted artifacts.
type Paths struct {
	Index    string
	Metadata string
}

// DefaultPaths returns the artifact locations inside dataDir.
func DefaultPaths(dataDir string) Paths {
	return Paths{
		Index:    filepath.Join(dataDir, DefaultIndexFile),
		Metadata: filepath.Join(dataDir, DefaultMetadataFile),
	}
}

// Exists reports whether both artifacts are present.
func (p Paths) Exists() bool {
	for _, path := range []string{p.Index, p.Metadata} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// Artifact is a loaded index together with its co-indexed records.
// BuildID identifies the indexing run that produced both halves and Model
// the embedding model that produced the vectors.
type Artifact struct {
	BuildID string
	Model   string
	Index   *Flat
	Records []Record
}

// Validate checks the one-to-one pairing of vectors and records.
func (a *Artifact) Validate() error {
	if a.Index == nil {
		return fmt.Errorf("%w: no index", ErrArtifactMismatch)
	}
	if a.Index.Len() != len(a.Records) {
		return fmt.Errorf("%w: %d vectors, %d records",
			ErrArtifactMismatch, a.Index.Len(), len(a.Records))
	}
	return nil
}

type indexFile struct {
	BuildID string
	Model   string
	Dim     int
	Vectors [][]float32
}

type metadataFile struct {
	BuildID string   `json:"build_id"`
	Model   string   `json:"model"`
	Count   int      `json:"count"`
	Records []Record `json:"records"`
}

// Save writes both artifacts. Each is first encoded to a temporary file in
// its target directory; the targets are replaced only after both encodes
// succeed. The two renames are not atomic as a pair: if the second fails,
// the new metadata sits beside the previous index, and Load rejects the
// pair because their build ids differ.
func Save(paths Paths, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}

	idxTmp, err := writeTemp(paths.Index, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(indexFile{
			BuildID: a.BuildID,
			Model:   a.Model,
			Dim:     a.Index.Dim(),
			Vectors: a.Index.vectors,
		})
	})
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	metaTmp, err := writeTemp(paths.Metadata, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(metadataFile{
			BuildID: a.BuildID,
			Model:   a.Model,
			Count:   len(a.Records),
			Records: a.Records,
		})
	})
	if err != nil {
		os.Remove(idxTmp)
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := os.Rename(metaTmp, paths.Metadata); err != nil {
		os.Remove(idxTmp)
		os.Remove(metaTmp)
		return fmt.Errorf("rename metadata: %w", err)
	}
	if err := os.Rename(idxTmp, paths.Index); err != nil {
		os.Remove(idxTmp)
		return fmt.Errorf("rename index: %w", err)
	}
	return nil
}

func writeTemp(target string, encode func(*os.File) error) (string, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", err
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Load reads both artifacts and verifies that they belong to the same build
// and have the same number of entries.
func Load(paths Paths) (*Artifact, error) {
	var idx indexFile
	if err := decodeFile(paths.Index, func(f *os.File) error {
		return gob.NewDecoder(f).Decode(&idx)
	}); err != nil {
		return nil, err
	}

	var meta metadataFile
	if err := decodeFile(paths.Metadata, func(f *os.File) error {
		return json.NewDecoder(f).Decode(&meta)
	}); err != nil {
		return nil, err
	}

	if idx.BuildID != meta.BuildID {
		return nil, fmt.Errorf("%w: index build %q, metadata build %q",
			ErrArtifactMismatch, idx.BuildID, meta.BuildID)
	}
	if idx.Model != meta.Model {
		return nil, fmt.Errorf("%w: index model %q, metadata model %q",
			ErrArtifactMismatch, idx.Model, meta.Model)
	}
	if meta.Count != len(meta.Records) {
		return nil, fmt.Errorf("%w: metadata declares %d records, holds %d",
			ErrArtifactCorrupt, meta.Count, len(meta.Records))
	}

	flat, err := BuildFlat(idx.Vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	if flat.Dim() != idx.Dim {
		return nil, fmt.Errorf("%w: header dimension %d, vectors %d",
			ErrArtifactCorrupt, idx.Dim, flat.Dim())
	}

	a := &Artifact{
		BuildID: idx.BuildID,
		Model:   idx.Model,
		Index:   flat,
		Records: meta.Records,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeFile(path string, decode func(*os.File) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := decode(f); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, path, err)
	}
	return nil
}
