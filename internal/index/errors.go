package index

import "errors"

var (
	ErrArtifactMissing   = errors.New("index artifact missing")
	ErrArtifactCorrupt   = errors.New("index artifact corrupt")
	ErrArtifactMismatch  = errors.New("index and metadata artifacts do not match")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyIndex        = errors.New("index has no vectors")
)
