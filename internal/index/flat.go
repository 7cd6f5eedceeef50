// Package index provides the exact inner-product vector index and the two
// co-indexed artifacts (vectors and chunk metadata) persisted to disk.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Flat is an exact nearest-neighbor index over unit vectors ranked by inner
// product. It is built once and never modified, so a *Flat may be shared by
// any number of concurrent readers.
type Flat struct {
	dim     int
	vectors [][]float32
}

// BuildFlat builds an index over vectors. Vectors must all have the same,
// non-zero dimension; the slice is copied.
func BuildFlat(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}

	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
		stored[i] = append([]float32(nil), v...)
	}
	return &Flat{dim: dim, vectors: stored}, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Vectors returns a copy of the indexed vectors in position order.
func (f *Flat) Vectors() [][]float32 {
	out := make([][]float32, len(f.vectors))
	for i, v := range f.vectors {
		out[i] = append([]float32(nil), v...)
	}
	return out
}

// Search returns the k positions with the highest inner product against
// query, best first. The result always has k entries: when the index holds
// fewer than k vectors the tail is padded with NotFound positions.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		scored[i] = Neighbor{Position: i, Score: Dot(query, v)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	out := make([]Neighbor, k)
	for i := range out {
		if i < len(scored) {
			out[i] = scored[i]
			continue
		}
		out[i] = Neighbor{Position: NotFound, Score: float32(math.Inf(-1))}
	}
	return out, nil
}

// Dot returns the inner product of two vectors of equal length.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Normalize scales v in place to unit length and returns it. A zero vector
// is left unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) * inv)
	}
	return v
}

// NormalizeAll normalizes every vector in place.
func NormalizeAll(vectors [][]float32) [][]float32 {
	for _, v := range vectors {
		Normalize(v)
	}
	return vectors
}
