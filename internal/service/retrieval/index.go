package retrieval

import (
	"cmp"
	"fmt"
	"slices"
	"sync/atomic"
)

// Entry is one product vector. Vectors must already be L2-normalized.
type Entry struct {
	ProductID int64
	Vector    []float32
}

type Hit struct {
	ProductID int64
	Score     float64
}

type snapshot struct {
	dim     int
	entries []Entry
}

// Index is an exact inner-product index. Readers always see a complete
// snapshot; Rebuild swaps in a new one without blocking queries.
type Index struct {
	current atomic.Pointer[snapshot]
}

func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(&snapshot{})
	return idx
}

func (i *Index) Rebuild(entries []Entry) error {
	snap := &snapshot{entries: make([]Entry, 0, len(entries))}

	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("product %d: empty vector", e.ProductID)
		}
		if snap.dim == 0 {
			snap.dim = len(e.Vector)
		}
		if len(e.Vector) != snap.dim {
			return fmt.Errorf("product %d: dimension %d, want %d", e.ProductID, len(e.Vector), snap.dim)
		}
		snap.entries = append(snap.entries, Entry{ProductID: e.ProductID, Vector: slices.Clone(e.Vector)})
	}

	i.current.Store(snap)
	return nil
}

func (i *Index) Len() int {
	return len(i.current.Load().entries)
}

// Query returns up to k hits ordered by descending score. Ties keep index
// order, so a smaller k always yields a prefix of a larger one.
func (i *Index) Query(vec []float32, k int) ([]Hit, error) {
	snap := i.current.Load()
	if len(snap.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vec) != snap.dim {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(vec), snap.dim)
	}

	hits := make([]Hit, len(snap.entries))
	for n, e := range snap.entries {
		hits[n] = Hit{ProductID: e.ProductID, Score: dot(vec, e.Vector)}
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return hits[:min(k, len(hits))], nil
}

// dot is clamped to [-1, 1] to absorb float rounding on unit vectors.
func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return max(-1, min(1, s))
}
