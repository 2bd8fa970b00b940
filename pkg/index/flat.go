// Package index implements the exact inner-product vector index and the
// on-disk artifacts it is loaded from.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

// Flat is an exact inner-product index over vectors held in memory. Scores
// are raw inner products, which equal cosine similarity for unit vectors.
//
// Load must complete before the first Search. Search is safe for concurrent
// use.
type Flat struct {
	mu       sync.RWMutex
	dim      int
	data     []float32
	records  []models.Record
	unusable bool
}

var _ types.VectorIndex = (*Flat)(nil)

// Build returns an empty index for vectors of the given dimension.
func Build(dim int) (*Flat, error) {
	if dim < 1 {
		return nil, fmt.Errorf("invalid index dimension %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Load appends vectors and their records. Mismatched counts or a vector of
// the wrong dimension leave the index unusable.
func (f *Flat) Load(ctx context.Context, vectors [][]float32, records []models.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unusable {
		return types.ErrIndexUnusable
	}
	if len(vectors) != len(records) {
		f.poison()
		return &types.IndexSizeMismatchError{Vectors: len(vectors), Records: len(records)}
	}
	for i, v := range vectors {
		if len(v) != f.dim {
			f.poison()
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), f.dim)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := make([]float32, len(f.data), len(f.data)+len(vectors)*f.dim)
	copy(data, f.data)
	for _, v := range vectors {
		data = append(data, v...)
	}
	f.data = data
	f.records = append(f.records, records...)
	return nil
}

func (f *Flat) poison() {
	f.unusable = true
	f.data = nil
	f.records = nil
}

// Search returns up to k entries ranked by descending inner product with
// query. Equal scores keep insertion order.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]models.Hit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.unusable {
		return nil, types.ErrIndexUnusable
	}
	if k < 1 {
		return nil, fmt.Errorf("invalid k %d: must be at least 1", k)
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), f.dim)
	}

	n := len(f.records)
	if k > n {
		k = n
	}
	top := make([]models.Hit, 0, k)
	if k == 0 {
		return top, nil
	}

	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		score := dot(query, f.data[i*f.dim:(i+1)*f.dim])
		if len(top) == k && !outranks(score, i, top[k-1]) {
			continue
		}

		pos := sort.Search(len(top), func(j int) bool { return outranks(score, i, top[j]) })
		if len(top) < k {
			top = append(top, models.Hit{})
		}
		copy(top[pos+1:], top[pos:len(top)-1])
		top[pos] = models.Hit{Ordinal: i, Record: f.records[i], Score: score}
	}

	return top, nil
}

func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

func (f *Flat) Dimension() int {
	return f.dim
}

func outranks(score float32, ordinal int, h models.Hit) bool {
	return score > h.Score || (score == h.Score && ordinal < h.Ordinal)
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
