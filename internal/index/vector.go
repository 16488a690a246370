// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"math"
	"sort"
	"sync"
)

// VectorIndex is a flat cosine-similarity nearest-neighbor index over
// chunk embeddings. The working set is a handful of papers, so brute
// force beats graph indexes here and stays exactly reproducible.
type VectorIndex struct {
	mu   sync.RWMutex
	ids  []string
	vecs [][]float64
}

// NewVectorIndex creates an empty vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

// Add appends a vector under the given chunk id.
func (x *VectorIndex) Add(id string, vec []float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ids = append(x.ids, id)
	x.vecs = append(x.vecs, vec)
}

// Size returns the number of indexed vectors.
func (x *VectorIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Search returns up to k hits ordered by descending cosine similarity.
// Ties break by insertion order for determinism.
func (x *VectorIndex) Search(query []float64, k int) []Hit {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.ids) == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(x.ids))
	for i, id := range x.ids {
		hits = append(hits, Hit{ChunkID: id, Score: cosine(query, x.vecs[i])})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Index bundles the chunk store and the vector index for one session's
// loaded document set.
type Index struct {
	Store   *Store
	Vectors *VectorIndex
}

// New creates an empty session index backed by an in-memory store.
func New() (*Index, error) {
	store, err := NewStore("", nil)
	if err != nil {
		return nil, err
	}
	return &Index{Store: store, Vectors: NewVectorIndex()}, nil
}

// Close releases the underlying store.
func (ix *Index) Close() error {
	return ix.Store.Close()
}
