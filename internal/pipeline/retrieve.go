// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/internal/genai"
	"github.com/pdiddy/paper-brain/internal/index"
)

// Candidate is one retrieval hit inside a single ranked list.
type Candidate struct {
	ChunkID string
	Source  string // "semantic" or "lexical"
	Rank    int    // 1-based position within its list
	Score   float64
}

// Retriever runs hybrid retrieval: for every query variation it issues
// a semantic search over the vector index and a lexical search over
// the FTS index, producing one ranked list per (variation, mode) pair.
type Retriever struct {
	embedder Embedder
	index    *index.Index
	logger   *zap.Logger
}

func NewRetriever(emb Embedder, ix *index.Index, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{embedder: emb, index: ix, logger: logger}
}

// Retrieve fans out over the variations and collects the ranked lists.
// A failed search contributes an empty list rather than failing the
// stage; empty lists are dropped from the result.
func (r *Retriever) Retrieve(ctx context.Context, variations []string, k int) [][]Candidate {
	type slot struct {
		idx  int
		list []Candidate
	}
	results := make(chan slot, 2*len(variations))

	var wg sync.WaitGroup
	for i, v := range variations {
		wg.Add(2)
		go func(i int, query string) {
			defer wg.Done()
			results <- slot{idx: 2 * i, list: r.semantic(ctx, query, k)}
		}(i, v)
		go func(i int, query string) {
			defer wg.Done()
			results <- slot{idx: 2*i + 1, list: r.lexical(ctx, query, k)}
		}(i, v)
	}
	wg.Wait()
	close(results)

	ordered := make([][]Candidate, 2*len(variations))
	for s := range results {
		ordered[s.idx] = s.list
	}

	var lists [][]Candidate
	for _, l := range ordered {
		if len(l) > 0 {
			lists = append(lists, l)
		}
	}
	return lists
}

func (r *Retriever) semantic(ctx context.Context, query string, k int) []Candidate {
	vec, err := r.embedder.Embed(ctx, query, genai.EmbedQuery)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	hits := r.index.Vectors.Search(vec, k)
	return toCandidates(hits, "semantic")
}

func (r *Retriever) lexical(ctx context.Context, query string, k int) []Candidate {
	hits, err := r.index.Store.SearchLexical(ctx, query, k)
	if err != nil {
		r.logger.Warn("lexical search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	return toCandidates(hits, "lexical")
}

func toCandidates(hits []index.Hit, source string) []Candidate {
	out := make([]Candidate, len(hits))
	for i, h := range hits {
		out[i] = Candidate{ChunkID: h.ChunkID, Source: source, Rank: i + 1, Score: h.Score}
	}
	return out
}
