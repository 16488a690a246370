// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search finds candidate papers for a research question. A
// question is rewritten into a keyword query, sent to arXiv, and the
// results are reranked by embedding similarity between the question
// and each abstract.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/internal/genai"
	"github.com/pdiddy/paper-brain/pkg/types"
)

// Generator abstracts the rewrite model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder abstracts the embedding model used for abstract ranking.
type Embedder interface {
	Embed(ctx context.Context, text string, mode genai.EmbedMode) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string, mode genai.EmbedMode) ([][]float64, error)
}

// Backend is a paper search source.
type Backend interface {
	Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Paper, error)
}

const rewritePrompt = `Rewrite the research question below as a short keyword query for an
academic paper search engine. Keep only the essential technical terms.
Reply with the query text only.

Question: %s`

// Discovery orchestrates rewrite, backend search, and abstract
// ranking. Rewrite and ranking degrade independently; only the backend
// search itself is required to succeed.
type Discovery struct {
	backend  Backend
	gen      Generator
	embedder Embedder
	cfg      types.SearchConfig
	logger   *zap.Logger
}

func NewDiscovery(backend Backend, gen Generator, emb Embedder, cfg types.SearchConfig, logger *zap.Logger) *Discovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{backend: backend, gen: gen, embedder: emb, cfg: cfg, logger: logger}
}

// Discover returns candidate papers for the question, most relevant
// first.
func (d *Discovery) Discover(ctx context.Context, question string) ([]types.Paper, error) {
	query := d.rewrite(ctx, question)

	papers, err := d.backend.Search(ctx, query, d.cfg)
	if err != nil {
		return nil, fmt.Errorf("paper search: %w", err)
	}
	if len(papers) == 0 {
		return nil, nil
	}

	d.rankByAbstract(ctx, question, papers)
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].RelevanceScore > papers[j].RelevanceScore
	})
	return papers, nil
}

// rewrite turns the question into a keyword query, falling back to the
// question verbatim when the model is unavailable or replies with
// something unusable.
func (d *Discovery) rewrite(ctx context.Context, question string) string {
	if d.gen == nil {
		return question
	}
	out, err := d.gen.Generate(ctx, fmt.Sprintf(rewritePrompt, question))
	if err != nil {
		d.logger.Warn("query rewrite failed, searching with raw question", zap.Error(err))
		return question
	}
	query := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	if query == "" {
		return question
	}
	return query
}

// rankByAbstract overwrites the position-based scores with embedding
// similarity between the question and each abstract. On any embedding
// failure the position-based scores stand.
func (d *Discovery) rankByAbstract(ctx context.Context, question string, papers []types.Paper) {
	if d.embedder == nil {
		return
	}
	qVec, err := d.embedder.Embed(ctx, question, genai.EmbedQuery)
	if err != nil {
		d.logger.Warn("question embedding failed, keeping position ranking", zap.Error(err))
		return
	}

	abstracts := make([]string, len(papers))
	for i, p := range papers {
		abstracts[i] = p.Abstract
	}
	vecs, err := d.embedder.EmbedBatch(ctx, abstracts, genai.EmbedDocument)
	if err != nil || len(vecs) != len(papers) {
		d.logger.Warn("abstract embedding failed, keeping position ranking", zap.Error(err))
		return
	}

	for i := range papers {
		papers[i].RelevanceScore = cosine(qVec, vecs[i])
	}
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
