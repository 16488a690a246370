// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/pkg/types"
)

// Ranked is a candidate carrying its chunk and both its fused and
// model-assigned relevance scores.
type Ranked struct {
	Chunk      types.Chunk
	FusedScore float64
	Relevance  float64
}

const rerankPrompt = `Score how relevant each excerpt is to the question on a 0-10 scale,
where 10 means the excerpt directly answers the question and 0 means
it is unrelated. Reply with a JSON array only, one object per excerpt:
[{"id": "<excerpt id>", "score": <number>}]

Question: %s

Excerpts:
%s`

type rerankScore struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Reranker rescores fused candidates with a single generation call.
type Reranker struct {
	gen    Generator
	logger *zap.Logger
}

func NewReranker(gen Generator, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{gen: gen, logger: logger}
}

// Rerank asks the model to score every candidate against the query and
// reorders by score. On a failed call or unparseable reply it keeps
// the fused order, assigning descending synthetic relevance so that
// downstream stages see the same ordering either way. When only some
// candidates come back scored, the unscored ones hold their fused
// positions with relevance interpolated into the returned score range,
// and the scored ones fill the remaining slots by score. The second
// return reports whether the stage degraded.
func (r *Reranker) Rerank(ctx context.Context, query string, fused []Fused, chunks []types.Chunk) ([]Ranked, bool) {
	n := len(chunks)
	if n == 0 {
		return nil, false
	}

	var sb strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&sb, "[%s] %s\n\n", c.ID, c.Text)
	}

	out, err := r.gen.Generate(ctx, fmt.Sprintf(rerankPrompt, query, sb.String()))
	if err != nil {
		r.logger.Warn("rerank call failed", zap.Error(err))
		return fallbackOrder(fused, chunks), true
	}

	scores := parseScores(out)
	if len(scores) == 0 {
		r.logger.Warn("rerank reply unparseable")
		return fallbackOrder(fused, chunks), true
	}

	ranked := make([]Ranked, n)
	var scored []Ranked
	var openSlots, held []int
	for i, c := range chunks {
		if s, ok := scores[c.ID]; ok {
			scored = append(scored, Ranked{Chunk: c, FusedScore: fused[i].Score, Relevance: s})
			openSlots = append(openSlots, i)
		} else {
			ranked[i] = Ranked{Chunk: c, FusedScore: fused[i].Score}
			held = append(held, i)
		}
	}
	if len(scored) == 0 {
		r.logger.Warn("rerank reply scored no known excerpts")
		return fallbackOrder(fused, chunks), true
	}
	// Held chunks keep their fused standing. Their synthetic relevance is
	// interpolated into the score range the model actually used, keeping
	// both populations on one scale.
	lo, hi := scoreRange(scored)
	for _, i := range held {
		ranked[i].Relevance = lo + (hi-lo)*fallbackRelevance(i, n)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Relevance > scored[j].Relevance })
	for i, slot := range openSlots {
		ranked[slot] = scored[i]
	}

	return ranked, incomplete(scores, chunks)
}

// parseScores tolerates prose around the JSON array by scanning for
// the outermost brackets.
func parseScores(out string) map[string]float64 {
	start := strings.Index(out, "[")
	end := strings.LastIndex(out, "]")
	if start < 0 || end <= start {
		return nil
	}
	var raw []rerankScore
	if err := json.Unmarshal([]byte(out[start:end+1]), &raw); err != nil {
		return nil
	}
	scores := make(map[string]float64, len(raw))
	for _, s := range raw {
		scores[s.ID] = s.Score
	}
	return scores
}

func scoreRange(scored []Ranked) (lo, hi float64) {
	lo, hi = scored[0].Relevance, scored[0].Relevance
	for _, s := range scored[1:] {
		if s.Relevance < lo {
			lo = s.Relevance
		}
		if s.Relevance > hi {
			hi = s.Relevance
		}
	}
	return lo, hi
}

func incomplete(scores map[string]float64, chunks []types.Chunk) bool {
	for _, c := range chunks {
		if _, ok := scores[c.ID]; !ok {
			return true
		}
	}
	return false
}

// fallbackOrder preserves the fused ranking with synthetic relevance
// scores that decay linearly, so diversification behaves the same as
// it would on a genuine monotone scoring.
func fallbackOrder(fused []Fused, chunks []types.Chunk) []Ranked {
	n := len(chunks)
	ranked := make([]Ranked, n)
	for i, c := range chunks {
		ranked[i] = Ranked{Chunk: c, FusedScore: fused[i].Score, Relevance: fallbackRelevance(i, n)}
	}
	return ranked
}

func fallbackRelevance(i, n int) float64 {
	return float64(n-i) / float64(n)
}
