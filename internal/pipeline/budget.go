// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/paper-brain/internal/tokens"
)

// SelectedChunk is a diversified chunk after token budgeting. Text may
// be a truncated form of the original chunk text.
type SelectedChunk struct {
	Ranked
	Text      string
	Tokens    int
	Truncated bool
}

// Budget fits the selected chunks into maxTokens. Chunks that fit
// whole are kept whole; when the total exceeds the budget, every chunk
// is truncated proportionally to its share of the total, with a floor
// of one token per chunk so no selection disappears entirely. The
// second return reports whether any truncation happened.
func Budget(selected []Ranked, maxTokens int) ([]SelectedChunk, bool) {
	if len(selected) == 0 {
		return nil, false
	}

	counts := make([]int, len(selected))
	total := 0
	for i, r := range selected {
		counts[i] = tokens.Count(r.Chunk.Text)
		total += counts[i]
	}

	if maxTokens <= 0 || total <= maxTokens {
		out := make([]SelectedChunk, len(selected))
		for i, r := range selected {
			out[i] = SelectedChunk{Ranked: r, Text: r.Chunk.Text, Tokens: counts[i]}
		}
		return out, false
	}

	alloc := allocate(counts, maxTokens)
	out := make([]SelectedChunk, len(selected))
	for i, r := range selected {
		if alloc[i] >= counts[i] {
			out[i] = SelectedChunk{Ranked: r, Text: r.Chunk.Text, Tokens: counts[i]}
			continue
		}
		text := tokens.Truncate(r.Chunk.Text, alloc[i])
		out[i] = SelectedChunk{Ranked: r, Text: text, Tokens: alloc[i], Truncated: true}
	}
	return out, true
}

// allocate divides the budget proportionally to each chunk's token
// count, keeping at least one token per chunk. If the minimum floor
// pushes the sum over budget, the largest allocations are trimmed
// first until the sum fits.
func allocate(counts []int, budget int) []int {
	total := 0
	for _, c := range counts {
		total += c
	}

	alloc := make([]int, len(counts))
	sum := 0
	for i, c := range counts {
		a := budget * c / total
		if a < 1 {
			a = 1
		}
		alloc[i] = a
		sum += a
	}

	for sum > budget {
		largest := -1
		for i, a := range alloc {
			if a > 1 && (largest < 0 || a > alloc[largest]) {
				largest = i
			}
		}
		if largest < 0 {
			break
		}
		alloc[largest]--
		sum--
	}
	return alloc
}
