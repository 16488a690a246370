// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

// DefaultCrossPaperSimilarity is the similarity assumed between chunks
// from different papers when diversifying. Chunks from the same paper
// are treated as fully similar.
const DefaultCrossPaperSimilarity = 0.3

// Diversify selects up to n chunks with paper-aware maximal marginal
// relevance. Relevance scores are min-max normalized first, so lambda
// trades off on a common scale. The first selection is always the most
// relevant chunk; each further step picks the candidate maximizing
// lambda*relevance - (1-lambda)*maxSim against the already selected
// set, where similarity is 1 within a paper and crossSim across
// papers. Ties keep input order.
func Diversify(ranked []Ranked, n int, lambda, crossSim float64) []Ranked {
	if n <= 0 || len(ranked) == 0 {
		return nil
	}
	if crossSim <= 0 {
		crossSim = DefaultCrossPaperSimilarity
	}
	if n > len(ranked) {
		n = len(ranked)
	}

	rel := normalizeRelevance(ranked)

	selected := make([]Ranked, 0, n)
	selectedPapers := make(map[string]bool)
	remaining := make([]int, len(ranked))
	for i := range remaining {
		remaining[i] = i
	}

	for len(selected) < n && len(remaining) > 0 {
		bestPos := 0
		bestScore := mmrScore(ranked, rel, remaining[0], selectedPapers, lambda, crossSim, len(selected) == 0)
		for pos := 1; pos < len(remaining); pos++ {
			score := mmrScore(ranked, rel, remaining[pos], selectedPapers, lambda, crossSim, len(selected) == 0)
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		idx := remaining[bestPos]
		selected = append(selected, ranked[idx])
		selectedPapers[ranked[idx].Chunk.PaperID] = true
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}

func mmrScore(ranked []Ranked, rel []float64, idx int, selectedPapers map[string]bool, lambda, crossSim float64, first bool) float64 {
	if first {
		return rel[idx]
	}
	sim := crossSim
	if selectedPapers[ranked[idx].Chunk.PaperID] {
		sim = 1.0
	}
	return lambda*rel[idx] - (1-lambda)*sim
}

// normalizeRelevance maps scores onto [0,1]. A constant input maps
// everything to 1 so ordering falls back to input position.
func normalizeRelevance(ranked []Ranked) []float64 {
	min, max := ranked[0].Relevance, ranked[0].Relevance
	for _, r := range ranked[1:] {
		if r.Relevance < min {
			min = r.Relevance
		}
		if r.Relevance > max {
			max = r.Relevance
		}
	}
	rel := make([]float64, len(ranked))
	if max == min {
		for i := range rel {
			rel[i] = 1.0
		}
		return rel
	}
	for i, r := range ranked {
		rel[i] = (r.Relevance - min) / (max - min)
	}
	return rel
}
