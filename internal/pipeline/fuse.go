// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "sort"

// DefaultRRFK is the rank-smoothing constant for reciprocal rank
// fusion. Larger values flatten the contribution of top ranks.
const DefaultRRFK = 60

// Fused is one candidate after reciprocal rank fusion across all
// retrieval lists.
type Fused struct {
	ChunkID string
	Score   float64
	// BestRank is the best (lowest) rank the chunk held in any list.
	BestRank int
}

// Fuse merges ranked candidate lists with reciprocal rank fusion: each
// appearance of a chunk at rank r contributes 1/(k+r) to its fused
// score. Ties are broken by best rank in any list, then by chunk id,
// so the output is deterministic regardless of list order.
func Fuse(lists [][]Candidate, k int) []Fused {
	if k <= 0 {
		k = DefaultRRFK
	}
	byID := make(map[string]*Fused)
	for _, list := range lists {
		for _, c := range list {
			f, ok := byID[c.ChunkID]
			if !ok {
				f = &Fused{ChunkID: c.ChunkID, BestRank: c.Rank}
				byID[c.ChunkID] = f
			}
			f.Score += 1.0 / float64(k+c.Rank)
			if c.Rank < f.BestRank {
				f.BestRank = c.Rank
			}
		}
	}

	fused := make([]Fused, 0, len(byID))
	for _, f := range byID {
		fused = append(fused, *f)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		if fused[i].BestRank != fused[j].BestRank {
			return fused[i].BestRank < fused[j].BestRank
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})
	return fused
}
