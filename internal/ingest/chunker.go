// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"strings"

	"github.com/pdiddy/paper-brain/internal/tokens"
	"github.com/pdiddy/paper-brain/pkg/types"
)

// DefaultChunkTokens is the target chunk size.
const DefaultChunkTokens = 512

// ChunkPaper splits every page of the paper into chunks of roughly
// target tokens. Chunks never span a page boundary, since a chunk's
// page number backs the citation format. Chunk ids follow
// "[paperID]-p[page]-c[n]".
func ChunkPaper(p types.Paper, target int) []types.Chunk {
	if target <= 0 {
		target = DefaultChunkTokens
	}
	var chunks []types.Chunk
	for _, page := range p.Pages {
		for i, text := range splitPage(page.Text, target) {
			chunks = append(chunks, types.Chunk{
				ID:         fmt.Sprintf("%s-p%d-c%d", sanitizeID(p.ID), page.Number, i),
				PaperID:    p.ID,
				PaperTitle: p.Title,
				Page:       page.Number,
				Text:       text,
				Tokens:     tokens.Count(text),
			})
		}
	}
	return chunks
}

// splitPage packs paragraphs into chunks up to the token target. A
// paragraph larger than the target is split on word boundaries.
func splitPage(text string, target int) []string {
	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if tokens.Count(para) > target {
			pieces = append(pieces, splitWords(para, target)...)
		} else {
			pieces = append(pieces, para)
		}
	}

	var out []string
	var current []string
	currentTokens := 0
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, "\n\n"))
			current = nil
			currentTokens = 0
		}
	}
	for _, piece := range pieces {
		n := tokens.Count(piece)
		if currentTokens+n > target {
			flush()
		}
		current = append(current, piece)
		currentTokens += n
	}
	flush()
	return out
}

// splitWords breaks an oversized paragraph into word-bounded spans
// that each fit the token target.
func splitWords(text string, target int) []string {
	words := strings.Fields(text)
	var out []string
	var current []string
	currentTokens := 0
	for _, w := range words {
		n := tokens.Count(w) + 1
		if currentTokens+n > target && len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
		current = append(current, w)
		currentTokens += n
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}
