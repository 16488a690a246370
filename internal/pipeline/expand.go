// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultExpansionCount is the number of alternative phrasings
// requested from the model in addition to the original query.
const DefaultExpansionCount = 2

const expandPrompt = `Rewrite the research question below as %d alternative phrasings that
a retrieval system could match against academic papers. Vary the
terminology and emphasis but keep the meaning. Reply with one phrasing
per line, no numbering.

Question: %s`

// Expander produces query variations for multi-query retrieval. The
// original query is always the first variation.
type Expander struct {
	gen    Generator
	count  int
	logger *zap.Logger
}

func NewExpander(gen Generator, count int, logger *zap.Logger) *Expander {
	if count <= 0 {
		count = DefaultExpansionCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{gen: gen, count: count, logger: logger}
}

// Expand returns the original query plus up to count rewrites, and
// whether the stage degraded to the original query alone. Duplicate
// and empty rewrites are dropped.
func (e *Expander) Expand(ctx context.Context, query string) ([]string, bool) {
	out, err := e.gen.Generate(ctx, fmt.Sprintf(expandPrompt, e.count, query))
	if err != nil {
		e.logger.Warn("query expansion failed", zap.Error(err))
		return []string{query}, true
	}

	variations := []string{query}
	seen := map[string]bool{normalize(query): true}
	for _, line := range strings.Split(out, "\n") {
		v := strings.TrimSpace(line)
		if v == "" || seen[normalize(v)] {
			continue
		}
		seen[normalize(v)] = true
		variations = append(variations, v)
		if len(variations) == e.count+1 {
			break
		}
	}
	if len(variations) == 1 {
		return variations, true
	}
	return variations, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
