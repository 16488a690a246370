// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/pkg/types"
)

const citationRules = `Cite every claim with the source excerpt's tag in the form
[Paper Title, Page N]. Use only the excerpts below; if they do not
contain the answer, say so.`

const qaTemplate = `Answer the question directly and concisely from the excerpts.
` + citationRules + `

Question: {{.Query}}

Excerpts:
{{.Context}}`

const summarizeTemplate = `Summarize what the excerpts say about the topic of the request.
Cover each paper that appears and note its main contribution.
` + citationRules + `

Request: {{.Query}}

Excerpts:
{{.Context}}`

const compareTemplate = `Compare and contrast what the papers in the excerpts say about the
request. Organize by point of comparison, not by paper, and make
disagreements explicit.
` + citationRules + `

Request: {{.Query}}

Excerpts:
{{.Context}}`

const explainTemplate = `Explain the concept or method in the request in depth, building up
from the background the excerpts provide. Prefer the papers' own
definitions and examples.
` + citationRules + `

Request: {{.Query}}

Excerpts:
{{.Context}}`

// citationPattern matches the [Paper Title, Page N] tags the prompt
// instructs the model to emit.
var citationPattern = regexp.MustCompile(`\[([^\[\],]+), Page (\d+)\]`)

// Composition carries the generated answer plus its validated
// citation accounting.
type Composition struct {
	Text      string
	Citations []types.Citation
	Anomalies []string
	Stats     types.CitationStats
}

// Composer renders the task prompt around the budgeted context and
// runs the final generation, then validates every citation the model
// emitted against the chunks it was actually shown.
type Composer struct {
	gen    Generator
	logger *zap.Logger
}

func NewComposer(gen Generator, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{gen: gen, logger: logger}
}

func (c *Composer) Compose(ctx context.Context, query string, profile types.TaskProfile, chunks []SelectedChunk) (*Composition, error) {
	tmpl, err := template.New(string(profile.Task)).Parse(profile.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse %s prompt template: %w", profile.Task, err)
	}

	var prompt strings.Builder
	data := struct {
		Query   string
		Context string
	}{Query: query, Context: renderContext(chunks)}
	if err := tmpl.Execute(&prompt, data); err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", profile.Task, err)
	}

	text, err := c.gen.Generate(ctx, prompt.String())
	if err != nil {
		return nil, err
	}

	result := &Composition{Text: text}
	result.Citations, result.Anomalies, result.Stats = validateCitations(text, chunks)
	for _, a := range result.Anomalies {
		c.logger.Warn("citation does not match any context chunk", zap.String("citation", a))
	}
	return result, nil
}

// renderContext tags each chunk with the citation form the prompt asks
// the model to reuse.
func renderContext(chunks []SelectedChunk) string {
	var sb strings.Builder
	for _, ch := range chunks {
		fmt.Fprintf(&sb, "[%s, Page %d]\n%s\n\n", ch.Chunk.PaperTitle, ch.Chunk.Page, ch.Text)
	}
	return sb.String()
}

// validateCitations extracts every citation tag from the answer and
// checks it against the (title, page) pairs present in the context.
// Unmatched tags are reported as anomalies rather than dropped, so
// the caller can surface them.
func validateCitations(text string, chunks []SelectedChunk) ([]types.Citation, []string, types.CitationStats) {
	known := make(map[types.Citation]bool, len(chunks))
	for _, ch := range chunks {
		known[types.Citation{PaperTitle: ch.Chunk.PaperTitle, Page: ch.Chunk.Page}] = true
	}

	var citations []types.Citation
	var anomalies []string
	seen := make(map[types.Citation]bool)
	papers := make(map[string]bool)

	stats := types.CitationStats{}
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		page, err := strconv.Atoi(m[2])
		if err != nil {
			anomalies = append(anomalies, m[0])
			continue
		}
		cit := types.Citation{PaperTitle: strings.TrimSpace(m[1]), Page: page}
		if !known[cit] {
			anomalies = append(anomalies, m[0])
			continue
		}
		stats.Total++
		if !papers[cit.PaperTitle] {
			papers[cit.PaperTitle] = true
			stats.Papers = append(stats.Papers, cit.PaperTitle)
		}
		if !seen[cit] {
			seen[cit] = true
			stats.UniquePages++
			citations = append(citations, cit)
		}
	}
	stats.UniquePapers = len(papers)
	sort.Strings(stats.Papers)
	return citations, anomalies, stats
}
