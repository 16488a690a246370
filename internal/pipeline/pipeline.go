// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline turns a user question and a loaded document set into
// a cited answer. One run flows through routing, query expansion,
// hybrid retrieval, rank fusion, reranking, paper-aware
// diversification, token budgeting, and generation. Runs own all their
// intermediate state, so concurrent runs against the same session index
// are safe.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/internal/genai"
	"github.com/pdiddy/paper-brain/internal/index"
	"github.com/pdiddy/paper-brain/pkg/types"
)

// Generator abstracts the generation model so tests can supply a stub.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder abstracts the embedding model. Queries are embedded with
// genai.EmbedQuery; documents were embedded with genai.EmbedDocument
// at ingestion.
type Embedder interface {
	Embed(ctx context.Context, text string, mode genai.EmbedMode) ([]float64, error)
}

// NoRelevantContentMessage is returned as the answer text when
// retrieval produces no candidates at all.
const NoRelevantContentMessage = "No relevant content found in the loaded papers for this question."

// Request is one question against a loaded document set.
type Request struct {
	// Query is the user's question.
	Query string

	// TaskOverride skips classification when set.
	TaskOverride types.TaskType

	// Progress, when set, receives an in_progress event as each stage
	// starts and the terminal event for the stage once it settles. The
	// returned Answer.Trace holds the terminal events only.
	Progress func(types.StageTrace)
}

// Pipeline wires the stages together. A Pipeline is safe for
// concurrent use; per-run state lives on the stack of Answer.
type Pipeline struct {
	router    *Router
	expander  *Expander
	reranker  *Reranker
	composer  *Composer
	embedder  Embedder
	cfg       types.PipelineConfig
	logger    *zap.Logger
}

// New builds a Pipeline around a generator and embedder. The generator
// is used by classification, expansion, reranking, and final
// generation; each stage applies its own fallback policy when it fails.
func New(gen Generator, emb Embedder, cfg types.PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	if cfg.CrossPaperSimilarity <= 0 {
		cfg.CrossPaperSimilarity = DefaultCrossPaperSimilarity
	}
	if cfg.ExpansionCount <= 0 {
		cfg.ExpansionCount = DefaultExpansionCount
	}
	return &Pipeline{
		router:   NewRouter(&LLMClassifier{Gen: gen}, logger),
		expander: NewExpander(gen, cfg.ExpansionCount, logger),
		reranker: NewReranker(gen, logger),
		composer: NewComposer(gen, logger),
		embedder: emb,
		cfg:      cfg,
		logger:   logger,
	}
}

// OverrideProfiles adjusts the numeric task-profile parameters from
// configuration. Must be called before Answer is in use.
func (p *Pipeline) OverrideProfiles(overrides []types.TaskProfile) {
	p.router.Override(overrides)
}

// trace accumulates stage outcomes for one run and streams every
// status change, including stage starts, to the run's observer.
type trace struct {
	entries []types.StageTrace
	observe func(types.StageTrace)
}

func (t *trace) begin(stage types.Stage) {
	t.emit(types.StageTrace{Stage: stage, Status: types.StatusInProgress})
}

func (t *trace) add(stage types.Stage, status types.StageStatus, detail string) {
	e := types.StageTrace{Stage: stage, Status: status, Detail: detail}
	t.entries = append(t.entries, e)
	t.emit(e)
}

func (t *trace) emit(e types.StageTrace) {
	if t.observe != nil {
		t.observe(e)
	}
}

// Answer runs the full pipeline for one request against a session
// index. Recoverable stage failures degrade and continue; terminal
// failures return an error alongside the partial trace in the Answer.
func (p *Pipeline) Answer(ctx context.Context, req Request, ix *index.Index) (*types.Answer, error) {
	tr := &trace{observe: req.Progress}
	ans := &types.Answer{}

	// Routing. Falls back to the QA profile on classifier failure.
	tr.begin(types.StageRouting)
	profile, degraded := p.router.Route(ctx, req.Query, req.TaskOverride)
	ans.Task = profile.Task
	if degraded {
		tr.add(types.StageRouting, types.StatusDegraded,
			fmt.Sprintf("classifier unavailable, defaulted to %s", profile.Task))
	} else {
		tr.add(types.StageRouting, types.StatusComplete, string(profile.Task))
	}

	// Expanding. Falls back to the original query alone.
	tr.begin(types.StageExpanding)
	variations, degraded := p.expander.Expand(ctx, req.Query)
	if degraded {
		tr.add(types.StageExpanding, types.StatusDegraded, "expansion failed, using original query only")
	} else {
		tr.add(types.StageExpanding, types.StatusComplete,
			fmt.Sprintf("%d query variations", len(variations)))
	}

	// Retrieving. An unusable index is terminal.
	tr.begin(types.StageRetrieving)
	if ix == nil || ix.Store == nil {
		tr.add(types.StageRetrieving, types.StatusError, "index unavailable")
		ans.Trace = tr.entries
		return ans, ErrIndexUnavailable
	}
	if _, err := ix.Store.Size(ctx); err != nil {
		tr.add(types.StageRetrieving, types.StatusError, err.Error())
		ans.Trace = tr.entries
		return ans, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	retriever := NewRetriever(p.embedder, ix, p.logger)
	lists := retriever.Retrieve(ctx, variations, profile.TopKRetrieve)
	tr.add(types.StageRetrieving, types.StatusComplete,
		fmt.Sprintf("%d result lists from %d variations", len(lists), len(variations)))

	// Fusing. An empty fused set short-circuits without generation.
	tr.begin(types.StageFusing)
	fused := Fuse(lists, p.cfg.RRFK)
	if len(fused) == 0 {
		tr.add(types.StageFusing, types.StatusDegraded, "no candidates retrieved")
		ans.Text = NoRelevantContentMessage
		ans.Trace = tr.entries
		return ans, nil
	}
	tr.add(types.StageFusing, types.StatusComplete,
		fmt.Sprintf("%d fused candidates", len(fused)))

	if len(fused) > profile.TopKRetrieve {
		fused = fused[:profile.TopKRetrieve]
	}

	tr.begin(types.StageReranking)
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}
	chunks, err := ix.Store.Chunks(ctx, ids)
	if err != nil {
		tr.add(types.StageReranking, types.StatusError, err.Error())
		ans.Trace = tr.entries
		return ans, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	// Reranking. Falls back to the fused order.
	ranked, degraded := p.reranker.Rerank(ctx, req.Query, fused, chunks)
	if degraded {
		tr.add(types.StageReranking, types.StatusDegraded, "rerank output incomplete, keeping fused order")
	} else {
		tr.add(types.StageReranking, types.StatusComplete,
			fmt.Sprintf("%d candidates rescored", len(ranked)))
	}

	// Diversifying.
	tr.begin(types.StageDiversifying)
	selected := Diversify(ranked, profile.TopNFinal, profile.DiversityLambda, p.cfg.CrossPaperSimilarity)
	papers := distinctPapers(selected)
	tr.add(types.StageDiversifying, types.StatusComplete,
		fmt.Sprintf("%d chunks from %d papers", len(selected), papers))

	// Budgeting.
	tr.begin(types.StageBudgeting)
	budgeted, truncated := Budget(selected, profile.MaxContextTokens)
	if truncated {
		tr.add(types.StageBudgeting, types.StatusComplete,
			fmt.Sprintf("context compressed to %d tokens", totalTokens(budgeted)))
	} else {
		tr.add(types.StageBudgeting, types.StatusComplete,
			fmt.Sprintf("context within budget at %d tokens", totalTokens(budgeted)))
	}

	// Generating. Failures here are terminal.
	tr.begin(types.StageGenerating)
	result, err := p.composer.Compose(ctx, req.Query, profile, budgeted)
	if err != nil {
		tr.add(types.StageGenerating, types.StatusError, err.Error())
		ans.Trace = tr.entries
		if errors.Is(err, genai.ErrQuotaExhausted) {
			return ans, &GenerationError{Err: err}
		}
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return ans, err
		}
		return ans, &GenerationError{Err: err}
	}

	status := types.StatusComplete
	detail := fmt.Sprintf("%d citations across %d papers", result.Stats.Total, result.Stats.UniquePapers)
	if len(result.Anomalies) > 0 {
		status = types.StatusDegraded
		detail = fmt.Sprintf("%s; %d unmatched citation(s)", detail, len(result.Anomalies))
	}
	tr.add(types.StageGenerating, status, detail)

	ans.Text = result.Text
	ans.Citations = result.Citations
	ans.Anomalies = result.Anomalies
	ans.Stats = result.Stats
	ans.Trace = tr.entries
	return ans, nil
}

func distinctPapers(selected []Ranked) int {
	seen := make(map[string]bool)
	for _, r := range selected {
		seen[r.Chunk.PaperID] = true
	}
	return len(seen)
}

func totalTokens(chunks []SelectedChunk) int {
	var n int
	for _, c := range chunks {
		n += c.Tokens
	}
	return n
}
