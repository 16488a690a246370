// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-brain/internal/genai"
	"github.com/pdiddy/paper-brain/internal/index"
	"github.com/pdiddy/paper-brain/pkg/types"
)

// scriptedGen routes each Generate call by recognizing the stage's
// prompt, the way the real model sees them.
type scriptedGen struct {
	classifyReply string
	expandReply   string
	rerankReply   func(prompt string) string
	finalReply    string
	finalErr      error
	finalCalls    int
}

var excerptIDPattern = regexp.MustCompile(`(?m)^\[([A-Za-z0-9_-]+)\] `)

func (s *scriptedGen) Generate(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Classify the research question"):
		return s.classifyReply, nil
	case strings.Contains(prompt, "alternative phrasings"):
		return s.expandReply, nil
	case strings.Contains(prompt, "Score how relevant"):
		if s.rerankReply != nil {
			return s.rerankReply(prompt), nil
		}
		return scoreAllExcerpts(prompt), nil
	default:
		s.finalCalls++
		if s.finalErr != nil {
			return "", s.finalErr
		}
		return s.finalReply, nil
	}
}

// scoreAllExcerpts gives every excerpt in the rerank prompt a valid
// score so the happy path completes undegraded.
func scoreAllExcerpts(prompt string) string {
	var scores []map[string]any
	for i, m := range excerptIDPattern.FindAllStringSubmatch(prompt, -1) {
		scores = append(scores, map[string]any{"id": m[1], "score": 10 - i})
	}
	b, _ := json.Marshal(scores)
	return string(b)
}

// stubEmbedder returns the same unit vector for every query, which is
// enough for the flat cosine index to rank seeded chunks. Retrieval
// embeds variations concurrently, so recording is locked.
type stubEmbedder struct {
	mu    sync.Mutex
	modes []genai.EmbedMode
}

func (s *stubEmbedder) Embed(_ context.Context, _ string, mode genai.EmbedMode) ([]float64, error) {
	s.mu.Lock()
	s.modes = append(s.modes, mode)
	s.mu.Unlock()
	return []float64{1, 0.2}, nil
}

func seedIndex(t *testing.T) *index.Index {
	t.Helper()
	ix, err := index.New()
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	ctx := context.Background()
	papers := []types.Paper{
		{ID: "attn", Title: "Attention Is All You Need"},
		{ID: "bert", Title: "BERT"},
	}
	for _, p := range papers {
		require.NoError(t, ix.Store.AddPaper(ctx, p))
	}

	chunks := []types.Chunk{
		{ID: "attn-p1-c0", PaperID: "attn", PaperTitle: "Attention Is All You Need", Page: 1,
			Text: "Scaled dot-product attention computes weights from query and key similarity.", Tokens: 12},
		{ID: "attn-p2-c0", PaperID: "attn", PaperTitle: "Attention Is All You Need", Page: 2,
			Text: "Multi-head attention projects queries keys and values into subspaces.", Tokens: 11},
		{ID: "bert-p1-c0", PaperID: "bert", PaperTitle: "BERT", Page: 1,
			Text: "BERT applies bidirectional self-attention in every transformer encoder layer.", Tokens: 12},
		{ID: "bert-p2-c0", PaperID: "bert", PaperTitle: "BERT", Page: 2,
			Text: "Masked language modeling trains attention over both left and right context.", Tokens: 13},
	}
	require.NoError(t, ix.Store.AddChunks(ctx, chunks))

	vecs := [][]float64{{1, 0.1}, {0.9, 0.3}, {0.8, 0.4}, {0.7, 0.5}}
	for i, c := range chunks {
		ix.Vectors.Add(c.ID, vecs[i])
	}
	return ix
}

func newTestPipeline(gen Generator, emb Embedder) *Pipeline {
	return New(gen, emb, types.DefaultPipelineConfig(), nil)
}

func TestAnswerCompareEndToEnd(t *testing.T) {
	gen := &scriptedGen{
		classifyReply: "compare",
		expandReply:   "attention mechanism in the transformer\nself-attention in bert",
		finalReply: "The transformer computes attention from query-key similarity " +
			"[Attention Is All You Need, Page 1], while BERT applies it bidirectionally [BERT, Page 1].",
	}
	emb := &stubEmbedder{}
	p := newTestPipeline(gen, emb)

	ans, err := p.Answer(context.Background(), Request{Query: "Compare attention in Transformer vs BERT"}, seedIndex(t))
	require.NoError(t, err)
	assert.Equal(t, types.TaskCompare, ans.Task)
	require.Len(t, ans.Citations, 2)
	assert.Empty(t, ans.Anomalies)

	papers := make(map[string]bool)
	for _, c := range ans.Citations {
		papers[c.PaperTitle] = true
	}
	assert.True(t, papers["Attention Is All You Need"])
	assert.True(t, papers["BERT"])

	// Queries must be embedded in query mode, one call per variation.
	require.NotEmpty(t, emb.modes)
	for _, m := range emb.modes {
		assert.Equal(t, genai.EmbedQuery, m)
	}
	assert.Len(t, emb.modes, 3)

	// Every stage completed.
	require.Len(t, ans.Trace, 8)
	for _, tr := range ans.Trace {
		assert.Equal(t, types.StatusComplete, tr.Status, "stage %s", tr.Stage)
	}
}

func TestAnswerStreamsStageProgress(t *testing.T) {
	gen := &scriptedGen{
		classifyReply: "qa",
		expandReply:   "restated",
		finalReply:    "Attention is weighted similarity [Attention Is All You Need, Page 1].",
	}
	p := newTestPipeline(gen, &stubEmbedder{})

	var events []types.StageTrace
	req := Request{
		Query:    "what is attention?",
		Progress: func(e types.StageTrace) { events = append(events, e) },
	}
	ans, err := p.Answer(context.Background(), req, seedIndex(t))
	require.NoError(t, err)

	// Every stage announces itself before it settles, in execution order.
	stages := []types.Stage{
		types.StageRouting, types.StageExpanding, types.StageRetrieving,
		types.StageFusing, types.StageReranking, types.StageDiversifying,
		types.StageBudgeting, types.StageGenerating,
	}
	require.Len(t, events, 2*len(stages))
	for i, stage := range stages {
		assert.Equal(t, stage, events[2*i].Stage)
		assert.Equal(t, types.StatusInProgress, events[2*i].Status)
		assert.Equal(t, stage, events[2*i+1].Stage)
		assert.Equal(t, types.StatusComplete, events[2*i+1].Status)
	}

	// The returned trace carries the terminal events only.
	require.Len(t, ans.Trace, len(stages))
	for _, tr := range ans.Trace {
		assert.NotEqual(t, types.StatusInProgress, tr.Status)
	}
}

func TestAnswerEmptyIndexShortCircuits(t *testing.T) {
	ix, err := index.New()
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	gen := &scriptedGen{classifyReply: "qa", expandReply: "restated"}
	p := newTestPipeline(gen, &stubEmbedder{})

	ans, err := p.Answer(context.Background(), Request{Query: "anything"}, ix)
	require.NoError(t, err)
	assert.Equal(t, NoRelevantContentMessage, ans.Text)
	assert.Empty(t, ans.Citations)
	assert.Zero(t, gen.finalCalls)

	last := ans.Trace[len(ans.Trace)-1]
	assert.Equal(t, types.StageFusing, last.Stage)
	assert.Equal(t, types.StatusDegraded, last.Status)
}

func TestAnswerNilIndexIsTerminal(t *testing.T) {
	gen := &scriptedGen{classifyReply: "qa", expandReply: "restated"}
	p := newTestPipeline(gen, &stubEmbedder{})

	ans, err := p.Answer(context.Background(), Request{Query: "anything"}, nil)
	require.ErrorIs(t, err, ErrIndexUnavailable)
	require.NotEmpty(t, ans.Trace)
	last := ans.Trace[len(ans.Trace)-1]
	assert.Equal(t, types.StageRetrieving, last.Stage)
	assert.Equal(t, types.StatusError, last.Status)
}

func TestAnswerGenerationFailureIsTerminal(t *testing.T) {
	gen := &scriptedGen{
		classifyReply: "qa",
		expandReply:   "restated",
		finalErr:      genai.ErrQuotaExhausted,
	}
	p := newTestPipeline(gen, &stubEmbedder{})

	ans, err := p.Answer(context.Background(), Request{Query: "what is attention?"}, seedIndex(t))
	require.Error(t, err)
	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, genai.ErrQuotaExhausted)

	last := ans.Trace[len(ans.Trace)-1]
	assert.Equal(t, types.StageGenerating, last.Stage)
	assert.Equal(t, types.StatusError, last.Status)
}

func TestAnswerSurvivesRerankAndExpandFailures(t *testing.T) {
	gen := &scriptedGen{
		classifyReply: "qa",
		expandReply:   "", // nothing usable, expansion degrades
		rerankReply:   func(string) string { return "no scores from me" },
		finalReply:    "Attention is weighted similarity [Attention Is All You Need, Page 1].",
	}
	p := newTestPipeline(gen, &stubEmbedder{})

	ans, err := p.Answer(context.Background(), Request{Query: "what is attention?"}, seedIndex(t))
	require.NoError(t, err)
	assert.NotEmpty(t, ans.Text)
	require.Len(t, ans.Citations, 1)

	byStage := make(map[types.Stage]types.StageStatus)
	for _, tr := range ans.Trace {
		byStage[tr.Stage] = tr.Status
	}
	assert.Equal(t, types.StatusDegraded, byStage[types.StageExpanding])
	assert.Equal(t, types.StatusDegraded, byStage[types.StageReranking])
	assert.Equal(t, types.StatusComplete, byStage[types.StageGenerating])
}

func TestAnswerFlagsInventedCitations(t *testing.T) {
	gen := &scriptedGen{
		classifyReply: "qa",
		expandReply:   "restated",
		finalReply:    "Real [BERT, Page 1]. Invented [Unknown Paper, Page 7].",
	}
	p := newTestPipeline(gen, &stubEmbedder{})

	ans, err := p.Answer(context.Background(), Request{Query: "what does bert do?"}, seedIndex(t))
	require.NoError(t, err)
	require.Len(t, ans.Anomalies, 1)
	assert.Equal(t, "[Unknown Paper, Page 7]", ans.Anomalies[0])

	byStage := make(map[types.Stage]types.StageStatus)
	for _, tr := range ans.Trace {
		byStage[tr.Stage] = tr.Status
	}
	assert.Equal(t, types.StatusDegraded, byStage[types.StageGenerating])
}

func TestAnswerTaskOverride(t *testing.T) {
	gen := &scriptedGen{
		classifyReply: "qa", // must be ignored
		expandReply:   "restated",
		finalReply:    "Summary [BERT, Page 1].",
	}
	p := newTestPipeline(gen, &stubEmbedder{})

	ans, err := p.Answer(context.Background(),
		Request{Query: "summarize bert", TaskOverride: types.TaskSummarize}, seedIndex(t))
	require.NoError(t, err)
	assert.Equal(t, types.TaskSummarize, ans.Task)
}

func TestAnswerEmbeddingFailureFallsBackToLexical(t *testing.T) {
	gen := &scriptedGen{
		classifyReply: "qa",
		expandReply:   "restated attention question",
		finalReply:    "Attention is weighted similarity [Attention Is All You Need, Page 1].",
	}
	p := New(gen, &failingEmbedder{}, types.DefaultPipelineConfig(), nil)

	ans, err := p.Answer(context.Background(), Request{Query: "attention similarity weights"}, seedIndex(t))
	require.NoError(t, err)
	assert.NotEmpty(t, ans.Text)
	assert.NotEqual(t, NoRelevantContentMessage, ans.Text)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string, genai.EmbedMode) ([]float64, error) {
	return nil, errors.New("embedding service down")
}
