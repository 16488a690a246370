// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/internal/genai"
	"github.com/pdiddy/paper-brain/internal/index"
	"github.com/pdiddy/paper-brain/pkg/types"
)

// embedBatchSize bounds one batchEmbedContents request.
const embedBatchSize = 100

// Embedder abstracts the embedding model for index builds.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, mode genai.EmbedMode) ([][]float64, error)
}

// Builder populates a session index from papers on disk.
type Builder struct {
	embedder Embedder
	cfg      types.IngestConfig
	logger   *zap.Logger
}

func NewBuilder(emb Embedder, cfg types.IngestConfig, logger *zap.Logger) *Builder {
	if cfg.ChunkTokens <= 0 {
		cfg.ChunkTokens = DefaultChunkTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{embedder: emb, cfg: cfg, logger: logger}
}

// Build loads each paper by id, chunks it, embeds the chunks in
// document mode, and adds everything to the index. Progress lines go
// to w. A failure on any paper aborts the build; the pipeline requires
// a complete index or none.
func (b *Builder) Build(ctx context.Context, ix *index.Index, ids []string, w io.Writer) ([]types.Paper, error) {
	var papers []types.Paper
	for _, id := range ids {
		p, err := LoadPaper(b.cfg.PapersDir, id)
		if err != nil {
			return nil, err
		}
		if err := b.addPaper(ctx, ix, p, w); err != nil {
			return nil, fmt.Errorf("indexing paper %s: %w", id, err)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func (b *Builder) addPaper(ctx context.Context, ix *index.Index, p types.Paper, w io.Writer) error {
	chunks := ChunkPaper(p, b.cfg.ChunkTokens)
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced")
	}
	fmt.Fprintf(w, "Indexing %q: %d pages, %d chunks\n", p.Title, len(p.Pages), len(chunks))

	if err := ix.Store.AddPaper(ctx, p); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vecs, err := b.embedder.EmbedBatch(ctx, texts, genai.EmbedDocument)
		if err != nil {
			return fmt.Errorf("embedding chunks: %w", err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vecs), len(batch))
		}

		for i := range batch {
			batch[i].Embedding = vecs[i]
		}
		if err := ix.Store.AddChunks(ctx, batch); err != nil {
			return err
		}
		for i, c := range batch {
			ix.Vectors.Add(c.ID, vecs[i])
		}
	}

	b.logger.Info("paper indexed",
		zap.String("paper_id", p.ID),
		zap.Int("pages", len(p.Pages)),
		zap.Int("chunks", len(chunks)))
	return nil
}
