// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Chunk is a retrievable span of text from one page of a loaded paper.
// Chunks are created at ingestion and never mutated afterwards.
type Chunk struct {
	// ID is unique within the loaded document set (e.g. "2301.07041-p5-c2").
	ID string `json:"id" yaml:"id"`

	// PaperID matches the Paper the chunk was cut from.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// PaperTitle is carried on the chunk so citations can be rendered
	// without a paper lookup.
	PaperTitle string `json:"paper_title" yaml:"paper_title"`

	// Page is the 1-based page number the chunk starts on.
	Page int `json:"page" yaml:"page"`

	// Text is the chunk content.
	Text string `json:"text" yaml:"text"`

	// Tokens is the token count of Text, computed at ingestion.
	Tokens int `json:"tokens" yaml:"tokens"`

	// Embedding is the document-mode embedding of Text. Held in the
	// in-memory vector index, not persisted with the chunk row.
	Embedding []float64 `json:"-" yaml:"-"`
}

// Citation links a claim in a generated answer to a page of a source paper.
type Citation struct {
	PaperTitle string `json:"paper_title" yaml:"paper_title"`
	Page       int    `json:"page" yaml:"page"`
}
