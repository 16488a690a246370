// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-brain/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// GenAIConfig holds settings for the generation and embedding API.
type GenAIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the generation model identifier (e.g. "gemini-2.5-flash-lite").
	Model string `json:"model" yaml:"model"`

	// EmbedModel is the embedding model identifier (e.g. "text-embedding-004").
	EmbedModel string `json:"embed_model" yaml:"embed_model"`

	// APIKey is the primary credential.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// SecondaryAPIKey is tried once when the primary reports quota
	// exhaustion. Optional.
	SecondaryAPIKey string `json:"secondary_api_key,omitempty" yaml:"secondary_api_key,omitempty"`

	// Temperature is passed to generation calls.
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// PipelineConfig holds the tunable constants of the retrieval pipeline.
// The fusion and similarity constants have sensible defaults but no
// first-principles optimum; they are configuration, not invariants.
type PipelineConfig struct {
	// RRFK damps the influence of very high ranks in reciprocal rank
	// fusion (default 60).
	RRFK int `json:"rrf_k" yaml:"rrf_k"`

	// CrossPaperSimilarity is the MMR similarity assigned to a candidate
	// whose paper differs from every selected chunk (default 0.3).
	// Same-paper similarity is always 1.0.
	CrossPaperSimilarity float64 `json:"cross_paper_similarity" yaml:"cross_paper_similarity"`

	// ExpansionCount is the number of query rewrites requested in
	// addition to the original query (default 2).
	ExpansionCount int `json:"expansion_count" yaml:"expansion_count"`
}

// DefaultPipelineConfig returns the reference pipeline constants.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RRFK:                 60,
		CrossPaperSimilarity: 0.3,
		ExpansionCount:       2,
	}
}

// SessionConfig holds settings for the in-memory session registry.
type SessionConfig struct {
	// TTL is how long a session survives without activity (default 30m).
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// SweepInterval is how often the background sweep runs (default 5m).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`

	// MaxMessages caps the number of questions per session. Zero means
	// unlimited.
	MaxMessages int `json:"max_messages" yaml:"max_messages"`
}

// IngestConfig holds settings for loading papers into a session index.
type IngestConfig struct {
	// PapersDir is the base directory for papers (contains metadata/ and text/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// ChunkTokens is the target chunk size in tokens (default 512).
	ChunkTokens int `json:"chunk_tokens" yaml:"chunk_tokens"`
}

// SearchConfig holds settings for paper discovery.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of discovery results (default 15).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
