// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// TaskType categorizes the intent of a user question. Classification
// happens once per request and never changes mid-pipeline.
type TaskType string

const (
	TaskQA        TaskType = "qa"
	TaskSummarize TaskType = "summarize"
	TaskCompare   TaskType = "compare"
	TaskExplain   TaskType = "explain"
)

// ParseTaskType validates a task type string (e.g. from a CLI flag).
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(s) {
	case TaskQA, TaskSummarize, TaskCompare, TaskExplain:
		return TaskType(s), nil
	}
	return "", fmt.Errorf("unknown task type %q (expected qa, summarize, compare, or explain)", s)
}

// TaskProfile bundles the retrieval and generation parameters tuned for
// one task type. Profiles are a static lookup table, never mutated at
// runtime.
type TaskProfile struct {
	// Task identifies which profile this is.
	Task TaskType `json:"task" yaml:"task" mapstructure:"task"`

	// TopKRetrieve bounds each retrieval list and the reranker input.
	TopKRetrieve int `json:"top_k_retrieve" yaml:"top_k_retrieve" mapstructure:"top_k_retrieve"`

	// TopNFinal is the number of chunks the diversifier selects.
	TopNFinal int `json:"top_n_final" yaml:"top_n_final" mapstructure:"top_n_final"`

	// DiversityLambda is the MMR relevance/diversity trade-off. Higher
	// values favor relevance, lower values favor cross-paper coverage.
	DiversityLambda float64 `json:"diversity_lambda" yaml:"diversity_lambda" mapstructure:"diversity_lambda"`

	// MaxContextTokens is the token ceiling for the selected context.
	MaxContextTokens int `json:"max_context_tokens" yaml:"max_context_tokens" mapstructure:"max_context_tokens"`

	// PromptTemplate is the generation prompt. It receives .Context and
	// .Query via text/template.
	PromptTemplate string `json:"-" yaml:"-" mapstructure:"-"`
}
