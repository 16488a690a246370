// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Stage names one step of the answer pipeline, in execution order.
type Stage string

const (
	StageRouting      Stage = "routing"
	StageExpanding    Stage = "expanding"
	StageRetrieving   Stage = "retrieving"
	StageFusing       Stage = "fusing"
	StageReranking    Stage = "reranking"
	StageDiversifying Stage = "diversifying"
	StageBudgeting    Stage = "budgeting"
	StageGenerating   Stage = "generating"
)

// StageStatus is the outcome of one pipeline stage.
type StageStatus string

const (
	StatusInProgress StageStatus = "in_progress"
	StatusComplete   StageStatus = "complete"
	StatusDegraded   StageStatus = "degraded"
	StatusError      StageStatus = "error"
)

// StageTrace records one status change of a pipeline stage. The ordered
// trace is the contract consumed by progress-reporting UIs.
type StageTrace struct {
	Stage  Stage       `json:"stage" yaml:"stage"`
	Status StageStatus `json:"status" yaml:"status"`
	Detail string      `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// CitationStats summarizes citation coverage of a generated answer.
type CitationStats struct {
	Total        int      `json:"total" yaml:"total"`
	UniquePapers int      `json:"unique_papers" yaml:"unique_papers"`
	UniquePages  int      `json:"unique_pages" yaml:"unique_pages"`
	Papers       []string `json:"papers,omitempty" yaml:"papers,omitempty"`
}

// Answer is the result of one pipeline run.
type Answer struct {
	// Text is the generated answer. Empty when the pipeline terminated
	// with an error or found no relevant content.
	Text string `json:"text" yaml:"text"`

	// Task is the classified task type the run used.
	Task TaskType `json:"task" yaml:"task"`

	// Citations lists the validated inline citations found in Text.
	Citations []Citation `json:"citations" yaml:"citations"`

	// Anomalies lists citation-like fragments in Text that do not match
	// any chunk in the generation context.
	Anomalies []string `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`

	// Stats summarizes citation coverage.
	Stats CitationStats `json:"stats" yaml:"stats"`

	// Trace holds one entry per executed stage, in execution order.
	Trace []StageTrace `json:"trace" yaml:"trace"`
}
