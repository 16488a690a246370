// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/pkg/types"
)

// Classifier assigns a task type to a raw query.
type Classifier interface {
	Classify(ctx context.Context, query string) (types.TaskType, error)
}

// DefaultProfiles returns the per-task retrieval and generation
// parameters. Summarization casts the widest net; direct QA the
// narrowest.
func DefaultProfiles() map[types.TaskType]types.TaskProfile {
	return map[types.TaskType]types.TaskProfile{
		types.TaskQA: {
			Task:             types.TaskQA,
			TopKRetrieve:     5,
			TopNFinal:        3,
			DiversityLambda:  0.5,
			MaxContextTokens: 10000,
			PromptTemplate:   qaTemplate,
		},
		types.TaskSummarize: {
			Task:             types.TaskSummarize,
			TopKRetrieve:     15,
			TopNFinal:        8,
			DiversityLambda:  0.8,
			MaxContextTokens: 25000,
			PromptTemplate:   summarizeTemplate,
		},
		types.TaskCompare: {
			Task:             types.TaskCompare,
			TopKRetrieve:     20,
			TopNFinal:        8,
			DiversityLambda:  0.5,
			MaxContextTokens: 20000,
			PromptTemplate:   compareTemplate,
		},
		types.TaskExplain: {
			Task:             types.TaskExplain,
			TopKRetrieve:     10,
			TopNFinal:        6,
			DiversityLambda:  0.6,
			MaxContextTokens: 18000,
			PromptTemplate:   explainTemplate,
		},
	}
}

const classifyPrompt = `Classify the research question below into exactly one category.

Categories:
- qa: a direct factual question answerable from a specific passage
- summarize: a request for an overview or summary of one or more papers
- compare: a request to contrast methods, results, or claims across papers
- explain: a request to explain a concept, method, or result in depth

Reply with the category name only.

Question: %s`

// LLMClassifier classifies queries with a single generation call.
type LLMClassifier struct {
	Gen Generator
}

func (c *LLMClassifier) Classify(ctx context.Context, query string) (types.TaskType, error) {
	out, err := c.Gen.Generate(ctx, fmt.Sprintf(classifyPrompt, query))
	if err != nil {
		return "", err
	}
	task, err := types.ParseTaskType(strings.ToLower(strings.TrimSpace(out)))
	if err != nil {
		return "", fmt.Errorf("classify query: %w", err)
	}
	return task, nil
}

// Router picks the task profile for a query, defaulting to QA when
// classification fails or returns an unknown label.
type Router struct {
	classifier Classifier
	profiles   map[types.TaskType]types.TaskProfile
	logger     *zap.Logger
}

func NewRouter(c Classifier, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{classifier: c, profiles: DefaultProfiles(), logger: logger}
}

// Override replaces the numeric parameters of matching task profiles.
// Zero-valued fields keep their defaults; prompt templates are never
// overridden. Call before the pipeline starts serving requests.
func (r *Router) Override(overrides []types.TaskProfile) {
	for _, o := range overrides {
		p, ok := r.profiles[o.Task]
		if !ok {
			r.logger.Warn("profile override for unknown task ignored", zap.String("task", string(o.Task)))
			continue
		}
		if o.TopKRetrieve > 0 {
			p.TopKRetrieve = o.TopKRetrieve
		}
		if o.TopNFinal > 0 {
			p.TopNFinal = o.TopNFinal
		}
		if o.DiversityLambda > 0 {
			p.DiversityLambda = o.DiversityLambda
		}
		if o.MaxContextTokens > 0 {
			p.MaxContextTokens = o.MaxContextTokens
		}
		r.profiles[o.Task] = p
	}
}

// Route returns the profile for the query and whether the router
// degraded to the QA default. An explicit override bypasses the
// classifier entirely.
func (r *Router) Route(ctx context.Context, query string, override types.TaskType) (types.TaskProfile, bool) {
	if override != "" {
		if p, ok := r.profiles[override]; ok {
			return p, false
		}
	}
	task, err := r.classifier.Classify(ctx, query)
	if err != nil {
		r.logger.Warn("query classification failed, defaulting to qa", zap.Error(err))
		return r.profiles[types.TaskQA], true
	}
	p, ok := r.profiles[task]
	if !ok {
		r.logger.Warn("classifier returned unknown task, defaulting to qa", zap.String("task", string(task)))
		return r.profiles[types.TaskQA], true
	}
	return p, false
}
