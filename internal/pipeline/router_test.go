// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-brain/pkg/types"
)

type stubClassifier struct {
	task types.TaskType
	err  error
}

func (s *stubClassifier) Classify(context.Context, string) (types.TaskType, error) {
	return s.task, s.err
}

func TestRouteSelectsClassifiedProfile(t *testing.T) {
	r := NewRouter(&stubClassifier{task: types.TaskCompare}, nil)
	p, degraded := r.Route(context.Background(), "transformer vs bert", "")
	assert.False(t, degraded)
	assert.Equal(t, types.TaskCompare, p.Task)
	assert.Equal(t, 20, p.TopKRetrieve)
	assert.Equal(t, 8, p.TopNFinal)
	assert.Equal(t, 0.5, p.DiversityLambda)
}

func TestRouteDefaultsToQAOnFailure(t *testing.T) {
	r := NewRouter(&stubClassifier{err: errors.New("model down")}, nil)
	p, degraded := r.Route(context.Background(), "anything", "")
	assert.True(t, degraded)
	assert.Equal(t, types.TaskQA, p.Task)
}

func TestRouteDefaultsToQAOnUnknownTask(t *testing.T) {
	r := NewRouter(&stubClassifier{task: "translate"}, nil)
	p, degraded := r.Route(context.Background(), "anything", "")
	assert.True(t, degraded)
	assert.Equal(t, types.TaskQA, p.Task)
}

func TestRouteOverrideSkipsClassifier(t *testing.T) {
	r := NewRouter(&stubClassifier{err: errors.New("must not be called")}, nil)
	p, degraded := r.Route(context.Background(), "anything", types.TaskSummarize)
	assert.False(t, degraded)
	assert.Equal(t, types.TaskSummarize, p.Task)
}

func TestLLMClassifierParsesReply(t *testing.T) {
	c := &LLMClassifier{Gen: fixedGen("  Compare\n")}
	task, err := c.Classify(context.Background(), "a or b?")
	require.NoError(t, err)
	assert.Equal(t, types.TaskCompare, task)
}

func TestLLMClassifierRejectsUnknownLabel(t *testing.T) {
	c := &LLMClassifier{Gen: fixedGen("poetry")}
	_, err := c.Classify(context.Background(), "q")
	assert.Error(t, err)
}

func TestRouterOverrideAdjustsNumericParameters(t *testing.T) {
	r := NewRouter(&stubClassifier{task: types.TaskQA}, nil)
	r.Override([]types.TaskProfile{
		{Task: types.TaskQA, TopKRetrieve: 12, MaxContextTokens: 4000},
		{Task: "bogus", TopKRetrieve: 99},
	})

	p, _ := r.Route(context.Background(), "q", "")
	assert.Equal(t, 12, p.TopKRetrieve)
	assert.Equal(t, 4000, p.MaxContextTokens)
	// Untouched fields keep their defaults, including the template.
	assert.Equal(t, 3, p.TopNFinal)
	assert.NotEmpty(t, p.PromptTemplate)
}

func TestDefaultProfilesCoverEveryTask(t *testing.T) {
	profiles := DefaultProfiles()
	for _, task := range []types.TaskType{types.TaskQA, types.TaskSummarize, types.TaskCompare, types.TaskExplain} {
		p, ok := profiles[task]
		require.True(t, ok, "missing profile for %s", task)
		assert.Greater(t, p.TopKRetrieve, 0)
		assert.Greater(t, p.TopNFinal, 0)
		assert.Greater(t, p.MaxContextTokens, 0)
		assert.NotEmpty(t, p.PromptTemplate)
		assert.GreaterOrEqual(t, p.TopKRetrieve, p.TopNFinal)
	}
}
