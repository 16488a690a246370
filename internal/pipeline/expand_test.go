// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandIncludesOriginalFirst(t *testing.T) {
	e := NewExpander(fixedGen("how does self-attention work\nattention mechanism in transformers"), 2, nil)
	variations, degraded := e.Expand(context.Background(), "what is attention?")
	require.Len(t, variations, 3)
	assert.False(t, degraded)
	assert.Equal(t, "what is attention?", variations[0])
}

func TestExpandDropsDuplicatesAndBlanks(t *testing.T) {
	e := NewExpander(fixedGen("What is attention?\n\n  \nrole of attention in transformers"), 2, nil)
	variations, degraded := e.Expand(context.Background(), "what is attention?")
	require.Len(t, variations, 2)
	assert.False(t, degraded)
	assert.Equal(t, "role of attention in transformers", variations[1])
}

func TestExpandCapsVariationCount(t *testing.T) {
	e := NewExpander(fixedGen("v1\nv2\nv3\nv4\nv5"), 2, nil)
	variations, _ := e.Expand(context.Background(), "q")
	assert.Len(t, variations, 3)
}

func TestExpandDegradesOnFailure(t *testing.T) {
	e := NewExpander(failingGen(errors.New("model down")), 2, nil)
	variations, degraded := e.Expand(context.Background(), "original question")
	assert.True(t, degraded)
	assert.Equal(t, []string{"original question"}, variations)
}

func TestExpandDegradesWhenNothingUsable(t *testing.T) {
	e := NewExpander(fixedGen("\n\n"), 2, nil)
	variations, degraded := e.Expand(context.Background(), "q")
	assert.True(t, degraded)
	assert.Equal(t, []string{"q"}, variations)
}
