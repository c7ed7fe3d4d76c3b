package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmgateway/llmgateway/internal/config"
)

func TestSelectVisionRoutesToVisionBackend(t *testing.T) {
	// S1: catalog [{A:m, vision:false}, {B:v, vision:true}], request needs vision.
	cat := NewCatalog([]config.BackendConfig{
		{Model: "A:m", Context: 100000, Vision: false},
		{Model: "B:v", Context: 100000, Vision: true},
	})

	d, ok := cat.Select(Requirements{
		Model:           "m",
		EstimatedTokens: 1000,
		NeedsVision:     true,
	}, nil)

	require.True(t, ok)
	assert.Equal(t, "B:v", d.Model)
}

func TestSelectSkipsExcluded(t *testing.T) {
	cat := NewCatalog([]config.BackendConfig{
		{Model: "A:m", Context: 100000},
		{Model: "B:m2", Context: 100000},
	})

	d, ok := cat.Select(Requirements{Model: "m", EstimatedTokens: 10}, []string{"A:m"})
	require.True(t, ok)
	assert.Equal(t, "B:m2", d.Model)
}

func TestSelectThinkingAndPattern(t *testing.T) {
	// S3: thinking + model_match pattern.
	cat := NewCatalog([]config.BackendConfig{
		{Model: "O:o3", Context: 1000000, Thinking: true, ModelMatch: []string{"*opus*"}},
	})

	d, ok := cat.Select(Requirements{
		Model:           "claude-3-opus-20240229",
		EstimatedTokens: 10,
		NeedsThinking:   true,
	}, nil)
	require.True(t, ok)
	assert.Equal(t, "O:o3", d.Model)

	_, ok = cat.Select(Requirements{
		Model:           "claude-3-sonnet",
		EstimatedTokens: 10,
		NeedsThinking:   true,
	}, nil)
	assert.False(t, ok)
}

func TestSelectNoneOverContextBudget(t *testing.T) {
	cat := NewCatalog([]config.BackendConfig{
		{Model: "A:m", Context: 1000},
	})

	_, ok := cat.Select(Requirements{Model: "m", EstimatedTokens: 5000}, nil)
	assert.False(t, ok)
}

func TestSelectDefaultsContextWindow(t *testing.T) {
	cat := NewCatalog([]config.BackendConfig{{Model: "A:m"}})
	assert.Equal(t, DefaultContextWindow, cat.At(0).Context)
}

func TestNeedsThinking(t *testing.T) {
	assert.True(t, NeedsThinking(true, false, "gpt-4o"))
	assert.True(t, NeedsThinking(false, true, "gpt-4o"))
	assert.True(t, NeedsThinking(false, false, "o3-mini"))
	assert.True(t, NeedsThinking(false, false, "o1-preview"))
	assert.False(t, NeedsThinking(false, false, "gpt-4o"))
}

func TestGlobMatchCaseInsensitiveAndWildcards(t *testing.T) {
	assert.True(t, matchesModelPattern([]string{"*Opus*"}, "claude-3-opus-20240229"))
	assert.True(t, matchesModelPattern([]string{"gpt-?"}, "GPT-4"))
	assert.False(t, matchesModelPattern([]string{"gpt-?"}, "gpt-40"))
	assert.True(t, matchesModelPattern(nil, "anything"))
}
