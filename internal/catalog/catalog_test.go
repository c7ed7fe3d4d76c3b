package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmgateway/llmgateway/internal/config"
)

func TestNewCatalogSplitsProviderOnFirstColon(t *testing.T) {
	// S4: "synthetic:hf:zai-org/GLM-4.6" splits into provider "synthetic"
	// and model id "hf:zai-org/GLM-4.6" (the id itself may contain colons).
	cat := NewCatalog([]config.BackendConfig{
		{Model: "synthetic:hf:zai-org/GLM-4.6", Context: 32000},
	})

	require.Equal(t, 1, cat.Len())
	d := cat.At(0)
	assert.Equal(t, "synthetic", d.Provider)
	assert.Equal(t, "hf:zai-org/GLM-4.6", d.ModelID)
	assert.Equal(t, "synthetic:hf:zai-org/GLM-4.6", d.Model)
}

func TestNewCatalogPanicsWithoutProviderPrefix(t *testing.T) {
	assert.Panics(t, func() {
		NewCatalog([]config.BackendConfig{{Model: "no-colon-here"}})
	})
}

func TestSelectBumpsToLargerContextBackendOnOverflow(t *testing.T) {
	// S2: a request whose estimated tokens exceed the first (smaller
	// context) backend falls through the linear scan to a later backend
	// with enough headroom.
	cat := NewCatalog([]config.BackendConfig{
		{Model: "A:small", Context: 8000},
		{Model: "B:large", Context: 200000},
	})

	d, ok := cat.Select(Requirements{Model: "x", EstimatedTokens: 50000}, nil)
	require.True(t, ok)
	assert.Equal(t, "B:large", d.Model)

	_, ok = cat.Select(Requirements{Model: "x", EstimatedTokens: 300000}, nil)
	assert.False(t, ok)
}
