// Package catalog holds the typed, ordered backend catalog and the
// capability-aware selector that picks the first descriptor matching a
// request's capabilities, token budget and exclusion set.
package catalog

import (
	"fmt"
	"strings"

	"github.com/llmgateway/llmgateway/internal/config"
)

// DefaultContextWindow is the context size assumed for a descriptor that
// did not specify one.
const DefaultContextWindow = config.DefaultContextWindow

// Descriptor is one entry of the backend catalog, built from a
// config.BackendConfig. Provider and ModelID are split out of Model at
// construction time since every downstream consumer needs both.
type Descriptor struct {
	Model      string
	Provider   string
	ModelID    string
	Context    int
	Vision     bool
	Thinking   bool
	ModelMatch []string
	KeyAdd     map[string]any
	KeyDelete  []string
	KeyRename  map[string]string
}

// Catalog is the ordered, immutable-after-construction sequence of
// backend descriptors. Order is significant: Select returns the first
// matching entry.
type Catalog struct {
	descriptors []Descriptor
}

// NewCatalog builds a Catalog from the parsed configuration. It panics if
// any backend's model field lacks a colon, matching the data-model
// invariant that every descriptor's model identifies both a provider and
// a model id.
func NewCatalog(backends []config.BackendConfig) *Catalog {
	descriptors := make([]Descriptor, 0, len(backends))
	for _, b := range backends {
		provider, modelID, ok := strings.Cut(b.Model, ":")
		if !ok {
			panic(fmt.Sprintf("catalog: backend model %q is missing a provider prefix", b.Model))
		}
		context := b.Context
		if context <= 0 {
			context = DefaultContextWindow
		}
		descriptors = append(descriptors, Descriptor{
			Model:      b.Model,
			Provider:   provider,
			ModelID:    modelID,
			Context:    context,
			Vision:     b.Vision,
			Thinking:   b.Thinking,
			ModelMatch: b.ModelMatch,
			KeyAdd:     b.KeyAdd,
			KeyDelete:  b.KeyDelete,
			KeyRename:  b.KeyRename,
		})
	}
	return &Catalog{descriptors: descriptors}
}

// Descriptors returns the catalog's entries in order. The returned slice
// must not be mutated by callers.
func (c *Catalog) Descriptors() []Descriptor {
	return c.descriptors
}

// Len returns the number of descriptors in the catalog.
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

// At returns the descriptor at the given catalog index. The primary
// backend is always index 0.
func (c *Catalog) At(i int) Descriptor {
	return c.descriptors[i]
}
