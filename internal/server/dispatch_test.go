package server

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmgateway/llmgateway/internal/catalog"
	"github.com/llmgateway/llmgateway/internal/config"
)

func testApp() *App {
	cfg := &config.Config{
		Backend: []config.BackendConfig{
			{Model: "primary:gpt-4o", Context: 128000},
			{Model: "secondary:gpt-4o-mini", Context: 128000},
			{Model: "vision:gpt-4o-vision", Context: 128000, Vision: true},
		},
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewApp(cfg, log)
}

func TestSelectBackendReturnsBadRequestWhenNoCapableModel(t *testing.T) {
	app := testApp()
	app.Catalog = catalog.NewCatalog([]config.BackendConfig{
		{Model: "A:m", Context: 1000},
	})

	_, err := app.selectBackend(catalog.Requirements{Model: "m", NeedsVision: true})
	require.Error(t, err)
}

// TestConcurrentHandlersObserveIndependentFailoverLists verifies §5/§9:
// two concurrent requests selecting different primaries each see their
// own effective failover list, never a shared or mutated one, since the
// list is recomputed fresh from the read-only catalog on every call.
func TestConcurrentHandlersObserveIndependentFailoverLists(t *testing.T) {
	app := testApp()

	var wg sync.WaitGroup
	results := make([][]string, 2)

	selections := []catalog.Descriptor{
		app.Catalog.At(0),
		app.Catalog.At(1),
	}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			list := app.effectiveFailoverList(selections[i], catalog.Requirements{})
			var models []string
			for _, d := range list {
				models = append(models, d.Model)
			}
			results[i] = models
		}(i)
	}
	wg.Wait()

	assert.NotContains(t, results[0], selections[0].Model)
	assert.Contains(t, results[0], selections[1].Model)
	assert.NotContains(t, results[1], selections[1].Model)
	assert.Contains(t, results[1], selections[0].Model)
}
