// Package server wires the request-lifecycle engine to an HTTP surface:
// authentication, routing, the admission gate, and the two dialect
// handlers. Routing follows the teacher's chi-server example: a chi.Mux
// with a small stdlib-shaped middleware chain plus go-chi/cors.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/llmgateway/llmgateway/internal/catalog"
	"github.com/llmgateway/llmgateway/internal/config"
	"github.com/llmgateway/llmgateway/internal/failover"
	"github.com/llmgateway/llmgateway/internal/telemetry"
	"github.com/llmgateway/llmgateway/internal/tokenizer"
	"github.com/llmgateway/llmgateway/internal/upstream"
)

// App holds the long-lived, read-only-after-construction dependencies
// shared by every handler: the immutable backend catalog, the provider
// credential table, the tokenizer, the failover runtime state, and the
// upstream HTTP client. Handlers must not mutate any of these; every
// per-request decision (selected backend, effective failover list) is
// threaded through as local values (§5).
type App struct {
	Config     *config.Config
	Catalog    *catalog.Catalog
	Providers  map[string]upstream.ProviderTarget
	Estimator  *tokenizer.Estimator
	Upstream   *upstream.Client
	Failover   *failover.RuntimeState
	Log        *logrus.Logger
	Telemetry  *telemetry.Settings
	Tracer     trace.Tracer
	Admission  *rate.Limiter // nil ⇒ unlimited
}

// NewApp constructs an App from a loaded configuration.
func NewApp(cfg *config.Config, log *logrus.Logger) *App {
	providers := make(map[string]upstream.ProviderTarget, len(cfg.Provider))
	for name, p := range cfg.Provider {
		providers[name] = upstream.ProviderTarget{
			APIKey:     p.APIKey,
			BaseURL:    p.BaseURL,
			APIVersion: p.APIVersion,
		}
	}

	telemetrySettings := telemetry.DefaultSettings()

	return &App{
		Config:    cfg,
		Catalog:   catalog.NewCatalog(cfg.Backend),
		Providers: providers,
		Estimator: tokenizer.NewEstimator(),
		Upstream:  upstream.NewClient(time.Duration(cfg.RequestTimeout) * time.Second),
		Failover:  failover.NewRuntimeState(),
		Log:       log,
		Telemetry: telemetrySettings,
		Tracer:    telemetry.GetTracer(telemetrySettings),
	}
}

// NewRouter builds the chi router for the proxy's HTTP surface (§6).
func (a *App) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(a.Config.RequestTimeout) * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(a.admissionGate)

	r.Get("/", a.handleRoot)
	r.Get("/health", a.handleHealth)
	r.Get("/test-connection", a.handleTestConnection)

	r.Post("/v1/messages", a.handleMessages)
	r.Post("/v1/messages/count_tokens", a.handleCountTokens)
	r.Post("/v1/chat/completions", a.handleChatCompletions)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not Found")
	})

	return r
}

// admissionGate is the ambient concurrency gate described in SPEC_FULL.md
// §5: off by default (Admission == nil), so it never blocks a request
// unless a limiter is assigned to App.Admission; NewApp leaves it nil.
func (a *App) admissionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Admission == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err := a.Admission.Wait(r.Context()); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "server is overloaded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleRoot, handleHealth and handleTestConnection are out-of-scope
// per §1/§6; they are provided only so the configured router answers on
// every documented route instead of 404ing on them.
func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"service": "llmgateway"})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *App) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "not implemented"})
}
