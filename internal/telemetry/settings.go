// Package telemetry provides OpenTelemetry integration for the request
// lifecycle engine: one span per request, covering selection, shaping,
// translation and upstream dispatch.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Settings configures telemetry for the proxy. Telemetry is disabled by
// default; the configuration file has no telemetry field, and
// server.NewApp always uses DefaultSettings.
type Settings struct {
	// IsEnabled controls whether spans are recorded at all.
	IsEnabled bool

	// RecordPayloads is carried on Settings but no code in this module
	// reads it; request bodies are never attached to spans.
	RecordPayloads bool

	// Tracer is a custom OpenTelemetry tracer. If nil, the global tracer
	// is used.
	Tracer trace.Tracer
}

// DefaultSettings returns Settings with telemetry disabled.
func DefaultSettings() *Settings {
	return &Settings{IsEnabled: false}
}

// WithEnabled returns a copy of Settings with IsEnabled set to the given value.
func (s *Settings) WithEnabled(enabled bool) *Settings {
	cp := *s
	cp.IsEnabled = enabled
	return &cp
}

// RequestAttributes returns the base span attributes for one proxy request.
func RequestAttributes(requestID, dialect, model string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("llmgateway.request_id", requestID),
		attribute.String("llmgateway.dialect", dialect),
		attribute.String("llmgateway.requested_model", model),
	}
}
