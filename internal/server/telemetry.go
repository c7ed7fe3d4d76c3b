package server

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/llmgateway/llmgateway/internal/telemetry"
)

// startRequestSpan opens the top-level span for one inbound request,
// covering selection through response (request tracing, SPEC_FULL.md §2
// item 10). The returned func must be called
// once the handler has produced its response or error.
func (a *App) startRequestSpan(ctx context.Context, requestID, dialect, model string) (context.Context, func()) {
	ctx, span := a.Tracer.Start(ctx, "llmgateway.request",
		trace.WithAttributes(telemetry.RequestAttributes(requestID, dialect, model)...))
	return ctx, func() { span.End() }
}
