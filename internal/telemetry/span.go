package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOptions configures a telemetry span.
type SpanOptions struct {
	// Name is the operation name for the span.
	Name string

	// Attributes are key-value pairs attached to the span.
	Attributes []attribute.KeyValue

	// EndWhenDone controls whether the span should be ended automatically
	// when the function returns successfully.
	EndWhenDone bool
}

// RecordSpan creates and executes a telemetry span for one stage of the
// request lifecycle (selection, shaping, dispatch). The span is ended
// automatically when the function completes, unless EndWhenDone is false.
// Errors are automatically recorded on the span.
func RecordSpan[T any](
	ctx context.Context,
	tracer trace.Tracer,
	opts SpanOptions,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, opts.Name,
		trace.WithAttributes(opts.Attributes...),
	)

	result, err := fn(ctx, span)

	if err != nil {
		RecordErrorOnSpan(span, err)
		span.End()
		var zero T
		return zero, err
	}

	if opts.EndWhenDone {
		span.End()
	}

	return result, nil
}

// RecordErrorOnSpan records an error on a span and sets the span status to error.
func RecordErrorOnSpan(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetBaseAttributes returns the common attributes for one backend dispatch:
// which provider and model handled the request, and the outbound request
// headers with credentials redacted.
func GetBaseAttributes(
	providerName string,
	modelID string,
	headers map[string]string,
) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("llmgateway.provider", providerName),
		attribute.String("llmgateway.model_id", modelID),
	}

	for key, value := range headers {
		if key == "Authorization" || key == "x-api-key" || key == "api-key" {
			continue
		}
		attrs = append(attrs, attribute.String("llmgateway.upstream_header."+key, value))
	}

	return attrs
}

// AddSettingsAttributes adds arbitrary scalar values as span attributes
// under the given dot-joined prefix.
func AddSettingsAttributes(span trace.Span, prefix string, settings map[string]interface{}) {
	for key, value := range settings {
		attrKey := prefix + "." + key
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		}
	}
}
