package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/llmgateway/llmgateway/internal/apperror"
	"github.com/llmgateway/llmgateway/internal/catalog"
	"github.com/llmgateway/llmgateway/internal/dialect"
	"github.com/llmgateway/llmgateway/internal/shaper"
	"github.com/llmgateway/llmgateway/internal/upstream"
)

// usageSink receives the usage object observed in a streamed response's
// data: frames, if any. The OpenAI-dialect handler passes one so its
// completion log can include token usage on the streaming path; the
// Anthropic-dialect handler passes nil.
type usageSink func(usage map[string]any)

// streamPassthrough implements the shared streaming control flow for both
// dialect handlers (§4.7, §9 "coroutine/iterator control flow"): it
// selects the primary attempt, opens the upstream SSE stream, and copies
// forwardable frames straight to the ResponseWriter as they arrive.
// Success for failover purposes is "first byte observed" (§4.6): once
// any bytes have reached the client, a later upstream error only
// terminates the stream, it is never retried.
func (a *App) streamPassthrough(w http.ResponseWriter, r *http.Request, requestID string, selected catalog.Descriptor, requirements catalog.Requirements, payload map[string]any, onUsage usageSink) {
	start := time.Now()

	primaryAttempt, err := a.streamAttemptFor(selected, requestID, payload)
	if err != nil {
		writeDialectError(w, err, anthropicErrorBody)
		return
	}

	frames, errs, dispatchErr := primaryAttempt(r.Context())
	if dispatchErr != nil {
		if a.isPrimaryDayLimited(selected, dispatchErr) {
			if fallback, ok := a.firstFailoverAttempt(selected, requirements, requestID, payload); ok {
				frames, errs, dispatchErr = fallback(r.Context())
			}
		}
	}
	if dispatchErr != nil {
		writeDialectError(w, dispatchErr, anthropicErrorBody)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	for frames != nil || errs != nil {
		select {
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			_, _ = w.Write(frame.Bytes)
			if flusher != nil {
				flusher.Flush()
			}
			if frame.Usage != nil && onUsage != nil {
				onUsage(frame.Usage)
			}
		case streamErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if streamErr != nil {
				a.Log.WithFields(map[string]any{
					"request_id": requestID,
					"error":      streamErr.Error(),
				}).Warn("stream terminated early")
			}
		case <-r.Context().Done():
			a.Upstream.Cancel(requestID)
			return
		}
	}

	a.Log.WithFields(map[string]any{
		"request_id": requestID,
		"backend":    selected.Model,
		"duration":   time.Since(start).String(),
	}).Info("stream completed")
}

type streamDispatchFunc func(ctx context.Context) (<-chan upstream.StreamFrame, <-chan error, error)

func (a *App) streamAttemptFor(d catalog.Descriptor, requestID string, payload map[string]any) (streamDispatchFunc, error) {
	target, ok := a.Providers[d.Provider]
	if !ok {
		return nil, apperror.NewInternalError("no provider configured for "+d.Provider, nil)
	}
	apiType := upstream.ResolveAPIType(d.ModelID)
	endpoint := upstream.BuildEndpoint(target, d.ModelID, apiType)
	authHeader, authValue := upstream.BuildAuthHeader(target)

	shaped := shaper.Shape(payload, d.KeyDelete, d.KeyAdd, d.KeyRename)
	shapedPayload, _ := shaped.(map[string]any)
	if shapedPayload == nil {
		shapedPayload = map[string]any{}
	}
	shapedPayload["model"] = d.ModelID
	shapedPayload["stream"] = true
	streamOptions, _ := shapedPayload["stream_options"].(map[string]any)
	if streamOptions == nil {
		streamOptions = map[string]any{}
	}
	streamOptions["include_usage"] = true
	shapedPayload["stream_options"] = streamOptions

	if apiType == upstream.APIResponses {
		shapedPayload = dialect.InternalToResponsesAPI(shapedPayload)
	}

	return func(ctx context.Context) (<-chan upstream.StreamFrame, <-chan error, error) {
		return a.Upstream.DispatchStream(ctx, d.Model, requestID, endpoint, authHeader, authValue, shapedPayload)
	}, nil
}

func (a *App) firstFailoverAttempt(selected catalog.Descriptor, requirements catalog.Requirements, requestID string, payload map[string]any) (streamDispatchFunc, bool) {
	candidates := a.effectiveFailoverList(selected, requirements)
	if len(candidates) == 0 {
		return nil, false
	}
	attempt, err := a.streamAttemptFor(candidates[0], requestID, payload)
	if err != nil {
		return nil, false
	}
	return attempt, true
}

// isPrimaryDayLimited reports whether err is a day-limit-exceeded failure
// from the true catalog primary (§4.6: only the primary's day-limit
// error is special-cased into an immediate fallback attempt here, since
// the streaming path has no Orchestrator cycling behind it).
func (a *App) isPrimaryDayLimited(selected catalog.Descriptor, err error) bool {
	if a.Catalog.Len() == 0 || selected.Model != a.Catalog.At(0).Model {
		return false
	}
	var httpErr *apperror.UpstreamHTTPError
	if errors.As(err, &httpErr) {
		return strings.Contains(strings.ToLower(httpErr.Body), "day limit exceeded")
	}
	return strings.Contains(strings.ToLower(err.Error()), "day limit exceeded")
}
