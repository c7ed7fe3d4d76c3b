package server

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/llmgateway/llmgateway/internal/apperror"
	"github.com/llmgateway/llmgateway/internal/catalog"
	"github.com/llmgateway/llmgateway/internal/dialect"
	"github.com/llmgateway/llmgateway/internal/failover"
	"github.com/llmgateway/llmgateway/internal/shaper"
	"github.com/llmgateway/llmgateway/internal/telemetry"
	"github.com/llmgateway/llmgateway/internal/upstream"
)

// selectBackend runs the Selector over the full catalog and returns the
// winning descriptor, or a dialect-neutral BadRequest describing the
// unmet capability (§4.7 step 4).
func (a *App) selectBackend(req catalog.Requirements) (catalog.Descriptor, error) {
	d, ok := a.Catalog.Select(req, nil)
	if ok {
		return d, nil
	}

	switch {
	case req.NeedsVision:
		return catalog.Descriptor{}, apperror.NewBadRequestError("no model supports vision", nil)
	case req.NeedsThinking:
		return catalog.Descriptor{}, apperror.NewBadRequestError("no model supports thinking", nil)
	default:
		return catalog.Descriptor{}, apperror.NewBadRequestError("no suitable backend available", nil)
	}
}

// effectiveFailoverList builds this call's failover attempt set: every
// other catalog descriptor (in catalog order) that still satisfies the
// request's capability requirements, excluding the selected primary. It
// is derived fresh per request from the read-only catalog, never from
// shared mutable state (§5, §9 "per-request override" note).
func (a *App) effectiveFailoverList(selected catalog.Descriptor, req catalog.Requirements) []catalog.Descriptor {
	var out []catalog.Descriptor
	for _, d := range a.Catalog.Descriptors() {
		if d.Model == selected.Model {
			continue
		}
		if req.NeedsVision && !d.Vision {
			continue
		}
		if req.NeedsThinking && !d.Thinking {
			continue
		}
		out = append(out, d)
	}
	return out
}

// buildAttempt constructs one failover.Attempt that shapes payload for
// descriptor d and dispatches it through the Upstream Client. isPrimary
// controls whether a day-limit error on this attempt can trigger
// cooldown; dispatchBuffered sets it for the selected descriptor, which
// acts as this call's primary whatever its catalog index.
func (a *App) buildAttempt(d catalog.Descriptor, isPrimary bool, requestID string, payload map[string]any, stream bool) (failover.Attempt, error) {
	target, ok := a.Providers[d.Provider]
	if !ok {
		return failover.Attempt{}, apperror.NewInternalError(
			fmt.Sprintf("no provider configured for %q", d.Provider), nil)
	}

	apiType := upstream.ResolveAPIType(d.ModelID)
	endpoint := upstream.BuildEndpoint(target, d.ModelID, apiType)
	authHeader, authValue := upstream.BuildAuthHeader(target)

	shaped := shaper.Shape(payload, d.KeyDelete, d.KeyAdd, d.KeyRename)
	shapedMap, _ := shaped.(map[string]any)
	if shapedMap == nil {
		shapedMap = map[string]any{}
	}
	shapedMap["model"] = d.ModelID
	if stream {
		shapedMap["stream"] = true
	}
	if apiType == upstream.APIResponses {
		shapedMap = dialect.InternalToResponsesAPI(shapedMap)
	}

	spanAttrs := telemetry.GetBaseAttributes(d.Provider, d.ModelID, map[string]string{authHeader: authValue})

	return failover.Attempt{
		Model:     d.Model,
		IsPrimary: isPrimary,
		Dispatch: func(ctx context.Context) (any, error) {
			return telemetry.RecordSpan(ctx, a.Tracer, telemetry.SpanOptions{
				Name:        "upstream.dispatch",
				Attributes:  spanAttrs,
				EndWhenDone: true,
			}, func(ctx context.Context, _ trace.Span) (any, error) {
				return a.Upstream.Dispatch(ctx, d.Model, requestID, endpoint, authHeader, authValue, shapedMap)
			})
		},
	}, nil
}

// dispatchBuffered runs the full selection→shape→failover pipeline for a
// non-streaming request and returns the winning backend's decoded JSON
// response.
func (a *App) dispatchBuffered(ctx context.Context, requestID string, selected catalog.Descriptor, req catalog.Requirements, payload map[string]any) (map[string]any, string, error) {
	primaryAttempt, err := a.buildAttempt(selected, true, requestID, payload, false)
	if err != nil {
		return nil, "", err
	}

	var failoverAttempts []failover.Attempt
	for _, d := range a.effectiveFailoverList(selected, req) {
		attempt, err := a.buildAttempt(d, false, requestID, payload, false)
		if err != nil {
			continue
		}
		failoverAttempts = append(failoverAttempts, attempt)
	}

	orchestrator := failover.NewOrchestrator(a.Failover)
	orchestrator.OnEvent = func(ev failover.FailoverEvent) {
		a.Log.WithFields(map[string]any{
			"request_id":     requestID,
			"cycle":          ev.Cycle,
			"error_code":     ev.ErrorCode,
			"original_model": ev.OriginalModel,
			"candidate":      ev.Candidate,
			"token_count":    ev.TokenCount,
		}).Warn("failover event")
	}

	result, usedModel, err := orchestrator.Run(ctx, primaryAttempt, failoverAttempts, req.EstimatedTokens)
	if err != nil {
		return nil, "", err
	}
	response, _ := result.(map[string]any)
	return response, usedModel, nil
}
