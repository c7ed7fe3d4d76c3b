package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/llmgateway/llmgateway/internal/apperror"
	"github.com/llmgateway/llmgateway/internal/catalog"
	"github.com/llmgateway/llmgateway/internal/config"
	"github.com/llmgateway/llmgateway/internal/dialect"
)

// handleMessages implements the Anthropic-dialect handler (§4.7.1):
// POST /v1/messages. Streaming requests are forwarded verbatim without
// back-translation to the Anthropic SSE shape — a known, preserved open
// issue (§9 "Dialect of streamed Anthropic responses").
func (a *App) handleMessages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := a.authenticate(r); err != nil {
		writeDialectError(w, err, anthropicErrorBody)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDialectError(w, apperror.NewBadRequestError("invalid JSON body", err), anthropicErrorBody)
		return
	}

	requestID := uuid.NewString()
	requestedModel, _ := body["model"].(string)

	ctx, endSpan := a.startRequestSpan(r.Context(), requestID, "anthropic", requestedModel)
	defer endSpan()

	requirements := a.buildRequirements(body)
	estimated := a.Estimator.Estimate(body)
	requirements.EstimatedTokens = estimated

	selected, err := a.selectBackend(requirements)
	if err != nil {
		writeDialectError(w, err, anthropicErrorBody)
		return
	}

	internalReq := dialect.AnthropicToInternal(body)
	applyMaxTokensPolicy(a.Config, internalReq)
	internalReq["model"] = selected.ModelID

	streamRequested, _ := body["stream"].(bool)

	if streamRequested {
		a.dispatchMessagesStream(w, r.WithContext(ctx), requestID, selected, requirements, internalReq)
		return
	}

	response, usedModel, err := a.dispatchBuffered(ctx, requestID, selected, requirements, internalReq)
	if err != nil {
		writeDialectError(w, err, anthropicErrorBody)
		return
	}

	anthropicResponse := translateResponseToAnthropic(selected, body, response)

	a.Log.WithFields(map[string]any{
		"request_id": requestID,
		"dialect":    "anthropic",
		"backend":    usedModel,
		"duration":   time.Since(start).String(),
	}).Info("request completed")

	writeJSON(w, http.StatusOK, anthropicResponse)
}

// dispatchMessagesStream forwards the Anthropic streaming path verbatim,
// per §9: no back-translation of the upstream SSE shape is performed.
func (a *App) dispatchMessagesStream(w http.ResponseWriter, r *http.Request, requestID string, selected catalog.Descriptor, requirements catalog.Requirements, internalReq map[string]any) {
	a.streamPassthrough(w, r, requestID, selected, requirements, internalReq, nil)
}

func (a *App) buildRequirements(anthropicBody map[string]any) catalog.Requirements {
	model, _ := anthropicBody["model"].(string)
	needsVision := false

	if messages, ok := anthropicBody["messages"].([]any); ok {
		for _, raw := range messages {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if m["role"] != "user" {
				continue
			}
			blocks, ok := m["content"].([]any)
			if !ok {
				continue
			}
			for _, rawBlock := range blocks {
				bm, ok := rawBlock.(map[string]any)
				if !ok {
					continue
				}
				if bm["type"] == "image" || bm["type"] == "image_url" {
					needsVision = true
				}
			}
		}
	}

	thinkingEnabled := false
	if thinking, ok := anthropicBody["thinking"].(map[string]any); ok {
		thinkingEnabled = thinking["type"] == "enabled"
	}
	reasoningMode, _ := anthropicBody["reasoning_mode"].(bool)

	return catalog.Requirements{
		Model:         model,
		NeedsVision:   needsVision,
		NeedsThinking: catalog.NeedsThinking(thinkingEnabled, reasoningMode, model),
	}
}

func applyMaxTokensPolicy(cfg *config.Config, internalReq map[string]any) {
	var requested *int
	if v, ok := internalReq["max_tokens"]; ok {
		if f, ok := toFloat(v); ok {
			n := int(f)
			requested = &n
		}
	}

	value, set := dialect.MaxTokensPolicy(cfg.MaxTokensLimit, cfg.MinTokensLimit, requested)
	if set {
		internalReq["max_tokens"] = value
	} else {
		delete(internalReq, "max_tokens")
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func translateResponseToAnthropic(selected catalog.Descriptor, requestBody map[string]any, response map[string]any) map[string]any {
	if response == nil {
		return anthropicErrorBody("empty upstream response")
	}
	if response["object"] == "response" {
		toolNames := collectRequestToolNames(requestBody)
		return dialect.ResponsesAPIResponseToAnthropic(response, toolNames)
	}
	return dialect.ChatCompletionsResponseToAnthropic(response)
}

func collectRequestToolNames(body map[string]any) map[string]struct{} {
	names := map[string]struct{}{}
	tools, _ := body["tools"].([]any)
	for _, raw := range tools {
		t, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := t["name"].(string); ok {
			names[name] = struct{}{}
		}
	}
	return names
}
