package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/llmgateway/llmgateway/internal/apperror"
	"github.com/llmgateway/llmgateway/internal/catalog"
)

// handleChatCompletions implements the OpenAI-dialect handler (§4.7.2):
// POST /v1/chat/completions. Unlike the Anthropic handler, no translation
// happens here — the request body already speaks the wire dialect every
// backend expects, so the handler only selects a backend, overwrites
// model, and dispatches. The streaming path splices in a usage-capturing
// callback so the completion log can report tokens even though the body
// itself is forwarded unmodified.
func (a *App) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := a.authenticate(r); err != nil {
		writeDialectError(w, err, openAIErrorBody)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDialectError(w, apperror.NewBadRequestError("invalid JSON body", err), openAIErrorBody)
		return
	}

	requestID := uuid.NewString()
	requestedModel, _ := body["model"].(string)

	ctx, endSpan := a.startRequestSpan(r.Context(), requestID, "openai", requestedModel)
	defer endSpan()

	requirements := a.buildChatRequirements(body)
	estimated := a.Estimator.Estimate(body)
	requirements.EstimatedTokens = estimated

	selected, err := a.selectBackend(requirements)
	if err != nil {
		writeDialectError(w, err, openAIErrorBody)
		return
	}

	payload := map[string]any{}
	for k, v := range body {
		payload[k] = v
	}
	payload["model"] = selected.ModelID

	streamRequested, _ := body["stream"].(bool)

	if streamRequested {
		var usage map[string]any
		a.streamPassthrough(w, r.WithContext(ctx), requestID, selected, requirements, payload, func(u map[string]any) {
			usage = u
		})
		a.Log.WithFields(map[string]any{
			"request_id": requestID,
			"dialect":    "openai",
			"backend":    selected.Model,
			"usage":      usage,
			"duration":   time.Since(start).String(),
		}).Info("stream completed")
		return
	}

	response, usedModel, err := a.dispatchBuffered(ctx, requestID, selected, requirements, payload)
	if err != nil {
		writeDialectError(w, err, openAIErrorBody)
		return
	}

	a.Log.WithFields(map[string]any{
		"request_id": requestID,
		"dialect":    "openai",
		"backend":    usedModel,
		"duration":   time.Since(start).String(),
	}).Info("request completed")

	writeJSON(w, http.StatusOK, response)
}

func (a *App) buildChatRequirements(body map[string]any) catalog.Requirements {
	model, _ := body["model"].(string)
	needsVision := false

	if messages, ok := body["messages"].([]any); ok {
		for _, raw := range messages {
			m, ok := raw.(map[string]any)
			if !ok {
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
				if bm["type"] == "image_url" {
					needsVision = true
				}
			}
		}
	}

	reasoningEffort, _ := body["reasoning_effort"].(string)

	return catalog.Requirements{
		Model:         model,
		NeedsVision:   needsVision,
		NeedsThinking: catalog.NeedsThinking(reasoningEffort != "", false, model),
	}
}
