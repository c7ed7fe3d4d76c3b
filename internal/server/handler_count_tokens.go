package server

import (
	"encoding/json"
	"net/http"

	"github.com/llmgateway/llmgateway/internal/apperror"
)

// handleCountTokens implements POST /v1/messages/count_tokens: estimate
// the token cost of a system+messages payload without dispatching it
// anywhere, using the same Estimator the selector's context-budget check
// uses.
func (a *App) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	if err := a.authenticate(r); err != nil {
		writeDialectError(w, err, anthropicErrorBody)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDialectError(w, apperror.NewBadRequestError("invalid JSON body", err), anthropicErrorBody)
		return
	}

	count := a.Estimator.Estimate(body)
	writeJSON(w, http.StatusOK, map[string]any{"input_tokens": count})
}
