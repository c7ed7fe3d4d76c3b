package server

import (
	"encoding/json"
	"net/http"

	"github.com/llmgateway/llmgateway/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// anthropicErrorBody and openAIErrorBody produce the dialect-appropriate
// error body each handler returns on failure (§6, §7).
func anthropicErrorBody(message string) map[string]any {
	return map[string]any{
		"type": "error",
		"error": map[string]any{
			"type":    "api_error",
			"message": message,
		},
	}
}

func openAIErrorBody(message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "api_error",
		},
	}
}

// writeDialectError writes err using the given dialect's error body shape
// and the HTTP status carried by its apperror kind.
func writeDialectError(w http.ResponseWriter, err error, dialectBody func(string) map[string]any) {
	status := apperror.HTTPStatus(err)
	writeJSON(w, status, dialectBody(err.Error()))
}
