package server

import (
	"net/http"
	"strings"

	"github.com/llmgateway/llmgateway/internal/apperror"
)

// authenticate implements §4.7 step 1: if the token table is non-empty,
// require x-api-key or Authorization: Bearer carrying a configured token.
func (a *App) authenticate(r *http.Request) error {
	if !a.Config.AuthEnabled() {
		return nil
	}

	token := r.Header.Get("x-api-key")
	if token == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if token == "" || !a.Config.IsValidToken(token) {
		return apperror.NewAuthError("missing or invalid credential", nil)
	}
	return nil
}
