package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"auth", NewAuthError("missing x-api-key", nil), 401},
		{"bad request", NewBadRequestError("invalid json", nil), 400},
		{"client disconnected", NewClientDisconnectedError(errors.New("context canceled")), 499},
		{"upstream http error", NewUpstreamHTTPError("primary", 429, "rate limited"), 429},
		{"upstream timeout", NewUpstreamTimeoutError("primary", errors.New("deadline exceeded")), 504},
		{"all backends failed", NewAllBackendsFailedError([]string{"primary", "secondary"}, errors.New("last")), 503},
		{"internal", NewInternalError("shaper panic", nil), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, HTTPStatus(tt.err))
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewUpstreamTimeoutError("primary", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsAuthError(NewAuthError("x", nil)))
	assert.False(t, IsAuthError(NewBadRequestError("x", nil)))
	assert.True(t, IsAllBackendsFailedError(NewAllBackendsFailedError(nil, nil)))
}

func TestHTTPStatusDefaultsToInternal(t *testing.T) {
	assert.Equal(t, 500, HTTPStatus(errors.New("unclassified")))
}
