// Package apperror defines the typed error kinds raised across the request
// lifecycle: authentication, malformed input, client disconnects, upstream
// failures and the terminal all-backends-failed condition. Each kind carries
// the HTTP status code a handler should respond with and implements the
// standard Error()/Unwrap() pair so callers can use errors.As/errors.Is.
package apperror

import "fmt"

// AuthError indicates a missing or invalid client credential (§6 [tokens]
// lookup against x-api-key / Authorization: Bearer).
type AuthError struct {
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("auth failed: %s", e.Message)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// StatusCode implements the statusCoder interface used by the server layer.
func (e *AuthError) StatusCode() int { return 401 }

// IsAuthError reports whether err is an *AuthError.
func IsAuthError(err error) bool {
	_, ok := err.(*AuthError)
	return ok
}

// NewAuthError constructs an AuthError.
func NewAuthError(message string, cause error) *AuthError {
	return &AuthError{Message: message, Cause: cause}
}

// BadRequestError indicates the request body failed validation: malformed
// JSON, an unknown model, or a capability the catalog cannot satisfy
// (vision/thinking requested but no backend supports it).
type BadRequestError struct {
	Message string
	Cause   error
}

func (e *BadRequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bad request: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("bad request: %s", e.Message)
}

func (e *BadRequestError) Unwrap() error { return e.Cause }

func (e *BadRequestError) StatusCode() int { return 400 }

// IsBadRequestError reports whether err is a *BadRequestError.
func IsBadRequestError(err error) bool {
	_, ok := err.(*BadRequestError)
	return ok
}

// NewBadRequestError constructs a BadRequestError.
func NewBadRequestError(message string, cause error) *BadRequestError {
	return &BadRequestError{Message: message, Cause: cause}
}

// ClientDisconnectedError indicates the inbound request's context was
// canceled before a response could be produced. Handlers map this to
// HTTP 499 and skip failover bookkeeping: the client is no longer
// listening, so there is nothing to retry for.
type ClientDisconnectedError struct {
	Cause error
}

func (e *ClientDisconnectedError) Error() string {
	return fmt.Sprintf("client disconnected: %v", e.Cause)
}

func (e *ClientDisconnectedError) Unwrap() error { return e.Cause }

func (e *ClientDisconnectedError) StatusCode() int { return 499 }

// IsClientDisconnectedError reports whether err is a *ClientDisconnectedError.
func IsClientDisconnectedError(err error) bool {
	_, ok := err.(*ClientDisconnectedError)
	return ok
}

// NewClientDisconnectedError constructs a ClientDisconnectedError.
func NewClientDisconnectedError(cause error) *ClientDisconnectedError {
	return &ClientDisconnectedError{Cause: cause}
}

// UpstreamHTTPError wraps a non-2xx response from a backend. The Orchestrator
// inspects the error text to classify the failure (a primary error whose
// message contains "day limit exceeded", in any case, triggers a cooldown)
// and logs StatusCode as the error code before advancing to the next backend.
type UpstreamHTTPError struct {
	Backend     string
	StatusCode_ int
	Body        string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream %q returned HTTP %d: %s", e.Backend, e.StatusCode_, e.Body)
}

func (e *UpstreamHTTPError) StatusCode() int { return e.StatusCode_ }

// IsUpstreamHTTPError reports whether err is an *UpstreamHTTPError.
func IsUpstreamHTTPError(err error) bool {
	_, ok := err.(*UpstreamHTTPError)
	return ok
}

// NewUpstreamHTTPError constructs an UpstreamHTTPError.
func NewUpstreamHTTPError(backend string, statusCode int, body string) *UpstreamHTTPError {
	return &UpstreamHTTPError{Backend: backend, StatusCode_: statusCode, Body: body}
}

// UpstreamTimeoutError indicates a backend did not respond within the
// configured request_timeout.
type UpstreamTimeoutError struct {
	Backend string
	Cause   error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("upstream %q timed out: %v", e.Backend, e.Cause)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Cause }

func (e *UpstreamTimeoutError) StatusCode() int { return 504 }

// IsUpstreamTimeoutError reports whether err is an *UpstreamTimeoutError.
func IsUpstreamTimeoutError(err error) bool {
	_, ok := err.(*UpstreamTimeoutError)
	return ok
}

// NewUpstreamTimeoutError constructs an UpstreamTimeoutError.
func NewUpstreamTimeoutError(backend string, cause error) *UpstreamTimeoutError {
	return &UpstreamTimeoutError{Backend: backend, Cause: cause}
}

// AllBackendsFailedError is the terminal failure of the Failover
// Orchestrator: every eligible backend was tried across every cycle and
// none succeeded.
type AllBackendsFailedError struct {
	Attempts []string
	LastErr  error
}

func (e *AllBackendsFailedError) Error() string {
	return fmt.Sprintf("all backends failed after %d attempt(s): %v", len(e.Attempts), e.LastErr)
}

func (e *AllBackendsFailedError) Unwrap() error { return e.LastErr }

func (e *AllBackendsFailedError) StatusCode() int { return 503 }

// IsAllBackendsFailedError reports whether err is an *AllBackendsFailedError.
func IsAllBackendsFailedError(err error) bool {
	_, ok := err.(*AllBackendsFailedError)
	return ok
}

// NewAllBackendsFailedError constructs an AllBackendsFailedError.
func NewAllBackendsFailedError(attempts []string, lastErr error) *AllBackendsFailedError {
	return &AllBackendsFailedError{Attempts: attempts, LastErr: lastErr}
}

// InternalError wraps an unexpected failure that isn't attributable to the
// client or a specific upstream (e.g. a bug in payload shaping).
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) Unwrap() error { return e.Cause }

func (e *InternalError) StatusCode() int { return 500 }

// IsInternalError reports whether err is an *InternalError.
func IsInternalError(err error) bool {
	_, ok := err.(*InternalError)
	return ok
}

// NewInternalError constructs an InternalError.
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}

// statusCoder is implemented by every error kind in this package.
type statusCoder interface {
	StatusCode() int
}

// HTTPStatus returns the HTTP status code associated with err, or 500 if
// err does not carry one.
func HTTPStatus(err error) int {
	if sc, ok := err.(statusCoder); ok && sc.StatusCode() != 0 {
		return sc.StatusCode()
	}
	return 500
}
