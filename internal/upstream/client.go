package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/llmgateway/llmgateway/internal/apperror"
	"github.com/llmgateway/llmgateway/internal/sse"
)

// DefaultRequestTimeoutSeconds matches config.DefaultRequestTimeoutSeconds;
// repeated here as a literal default so this package does not import
// internal/config purely for one constant.
const DefaultRequestTimeoutSeconds = 90

// Client issues buffered and streaming requests against one backend's
// provider target. It tracks in-flight requests by request id so that
// Cancel(requestID) can abort a specific call.
type Client struct {
	httpClient *http.Client

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewClient returns a Client using the given timeout (0 ⇒
// DefaultRequestTimeoutSeconds).
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeoutSeconds * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cancels:    map[string]context.CancelFunc{},
	}
}

// Cancel aborts the in-flight call registered under requestID, if any.
func (c *Client) Cancel(requestID string) {
	c.mu.Lock()
	cancel, ok := c.cancels[requestID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *Client) register(requestID string, cancel context.CancelFunc) {
	if requestID == "" {
		return
	}
	c.mu.Lock()
	c.cancels[requestID] = cancel
	c.mu.Unlock()
}

func (c *Client) unregister(requestID string) {
	if requestID == "" {
		return
	}
	c.mu.Lock()
	delete(c.cancels, requestID)
	c.mu.Unlock()
}

// Dispatch sends one buffered (non-streaming) request and returns the
// decoded JSON response body.
func (c *Client) Dispatch(ctx context.Context, backendName, requestID, endpoint, authHeader, authValue string, payload map[string]any) (map[string]any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.register(requestID, cancel)
	defer c.unregister(requestID)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.NewInternalError("marshaling outbound payload", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.NewInternalError("building upstream request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(authHeader, authValue)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(backendName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(backendName, err)
	}

	if resp.StatusCode >= 400 {
		return nil, apperror.NewUpstreamHTTPError(backendName, resp.StatusCode, string(respBody))
	}

	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, apperror.NewInternalError("decoding upstream response", err)
	}
	return decoded, nil
}

// StreamFrame is one forwardable chunk of re-framed SSE output, paired
// with any usage object observed in its data: payload (for the OpenAI
// dialect handler's post-stream usage log).
type StreamFrame struct {
	Bytes []byte
	Usage map[string]any
}

// DispatchStream sends one streaming request and returns a channel of
// forwardable SSE frames. The channel is closed when the upstream body is
// exhausted or ctx is canceled; a non-nil error on the returned error
// channel indicates the stream ended abnormally. Success for failover
// purposes is "first byte observed" — once frames begin arriving, the
// caller must not retry: a mid-stream error only terminates forwarding.
func (c *Client) DispatchStream(ctx context.Context, backendName, requestID, endpoint, authHeader, authValue string, payload map[string]any) (<-chan StreamFrame, <-chan error, error) {
	ctx, cancel := context.WithCancel(ctx)
	c.register(requestID, cancel)

	body, err := json.Marshal(payload)
	if err != nil {
		cancel()
		c.unregister(requestID)
		return nil, nil, apperror.NewInternalError("marshaling outbound payload", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		c.unregister(requestID)
		return nil, nil, apperror.NewInternalError("building upstream request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(authHeader, authValue)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		c.unregister(requestID)
		return nil, nil, classifyTransportError(backendName, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		cancel()
		c.unregister(requestID)
		return nil, nil, apperror.NewUpstreamHTTPError(backendName, resp.StatusCode, string(errBody))
	}

	frames := make(chan StreamFrame)
	errs := make(chan error, 1)

	go func() {
		defer close(frames)
		defer close(errs)
		defer resp.Body.Close()
		defer cancel()
		defer c.unregister(requestID)

		var forwarder sse.FrameForwarder
		buf := make([]byte, 4096)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				out := forwarder.Feed(buf[:n])
				if len(out) > 0 {
					select {
					case frames <- StreamFrame{Bytes: out, Usage: extractUsage(out)}:
					case <-ctx.Done():
						return
					}
				}
			}
			if readErr != nil {
				if readErr == io.EOF {
					if tail := forwarder.Close(); len(tail) > 0 {
						select {
						case frames <- StreamFrame{Bytes: tail, Usage: extractUsage(tail)}:
						case <-ctx.Done():
						}
					}
					return
				}
				errs <- classifyTransportError(backendName, readErr)
				return
			}
		}
	}()

	return frames, errs, nil
}

// extractUsage inspects forwarded data: frames for a JSON payload
// carrying a "usage" object, returning it if present.
func extractUsage(forwarded []byte) map[string]any {
	for _, line := range strings.Split(string(forwarded), "\n") {
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			continue
		}
		if usage, ok := decoded["usage"].(map[string]any); ok {
			return usage
		}
	}
	return nil
}

func classifyTransportError(backendName string, err error) error {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperror.NewUpstreamTimeoutError(backendName, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewUpstreamTimeoutError(backendName, err)
	}
	if errors.Is(err, context.Canceled) {
		return apperror.NewClientDisconnectedError(err)
	}
	return apperror.NewUpstreamHTTPError(backendName, 0, err.Error())
}

var leadingStatusCode = regexp.MustCompile(`^(\d{3})`)

// ClassifyErrorCode extracts the failure's error code per §4.6: the
// failure's HTTP status if present; else the first 3-digit number at the
// start of its message; else the failure's kind name.
func ClassifyErrorCode(err error) string {
	var httpErr *apperror.UpstreamHTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode_ != 0 {
		return strconv.Itoa(httpErr.StatusCode_)
	}

	msg := err.Error()
	if m := leadingStatusCode.FindStringSubmatch(msg); m != nil {
		return m[1]
	}

	return fmt.Sprintf("%T", err)
}

// ClassifyUserVisibleCause maps a lower-cased error message to one of a
// small set of human-readable causes for diagnostic logs (§4.6 closing
// note).
func ClassifyUserVisibleCause(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "region"):
		return "unsupported region"
	case strings.Contains(msg, "invalid") && strings.Contains(msg, "key"):
		return "invalid key"
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return "rate limit"
	case strings.Contains(msg, "model") && strings.Contains(msg, "not found"):
		return "model-not-found"
	case strings.Contains(msg, "billing") || strings.Contains(msg, "quota"):
		return "billing"
	default:
		return "unknown"
	}
}
