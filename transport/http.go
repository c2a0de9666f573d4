package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/tracebeam/courier/types"
)

// ContentTypeJSON is the content type of POST batch envelopes.
const ContentTypeJSON = "application/json; charset=UTF-8"

// TimeoutMessage is the fixed failure message reported when no response
// arrives within the connection timeout.
const TimeoutMessage = "timeout"

// Outcome is the terminal result of one request/response delivery attempt.
type Outcome struct {
	// Status is the HTTP status code, or 0 for network-level failures
	// and timeouts.
	Status int

	// Message is a short description of the outcome.
	Message string
}

// Success reports whether the attempt completed with a 2xx status.
func (o Outcome) Success() bool {
	return o.Status >= 200 && o.Status < 300
}

// PixelResult is the observable outcome of a pixel delivery: the response
// status is invisible, only load, error, or timeout can be distinguished.
type PixelResult struct {
	// Loaded reports whether the response completed (any status).
	Loaded bool

	// TimedOut reports whether neither completion nor a transport error
	// arrived within the connection timeout. The request may still be
	// outstanding server-side.
	TimedOut bool
}

// HTTPSender performs request/response deliveries to the collector.
//
// Every attempt is bounded by the connection timeout; an attempt that
// exceeds it is aborted and reported as a network failure with status 0
// and the fixed timeout message. Safe for concurrent use.
type HTTPSender struct {
	client    *http.Client
	timeout   time.Duration
	headers   map[string]string
	anonymous bool
}

// HTTPSenderOption configures an HTTPSender.
type HTTPSenderOption func(*HTTPSender)

// WithClient sets the underlying HTTP client.
//
// Parameters:
//   - client: The HTTP client to use for all requests
//
// Returns:
//   - HTTPSenderOption: Configuration option
func WithClient(client *http.Client) HTTPSenderOption {
	return func(h *HTTPSender) {
		h.client = client
	}
}

// WithConnectionTimeout bounds each delivery attempt.
//
// Default: 5 seconds
//
// Parameters:
//   - d: The per-attempt timeout
//
// Returns:
//   - HTTPSenderOption: Configuration option
func WithConnectionTimeout(d time.Duration) HTTPSenderOption {
	return func(h *HTTPSender) {
		h.timeout = d
	}
}

// WithCustomHeaders sets caller-supplied headers attached to every
// request. Resolution disables them for the queue's lifetime when beacon
// delivery was requested.
//
// Parameters:
//   - headers: Header name/value pairs
//
// Returns:
//   - HTTPSenderOption: Configuration option
func WithCustomHeaders(headers map[string]string) HTTPSenderOption {
	return func(h *HTTPSender) {
		h.headers = headers
	}
}

// WithAnonymous attaches the anonymity marker header to every request.
//
// Parameters:
//   - anonymous: true to mark all requests as anonymous
//
// Returns:
//   - HTTPSenderOption: Configuration option
func WithAnonymous(anonymous bool) HTTPSenderOption {
	return func(h *HTTPSender) {
		h.anonymous = anonymous
	}
}

// WithCredentials enables cookie handling on the default client, the
// request/response analog of credentialed sends.
//
// Ignored when a custom client is supplied via WithClient; configure its
// jar directly instead.
//
// Returns:
//   - HTTPSenderOption: Configuration option
func WithCredentials() HTTPSenderOption {
	return func(h *HTTPSender) {
		if h.client != nil {
			return
		}
		jar, err := cookiejar.New(nil)
		if err != nil {
			return
		}
		h.client = &http.Client{Jar: jar}
	}
}

// NewHTTPSender creates a sender with the given options.
//
// Returns:
//   - *HTTPSender: A ready sender
func NewHTTPSender(opts ...HTTPSenderOption) *HTTPSender {
	h := &HTTPSender{timeout: 5 * time.Second}

	for _, opt := range opts {
		opt(h)
	}

	if h.client == nil {
		h.client = &http.Client{}
	}

	return h
}

// SendPost delivers a serialized batch envelope to the collector.
//
// Parameters:
//   - ctx: Context for cancellation; the connection timeout is layered
//     on top
//   - url: The collector POST endpoint
//   - body: The serialized batch envelope
//
// Returns:
//   - Outcome: The terminal delivery outcome
func (h *HTTPSender) SendPost(ctx context.Context, url string, body []byte) Outcome {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{Status: 0, Message: err.Error()}
	}
	req.Header.Set("Content-Type", ContentTypeJSON)

	return h.do(ctx, req)
}

// SendGet delivers a single rendered record URL to the collector.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: The fully rendered record URL
//
// Returns:
//   - Outcome: The terminal delivery outcome
func (h *HTTPSender) SendGet(ctx context.Context, url string) Outcome {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Status: 0, Message: err.Error()}
	}

	return h.do(ctx, req)
}

// SendPixel delivers a rendered record URL with the pixel technique: the
// response status is discarded and only load, error, or timeout is
// reported. No anonymity marker can be attached on this path; callers
// must route anonymous traffic through SendGet.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: The fully rendered record URL
//
// Returns:
//   - PixelResult: Load, error, or timeout
func (h *HTTPSender) SendPixel(ctx context.Context, url string) PixelResult {
	reqCtx, cancel := h.attemptContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return PixelResult{}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() != nil {
			return PixelResult{TimedOut: true}
		}

		return PixelResult{}
	}
	drainBody(resp)

	return PixelResult{Loaded: true}
}

// do executes a prepared request with headers and the timeout guard.
func (h *HTTPSender) do(ctx context.Context, req *http.Request) Outcome {
	reqCtx, cancel := h.attemptContext(ctx)
	defer cancel()

	req = req.WithContext(reqCtx)
	for name, value := range h.headers {
		req.Header.Set(name, value)
	}
	if h.anonymous {
		req.Header.Set(types.HeaderAnonymous, types.AnonymousHeaderValue)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return Outcome{Status: 0, Message: TimeoutMessage}
		}

		return Outcome{Status: 0, Message: err.Error()}
	}
	drainBody(resp)

	return Outcome{Status: resp.StatusCode, Message: resp.Status}
}

// attemptContext layers the connection timeout onto the caller's context.
func (h *HTTPSender) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

// drainBody releases the response so the connection can be reused.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
