package transport

import (
	"bytes"
	"net/http"
	"sync"
	"time"
)

// DefaultMaxBeaconBytes is the payload quota of typical beacon
// implementations. Larger payloads are rejected so the caller falls
// through to the request path.
const DefaultMaxBeaconBytes = 64_000

// BeaconSender hands a payload to a fire-and-forget delivery primitive.
//
// A beacon send reports only whether the payload was accepted for
// delivery, never whether it reached the collector. Accepted payloads are
// delivered in the background and survive the caller moving on; there is
// no completion signal and no way to attach headers.
type BeaconSender interface {
	// Send queues the payload for background delivery.
	//
	// Parameters:
	//   - url: The collector POST endpoint
	//   - body: The serialized batch envelope
	//   - contentType: The payload content type
	//
	// Returns:
	//   - bool: true if the payload was accepted for delivery
	Send(url string, body []byte, contentType string) bool
}

// Beacon is the default BeaconSender built on a background HTTP POST.
//
// It mirrors the contract of browser beacons: Send returns immediately
// after accepting the payload, the request runs detached, and responses
// are discarded. Payloads over the byte quota are rejected.
type Beacon struct {
	client   *http.Client
	maxBytes int
	wg       sync.WaitGroup
}

// Compile-time assertion that Beacon implements BeaconSender.
var _ BeaconSender = (*Beacon)(nil)

// BeaconOption configures a Beacon.
type BeaconOption func(*Beacon)

// WithBeaconClient sets the HTTP client used for background deliveries.
//
// Parameters:
//   - client: The HTTP client
//
// Returns:
//   - BeaconOption: Configuration option
func WithBeaconClient(client *http.Client) BeaconOption {
	return func(b *Beacon) {
		b.client = client
	}
}

// WithMaxBeaconBytes sets the payload quota above which sends are
// rejected.
//
// Default: DefaultMaxBeaconBytes
//
// Parameters:
//   - n: Maximum accepted payload size in bytes
//
// Returns:
//   - BeaconOption: Configuration option
func WithMaxBeaconBytes(n int) BeaconOption {
	return func(b *Beacon) {
		b.maxBytes = n
	}
}

// NewBeacon creates a beacon sender.
//
// Returns:
//   - *Beacon: A ready sender
func NewBeacon(opts ...BeaconOption) *Beacon {
	b := &Beacon{maxBytes: DefaultMaxBeaconBytes}

	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		b.client = &http.Client{Timeout: 10 * time.Second}
	}

	return b
}

// Send queues the payload for background delivery.
//
// The payload is copied before Send returns, so the caller may reuse the
// buffer. Responses, including error statuses, are discarded: acceptance
// is the only signal a beacon provides.
func (b *Beacon) Send(url string, body []byte, contentType string) bool {
	if b.maxBytes > 0 && len(body) > b.maxBytes {
		return false
	}

	payload := make([]byte, len(body))
	copy(payload, body)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := b.client.Do(req)
		if err != nil {
			return
		}
		drainBody(resp)
	}()

	return true
}

// Wait blocks until all accepted payloads have been handed to the
// network layer. Intended for orderly process shutdown.
func (b *Beacon) Wait() {
	b.wg.Wait()
}
