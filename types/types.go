package types

import "errors"

// Mode identifies the queue shape and transport family resolved at
// construction time. A queue instance holds exactly one mode for its
// entire lifetime.
type Mode int

const (
	// ModePost batches records into JSON envelopes delivered via POST.
	ModePost Mode = iota
	// ModeGet delivers one pre-rendered query string per request.
	ModeGet
)

// String returns the mode tag used in storage keys and metrics labels.
func (m Mode) String() string {
	if m == ModeGet {
		return "get"
	}
	return "post"
}

// HeaderAnonymous is the anonymity marker header attached to every request
// when anonymous tracking is active. Beacon sends cannot carry it.
const HeaderAnonymous = "X-Courier-Anonymous"

// AnonymousHeaderValue is the fixed value of the anonymity marker header.
const AnonymousHeaderValue = "*"

// Record is a queued event in its transport-specific shape.
//
// Exactly one concrete shape is used per queue instance: *PostRecord for
// ModePost queues and GetRecord for ModeGet queues.
type Record interface {
	// EncodedSize returns the exact encoded byte length of the record,
	// used for byte-budget decisions.
	EncodedSize() int

	// Valid reports whether the record has a well-formed shape. The drain
	// loop discards invalid head records, protecting against corrupted
	// persisted state.
	Valid() bool
}

// PostRecord is a queued event for ModePost queues.
//
// All field values are stringified before storage so the wire encoding is
// stable across persistence round-trips.
type PostRecord struct {
	// Payload holds the ordered, stringified event fields.
	Payload *Payload

	// Bytes is the encoded byte length of the payload, computed once at
	// enqueue time.
	Bytes int
}

// NewPostRecord creates a PostRecord and computes its encoded byte size.
//
// Parameters:
//   - p: The stringified event payload
//
// Returns:
//   - *PostRecord: A record ready for enqueue
func NewPostRecord(p *Payload) *PostRecord {
	return &PostRecord{Payload: p, Bytes: p.EncodedSize()}
}

// EncodedSize returns the encoded byte length computed at enqueue time.
func (r *PostRecord) EncodedSize() int {
	if r == nil {
		return 0
	}
	return r.Bytes
}

// Valid reports whether the record carries at least one field.
func (r *PostRecord) Valid() bool {
	return r != nil && r.Payload != nil && r.Payload.Len() > 0
}

// GetRecord is a queued event for ModeGet queues: a pre-rendered query
// string with a leading '?'. The two designated low-priority keys are
// always ordered last regardless of original insertion order.
type GetRecord string

// EncodedSize returns the byte length of the rendered query string.
//
// The full request size also includes the collector endpoint; callers add
// that length when enforcing the GET byte cap.
func (r GetRecord) EncodedSize() int {
	return len(r)
}

// Valid reports whether the record looks like a rendered query string.
func (r GetRecord) Valid() bool {
	return len(r) > 1 && r[0] == '?'
}

// EventBatch holds the raw (pre-queue-shape) event payloads that were part
// of a delivery attempt. It is surfaced to success and failure callbacks
// regardless of transport.
type EventBatch []*Payload

// RequestFailure describes a terminal delivery failure surfaced to the
// caller's failure callback.
type RequestFailure struct {
	// Status is the terminal HTTP status code, or 0 for network-level
	// failures and timeouts.
	Status int

	// Message is a short human-readable failure description.
	Message string

	// Events holds the raw payloads that were part of the failed attempt.
	Events EventBatch

	// WillRetry reports whether the batch remains queued for a future
	// drain. When false the batch has been permanently dropped.
	WillRetry bool
}

// SuccessHandler is invoked after a batch is accepted by the collector
// (or by the beacon layer, which reports acceptance optimistically).
type SuccessHandler func(batch EventBatch)

// FailureHandler is invoked after a terminal delivery failure.
type FailureHandler func(failure RequestFailure)

// Sentinel errors for common failure scenarios.
var (
	// ErrNoCollectorURL indicates a drain was attempted before a collector
	// URL was configured. This is programmer error, not a transient
	// condition, so it fails loudly instead of silently dropping events.
	ErrNoCollectorURL = errors.New("courier: no collector URL configured")

	// ErrEmitterClosed indicates an operation was attempted on a closed
	// emitter.
	ErrEmitterClosed = errors.New("courier: emitter is closed")

	// ErrKeyNotFound indicates a storage slot has no value for the
	// requested key.
	ErrKeyNotFound = errors.New("courier: storage key not found")
)
