// Package types provides shared types and error definitions for the courier library.
//
// This is a leaf package with zero courier imports to prevent import cycles.
// All packages in courier can safely import this package.
//
// # Types
//
// Mode identifies the transport shape a queue is locked to for its lifetime:
//
//	const (
//	    ModePost Mode = iota
//	    ModeGet
//	)
//
// Payload is an ordered field list carrying a single tracking event. Field
// order is preserved through JSON and query-string encoding so the wire
// encoding of a payload is stable across enqueue, persistence, and delivery.
//
// Record is the queue-shape variant fixed at construction time:
//
//   - *PostRecord: stringified fields plus their encoded byte size
//   - GetRecord: a pre-rendered query string with a leading '?'
//
// # Errors
//
// Sentinel errors are provided for common failure scenarios:
//
//   - ErrNoCollectorURL: A drain was attempted before a collector URL was set
//   - ErrEmitterClosed: Operation attempted on a closed emitter
//
// # RequestFailure
//
// RequestFailure carries the terminal outcome of a failed delivery attempt to
// the caller's failure callback:
//
//	type RequestFailure struct {
//	    Status    int
//	    Message   string
//	    Events    EventBatch
//	    WillRetry bool
//	}
package types
