// Package transport provides transport resolution and the delivery
// primitives used by the courier event queue.
//
// # Resolution
//
// At emitter construction time, [Resolve] inspects the host environment's
// [Capabilities] and the caller's requested [Method] and deterministically
// fixes one immutable transport for the queue's lifetime:
//
//   - ModePost: batched JSON envelopes via POST, optionally with a beacon
//     fast path
//   - ModeGet: one query-string record per request, via plain requests or
//     the pixel technique when asynchronous requests are unavailable
//
// Requesting the beacon method disables custom headers for the queue's
// lifetime: headers cannot be attached to a beacon send, and allowing
// them only on the fallback path would produce inconsistent behavior.
//
// # Senders
//
// [HTTPSender] performs synchronous request/response deliveries with a
// timeout guard; a timed-out attempt is reported as a network failure
// with status 0 and a fixed "timeout" message. [Beacon] is the
// fire-and-forget fast path: it reports only whether the payload was
// accepted for delivery, never whether it reached the collector. The
// pixel technique issues a request whose response status is invisible to
// the caller; only completion, transport error, or timeout are observable.
package transport
