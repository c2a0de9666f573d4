// Package courier provides a client-side reliable delivery queue for
// telemetry events.
//
// Courier accepts opaque event payloads, persists them in a durable slot,
// and delivers them to a remote collector with at-least-once semantics:
// records are batched under a byte budget, retried on recoverable
// failures, and drained strictly oldest first so a retryable failure on
// the head blocks all newer records until it resolves.
//
// # Key Features
//
//   - Transport Resolution: The requested method (post, get, beacon) is
//     resolved once against host capabilities at construction time
//   - Durable Queue: Pending records are mirrored into a pluggable slot
//     store (in-memory, SQL, or NATS JetStream KV) and survive restarts
//   - Byte-Budgeted Batching: POST batches grow to the longest queue
//     prefix under the configured byte cap
//   - Retry Classification: Failures are classified by status code with
//     explicit allow and deny lists; permanent failures are dropped
//   - Beacon Fast Path: Accepted beacon sends count as optimistic
//     successes without waiting for a response
//
// # Basic Usage
//
//	emitter, err := courier.New(
//	    courier.WithCollectorURL("https://collector.example.com"),
//	    courier.WithStorage(storage.NewMemoryStore()),
//	    courier.WithBufferSize(10),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emitter.Close()
//
//	p := &courier.Payload{}
//	p.Add("e", "pv")
//	p.Add("url", "https://example.com/page")
//	err = emitter.Track(p)
//
// # Delivery Callbacks
//
// Register callbacks to observe delivery outcomes:
//
//	emitter, _ := courier.New(
//	    courier.WithCollectorURL("https://collector.example.com"),
//	    courier.WithOnSuccess(func(events courier.EventBatch) {
//	        log.Printf("delivered %d events", len(events))
//	    }),
//	    courier.WithOnFailure(func(f courier.RequestFailure) {
//	        log.Printf("delivery failed: status=%d retry=%v", f.Status, f.WillRetry)
//	    }),
//	)
//
// # Sentinel Errors
//
// Courier defines sentinel errors for specific scenarios:
//
//   - types.ErrNoCollectorURL: A drain was triggered without a destination
//   - types.ErrEmitterClosed: Track was called after Close
//   - types.ErrKeyNotFound: A slot store has no value for the given key
//
// # Lifecycle
//
// Register emitters with a shared LifecycleCoordinator to force-flush
// all pending records synchronously before the host process exits:
//
//	lc := courier.NewLifecycleCoordinator()
//	emitter, _ := courier.New(
//	    courier.WithCollectorURL("https://collector.example.com"),
//	    courier.WithLifecycle(lc),
//	)
//	defer lc.Shutdown()
package courier
