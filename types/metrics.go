package types

// MetricsCollector defines methods for collecting delivery queue metrics.
//
// All queue-scoped methods accept a Mode parameter for labeling.
// Implementations should be thread-safe as methods may be called concurrently.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/tracebeam/courier/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	emitter, _ := courier.New(
//	    courier.WithCollectorURL("https://collector.example.com"),
//	    courier.WithMetrics(collector),
//	)
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Queue
	// ----------------------

	// IncEnqueued increments the counter of records accepted into the queue.
	IncEnqueued(mode Mode)

	// IncOversized increments the counter of records that exceeded the byte
	// cap and were sent via the standalone bypass path.
	IncOversized(mode Mode)

	// SetQueueDepth sets the current queue depth gauge.
	SetQueueDepth(mode Mode, depth int)

	// IncPersistError increments the counter of best-effort persistence
	// failures. The queue degrades to in-memory-only for that operation.
	IncPersistError(mode Mode)

	// ----------------------
	// Delivery
	// ----------------------

	// IncSendTotal increments the counter of physical delivery attempts.
	IncSendTotal(mode Mode)

	// IncSendSuccess increments the counter of accepted deliveries.
	IncSendSuccess(mode Mode)

	// IncSendFailure increments the counter of terminal delivery failures.
	IncSendFailure(mode Mode)

	// IncRetry increments the counter of failures classified as retryable.
	IncRetry(mode Mode)

	// IncDropped increments the counter of records permanently dropped
	// after a non-retryable failure.
	IncDropped(mode Mode)

	// ObserveSendDuration records a delivery attempt duration in seconds.
	ObserveSendDuration(mode Mode, seconds float64)

	// ----------------------
	// Beacon
	// ----------------------

	// IncBeaconAccepted increments the counter of batches handed to the
	// beacon fast path and reported as accepted.
	IncBeaconAccepted()

	// IncBeaconRejected increments the counter of beacon sends that were
	// rejected and fell through to the asynchronous request path.
	IncBeaconRejected()
}
