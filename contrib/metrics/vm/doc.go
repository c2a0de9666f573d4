// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// high-performance Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "courier":
//
//	collector := vm.New()
//	emitter, _ := courier.New(
//	    courier.WithCollectorURL("https://collector.example.com"),
//	    courier.WithMetrics(collector),
//	)
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//
// This produces metrics like:
//   - myapp_send_total{mode="post"}
//   - myapp_queue_depth{mode="get"}
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	http.HandleFunc("/metrics", collector.Handler)
//	http.ListenAndServe(":8080", nil)
//
// Or use WritePrometheus to write metrics to a custom writer:
//
//	collector.WritePrometheus(w)
//
// # Metrics Provided
//
// Queue:
//   - {prefix}_enqueued_total{mode} - Counter of records accepted into the queue
//   - {prefix}_oversized_total{mode} - Counter of records sent via the bypass path
//   - {prefix}_queue_depth{mode} - Gauge of current queue depth
//   - {prefix}_persist_errors_total{mode} - Counter of persistence failures
//
// Delivery:
//   - {prefix}_send_total{mode} - Counter of physical delivery attempts
//   - {prefix}_send_success_total{mode} - Counter of accepted deliveries
//   - {prefix}_send_failures_total{mode} - Counter of terminal delivery failures
//   - {prefix}_retries_total{mode} - Counter of retryable failures
//   - {prefix}_dropped_total{mode} - Counter of permanently dropped records
//   - {prefix}_send_duration_seconds{mode} - Histogram of delivery latencies
//
// Beacon:
//   - {prefix}_beacon_accepted_total - Counter of accepted beacon sends
//   - {prefix}_beacon_rejected_total - Counter of rejected beacon sends
//
// # Performance Notes
//
// This implementation pre-creates all metrics at initialization time
// using the NewXXX pattern (instead of GetOrCreateXXX) for optimal
// performance in hot paths, as recommended by the VictoriaMetrics documentation.
//
// The metrics are registered with a dedicated Set that is registered
// globally, allowing standard Prometheus scraping.
package vm
