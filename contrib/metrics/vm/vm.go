package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/tracebeam/courier/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "courier"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// modeMetrics holds the per-mode instances of every mode-labeled metric.
type modeMetrics struct {
	enqueued      *metrics.Counter
	oversized     *metrics.Counter
	queueDepth    atomic.Int64
	persistErrors *metrics.Counter

	sendTotal    *metrics.Counter
	sendSuccess  *metrics.Counter
	sendFailures *metrics.Counter
	retries      *metrics.Counter
	dropped      *metrics.Counter
	sendDuration *metrics.Histogram
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// All metrics are pre-created at initialization time for optimal performance.
// Thread-safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string

	post modeMetrics
	get  modeMetrics

	beaconAccepted *metrics.Counter
	beaconRejected *metrics.Counter
}

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally.
// All metrics are pre-created at initialization for optimal performance.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	emitter, _ := courier.New(
//	    courier.WithCollectorURL("https://collector.example.com"),
//	    courier.WithMetrics(collector),
//	)
func New(opts ...Option) *Collector {
	c := &Collector{prefix: "courier"}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMode(&c.post, types.ModePost)
	c.initMode(&c.get, types.ModeGet)

	c.beaconAccepted = c.set.NewCounter(fmt.Sprintf(`%s_beacon_accepted_total`, c.prefix))
	c.beaconRejected = c.set.NewCounter(fmt.Sprintf(`%s_beacon_rejected_total`, c.prefix))

	return c
}

// initMode pre-creates all mode-labeled metrics for one delivery mode.
func (c *Collector) initMode(m *modeMetrics, mode types.Mode) {
	p := c.prefix
	label := mode.String()

	m.enqueued = c.set.NewCounter(fmt.Sprintf(`%s_enqueued_total{mode="%s"}`, p, label))
	m.oversized = c.set.NewCounter(fmt.Sprintf(`%s_oversized_total{mode="%s"}`, p, label))
	c.set.NewGauge(fmt.Sprintf(`%s_queue_depth{mode="%s"}`, p, label), func() float64 {
		return float64(m.queueDepth.Load())
	})
	m.persistErrors = c.set.NewCounter(fmt.Sprintf(`%s_persist_errors_total{mode="%s"}`, p, label))

	m.sendTotal = c.set.NewCounter(fmt.Sprintf(`%s_send_total{mode="%s"}`, p, label))
	m.sendSuccess = c.set.NewCounter(fmt.Sprintf(`%s_send_success_total{mode="%s"}`, p, label))
	m.sendFailures = c.set.NewCounter(fmt.Sprintf(`%s_send_failures_total{mode="%s"}`, p, label))
	m.retries = c.set.NewCounter(fmt.Sprintf(`%s_retries_total{mode="%s"}`, p, label))
	m.dropped = c.set.NewCounter(fmt.Sprintf(`%s_dropped_total{mode="%s"}`, p, label))
	m.sendDuration = c.set.NewHistogram(fmt.Sprintf(`%s_send_duration_seconds{mode="%s"}`, p, label))
}

// byMode selects the metric instances for a mode.
func (c *Collector) byMode(mode types.Mode) *modeMetrics {
	if mode == types.ModeGet {
		return &c.get
	}

	return &c.post
}

func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// ----------------------
// Queue
// ----------------------

// IncEnqueued increments the counter of records accepted into the queue.
func (c *Collector) IncEnqueued(mode types.Mode) {
	c.byMode(mode).enqueued.Inc()
}

// IncOversized increments the counter of records sent via the bypass path.
func (c *Collector) IncOversized(mode types.Mode) {
	c.byMode(mode).oversized.Inc()
}

// SetQueueDepth sets the current queue depth gauge.
func (c *Collector) SetQueueDepth(mode types.Mode, depth int) {
	c.byMode(mode).queueDepth.Store(int64(depth))
}

// IncPersistError increments the persistence failure counter.
func (c *Collector) IncPersistError(mode types.Mode) {
	c.byMode(mode).persistErrors.Inc()
}

// ----------------------
// Delivery
// ----------------------

// IncSendTotal increments the counter of physical delivery attempts.
func (c *Collector) IncSendTotal(mode types.Mode) {
	c.byMode(mode).sendTotal.Inc()
}

// IncSendSuccess increments the counter of accepted deliveries.
func (c *Collector) IncSendSuccess(mode types.Mode) {
	c.byMode(mode).sendSuccess.Inc()
}

// IncSendFailure increments the counter of terminal delivery failures.
func (c *Collector) IncSendFailure(mode types.Mode) {
	c.byMode(mode).sendFailures.Inc()
}

// IncRetry increments the counter of failures classified as retryable.
func (c *Collector) IncRetry(mode types.Mode) {
	c.byMode(mode).retries.Inc()
}

// IncDropped increments the counter of permanently dropped records.
func (c *Collector) IncDropped(mode types.Mode) {
	c.byMode(mode).dropped.Inc()
}

// ObserveSendDuration records a delivery attempt duration in seconds.
func (c *Collector) ObserveSendDuration(mode types.Mode, seconds float64) {
	c.byMode(mode).sendDuration.Update(seconds)
}

// ----------------------
// Beacon
// ----------------------

// IncBeaconAccepted increments the counter of accepted beacon sends.
func (c *Collector) IncBeaconAccepted() {
	c.beaconAccepted.Inc()
}

// IncBeaconRejected increments the counter of rejected beacon sends.
func (c *Collector) IncBeaconRejected() {
	c.beaconRejected.Inc()
}
