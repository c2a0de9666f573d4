package testutil

import (
	"sync"

	"github.com/tracebeam/courier/types"
)

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that tracks method calls for assertion in tests.
type TestMetricsCollector struct {
	mu sync.RWMutex

	// Queue
	Enqueued      map[types.Mode]int64
	Oversized     map[types.Mode]int64
	QueueDepth    map[types.Mode]int
	PersistErrors map[types.Mode]int64

	// Delivery
	SendTotal    map[types.Mode]int64
	SendSuccess  map[types.Mode]int64
	SendFailures map[types.Mode]int64
	Retries      map[types.Mode]int64
	Dropped      map[types.Mode]int64
	SendDuration map[types.Mode][]float64

	// Beacon
	BeaconAccepted int64
	BeaconRejected int64
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	return &TestMetricsCollector{
		Enqueued:      make(map[types.Mode]int64),
		Oversized:     make(map[types.Mode]int64),
		QueueDepth:    make(map[types.Mode]int),
		PersistErrors: make(map[types.Mode]int64),
		SendTotal:     make(map[types.Mode]int64),
		SendSuccess:   make(map[types.Mode]int64),
		SendFailures:  make(map[types.Mode]int64),
		Retries:       make(map[types.Mode]int64),
		Dropped:       make(map[types.Mode]int64),
		SendDuration:  make(map[types.Mode][]float64),
	}
}

// IncEnqueued increments the enqueued counter.
func (c *TestMetricsCollector) IncEnqueued(mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Enqueued[mode]++
}

// IncOversized increments the oversized counter.
func (c *TestMetricsCollector) IncOversized(mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Oversized[mode]++
}

// SetQueueDepth records the queue depth gauge.
func (c *TestMetricsCollector) SetQueueDepth(mode types.Mode, depth int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.QueueDepth[mode] = depth
}

// IncPersistError increments the persistence failure counter.
func (c *TestMetricsCollector) IncPersistError(mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.PersistErrors[mode]++
}

// IncSendTotal increments the send attempt counter.
func (c *TestMetricsCollector) IncSendTotal(mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SendTotal[mode]++
}

// IncSendSuccess increments the send success counter.
func (c *TestMetricsCollector) IncSendSuccess(mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SendSuccess[mode]++
}

// IncSendFailure increments the send failure counter.
func (c *TestMetricsCollector) IncSendFailure(mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SendFailures[mode]++
}

// IncRetry increments the retry counter.
func (c *TestMetricsCollector) IncRetry(mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Retries[mode]++
}

// IncDropped increments the dropped counter.
func (c *TestMetricsCollector) IncDropped(mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Dropped[mode]++
}

// ObserveSendDuration records a delivery duration.
func (c *TestMetricsCollector) ObserveSendDuration(mode types.Mode, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SendDuration[mode] = append(c.SendDuration[mode], seconds)
}

// IncBeaconAccepted increments the beacon accepted counter.
func (c *TestMetricsCollector) IncBeaconAccepted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.BeaconAccepted++
}

// IncBeaconRejected increments the beacon rejected counter.
func (c *TestMetricsCollector) IncBeaconRejected() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.BeaconRejected++
}

// GetEnqueued returns the enqueued count for a mode.
func (c *TestMetricsCollector) GetEnqueued(mode types.Mode) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.Enqueued[mode]
}

// GetSendSuccess returns the send success count for a mode.
func (c *TestMetricsCollector) GetSendSuccess(mode types.Mode) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.SendSuccess[mode]
}

// GetDropped returns the dropped count for a mode.
func (c *TestMetricsCollector) GetDropped(mode types.Mode) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.Dropped[mode]
}
