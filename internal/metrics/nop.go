// Package metrics provides internal metrics utilities for courier.
package metrics

import "github.com/tracebeam/courier/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// ----------------------
// Queue
// ----------------------

// IncEnqueued discards the metric.
func (m *NopMetrics) IncEnqueued(_ types.Mode) {}

// IncOversized discards the metric.
func (m *NopMetrics) IncOversized(_ types.Mode) {}

// SetQueueDepth discards the metric.
func (m *NopMetrics) SetQueueDepth(_ types.Mode, _ int) {}

// IncPersistError discards the metric.
func (m *NopMetrics) IncPersistError(_ types.Mode) {}

// ----------------------
// Delivery
// ----------------------

// IncSendTotal discards the metric.
func (m *NopMetrics) IncSendTotal(_ types.Mode) {}

// IncSendSuccess discards the metric.
func (m *NopMetrics) IncSendSuccess(_ types.Mode) {}

// IncSendFailure discards the metric.
func (m *NopMetrics) IncSendFailure(_ types.Mode) {}

// IncRetry discards the metric.
func (m *NopMetrics) IncRetry(_ types.Mode) {}

// IncDropped discards the metric.
func (m *NopMetrics) IncDropped(_ types.Mode) {}

// ObserveSendDuration discards the metric.
func (m *NopMetrics) ObserveSendDuration(_ types.Mode, _ float64) {}

// ----------------------
// Beacon
// ----------------------

// IncBeaconAccepted discards the metric.
func (m *NopMetrics) IncBeaconAccepted() {}

// IncBeaconRejected discards the metric.
func (m *NopMetrics) IncBeaconRejected() {}
