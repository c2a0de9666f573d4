// Package testutil provides test utilities and mock implementations for courier testing.
//
// This package provides mock implementations of courier interfaces for unit
// testing, as well as helper functions for integration tests.
//
// # Mock Implementations
//
// The package provides mock implementations for testing:
//
//   - [FlakyKV]: A storage.KV wrapper that fails on demand
//   - [TestMetricsCollector]: A types.MetricsCollector that records calls
//   - [CaptureLogger]: A types.Logger that records emitted messages
//   - [ManualBeacon]: A transport.BeaconSender with scripted acceptance
//
// # Collector Test Servers
//
// StartCollector runs an httptest server that records every request and
// responds with a scripted status sequence:
//
//	collector := testutil.StartCollector(t, 200)
//	emitter, _ := courier.New(courier.WithCollectorURL(collector.URL()))
//
// # Integration Test Helpers
//
// For integration tests, helper functions are provided:
//
//   - StartEmbeddedNATS: Starts an embedded NATS server for storage testing
package testutil
