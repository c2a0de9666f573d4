package testutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tracebeam/courier/storage"
	"github.com/tracebeam/courier/transport"
	"github.com/tracebeam/courier/types"
)

// ErrFlaky is the error returned by a FlakyKV while failing is enabled.
var ErrFlaky = errors.New("testutil: injected storage failure")

// FlakyKV wraps a storage.KV and fails writes or reads on demand.
//
// Use it to exercise the best-effort persistence paths: a failed mirror
// write must never abort an enqueue, and a failed read must leave the
// queue starting empty.
type FlakyKV struct {
	mu       sync.Mutex
	inner    storage.KV
	failGets bool
	failSets bool
	sets     int
}

// Compile-time assertion that FlakyKV implements storage.KV.
var _ storage.KV = (*FlakyKV)(nil)

// NewFlakyKV creates a FlakyKV around an in-memory store.
func NewFlakyKV() *FlakyKV {
	return &FlakyKV{inner: storage.NewMemoryStore()}
}

// FailGets toggles read failures.
func (f *FlakyKV) FailGets(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failGets = fail
}

// FailSets toggles write failures.
func (f *FlakyKV) FailSets(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failSets = fail
}

// Sets returns the number of successful Set calls.
func (f *FlakyKV) Sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sets
}

// Get reads a value, or fails when read failures are enabled.
func (f *FlakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	failing := f.failGets
	f.mu.Unlock()

	if failing {
		return nil, ErrFlaky
	}

	return f.inner.Get(ctx, key)
}

// Set writes a value, or fails when write failures are enabled.
func (f *FlakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	failing := f.failSets
	f.mu.Unlock()

	if failing {
		return ErrFlaky
	}
	if err := f.inner.Set(ctx, key, value); err != nil {
		return err
	}

	f.mu.Lock()
	f.sets++
	f.mu.Unlock()

	return nil
}

// Delete removes a value from the inner store.
func (f *FlakyKV) Delete(ctx context.Context, key string) error {
	return f.inner.Delete(ctx, key)
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  []any
}

// CaptureLogger records every log call for assertion in tests.
type CaptureLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Compile-time assertion that CaptureLogger implements types.Logger.
var _ types.Logger = (*CaptureLogger)(nil)

// NewCaptureLogger creates an empty capture logger.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{}
}

func (l *CaptureLogger) record(level, msg string, fields []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

// Debug records a debug-level entry.
func (l *CaptureLogger) Debug(msg string, keysAndValues ...any) {
	l.record("debug", msg, keysAndValues)
}

// Info records an info-level entry.
func (l *CaptureLogger) Info(msg string, keysAndValues ...any) {
	l.record("info", msg, keysAndValues)
}

// Warn records a warn-level entry.
func (l *CaptureLogger) Warn(msg string, keysAndValues ...any) {
	l.record("warn", msg, keysAndValues)
}

// Error records an error-level entry.
func (l *CaptureLogger) Error(msg string, keysAndValues ...any) {
	l.record("error", msg, keysAndValues)
}

// Entries returns a copy of all captured entries.
func (l *CaptureLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)

	return out
}

// HasMessage reports whether any captured entry has the given message.
func (l *CaptureLogger) HasMessage(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.Message == msg {
			return true
		}
	}

	return false
}

// ManualBeacon is a transport.BeaconSender with scripted acceptance.
type ManualBeacon struct {
	mu     sync.Mutex
	accept bool
	sends  [][]byte
}

// Compile-time assertion that ManualBeacon implements transport.BeaconSender.
var _ transport.BeaconSender = (*ManualBeacon)(nil)

// NewManualBeacon creates a beacon that accepts or rejects every send.
func NewManualBeacon(accept bool) *ManualBeacon {
	return &ManualBeacon{accept: accept}
}

// Send records the payload and returns the scripted acceptance.
func (b *ManualBeacon) Send(_ string, body []byte, _ string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.accept {
		return false
	}

	payload := make([]byte, len(body))
	copy(payload, body)
	b.sends = append(b.sends, payload)

	return true
}

// Sends returns the accepted payloads in order.
func (b *ManualBeacon) Sends() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([][]byte, len(b.sends))
	copy(out, b.sends)

	return out
}

// CollectorRequest is one request captured by a Collector test server.
type CollectorRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Collector is an httptest-backed collector endpoint that records every
// request and answers with a scripted status sequence.
type Collector struct {
	mu       sync.Mutex
	server   *httptest.Server
	statuses []int
	next     int
	requests []CollectorRequest
}

// StartCollector starts a collector test server.
//
// The status sequence is consumed one request at a time; once exhausted,
// the last status repeats. The server is shut down when the test
// completes.
//
// Parameters:
//   - t: The testing context
//   - statuses: The response status sequence (at least one)
//
// Returns:
//   - *Collector: A running collector server
func StartCollector(t *testing.T, statuses ...int) *Collector {
	t.Helper()

	if len(statuses) == 0 {
		statuses = []int{http.StatusOK}
	}

	c := &Collector{statuses: statuses}
	c.server = httptest.NewServer(http.HandlerFunc(c.handle))
	t.Cleanup(c.server.Close)

	return c
}

func (c *Collector) handle(w http.ResponseWriter, r *http.Request) {
	body := make([]byte, 0)
	if r.Body != nil {
		buf := make([]byte, 64*1024)
		for {
			n, err := r.Body.Read(buf)
			body = append(body, buf[:n]...)
			if err != nil {
				break
			}
		}
	}

	c.mu.Lock()
	c.requests = append(c.requests, CollectorRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	status := c.statuses[c.next]
	if c.next < len(c.statuses)-1 {
		c.next++
	}
	c.mu.Unlock()

	w.WriteHeader(status)
}

// URL returns the server's base URL.
func (c *Collector) URL() string {
	return c.server.URL
}

// Requests returns a copy of all captured requests in arrival order.
func (c *Collector) Requests() []CollectorRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CollectorRequest, len(c.requests))
	copy(out, c.requests)

	return out
}

// RequestCount returns the number of requests received so far.
func (c *Collector) RequestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.requests)
}
