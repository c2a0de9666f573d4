package courier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	courier "github.com/tracebeam/courier"
	"github.com/tracebeam/courier/storage"
	"github.com/tracebeam/courier/test/testutil"
	"github.com/tracebeam/courier/types"
)

func pageView(url string) *courier.Payload {
	p := &courier.Payload{}
	p.Add("e", "pv")
	p.Add("url", url)
	return p
}

type envelope struct {
	Schema string            `json:"schema"`
	Data   []json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestEmitterPostDelivery(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	var delivered courier.EventBatch
	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
		courier.WithOnSuccess(func(batch courier.EventBatch) {
			delivered = batch
		}),
	)
	require.NoError(t, err)
	require.Equal(t, courier.ModePost, e.Mode())

	require.NoError(t, e.Track(pageView("https://example.com/a")))
	require.NoError(t, e.Track(pageView("https://example.com/b")))
	require.Equal(t, 2, e.Pending())

	require.NoError(t, e.FlushSync())
	require.Equal(t, 0, e.Pending())

	reqs := collector.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPost, reqs[0].Method)
	require.Equal(t, "/track", reqs[0].Path)
	require.Equal(t, "application/json; charset=UTF-8", reqs[0].Header.Get("Content-Type"))

	env := decodeEnvelope(t, reqs[0].Body)
	require.Equal(t, courier.DefaultPayloadDataSchema, env.Schema)
	require.Len(t, env.Data, 2)

	require.Len(t, delivered, 2)
	url, _ := delivered[0].Get("url")
	require.Equal(t, "https://example.com/a", url)
}

func TestEmitterBufferThresholdDrain(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(2),
	)
	require.NoError(t, err)
	require.Equal(t, 2, e.BufferSize())

	// Below the threshold the record is buffered, nothing is sent.
	require.NoError(t, e.Track(pageView("https://example.com/a")))
	require.Equal(t, 1, e.Pending())
	require.Equal(t, 0, collector.RequestCount())

	// The second track reaches the threshold and drains both records as
	// one batch.
	require.NoError(t, e.Track(pageView("https://example.com/b")))
	require.Eventually(t, func() bool {
		return collector.RequestCount() == 1 && e.Pending() == 0
	}, time.Second, 5*time.Millisecond)

	env := decodeEnvelope(t, collector.Requests()[0].Body)
	require.Len(t, env.Data, 2)

	// Let the drain goroutine observe the empty queue and exit before the
	// next record arrives.
	time.Sleep(20 * time.Millisecond)

	// A leftover record below the threshold stays buffered until the next
	// trigger.
	require.NoError(t, e.Track(pageView("https://example.com/c")))
	require.Never(t, func() bool { return collector.RequestCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, 1, e.Pending())

	require.NoError(t, e.FlushSync())
	require.Equal(t, 0, e.Pending())
	require.Equal(t, 2, collector.RequestCount())
}

func TestEmitterSharedSentTimestamp(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com/a")))
	require.NoError(t, e.Track(pageView("https://example.com/b")))
	require.NoError(t, e.FlushSync())

	env := decodeEnvelope(t, collector.Requests()[0].Body)
	require.Len(t, env.Data, 2)

	var stms []string
	for _, raw := range env.Data {
		var p types.Payload
		require.NoError(t, json.Unmarshal(raw, &p))
		stm, ok := p.Get("stm")
		require.True(t, ok, "every record must carry the shared send timestamp")
		stms = append(stms, stm)
	}
	require.Equal(t, stms[0], stms[1])
}

func TestEmitterSentTimestampDisabled(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithSentTimestamp(false),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return e.Pending() == 0 }, time.Second, 5*time.Millisecond)

	env := decodeEnvelope(t, collector.Requests()[0].Body)
	var p types.Payload
	require.NoError(t, json.Unmarshal(env.Data[0], &p))
	_, ok := p.Get("stm")
	require.False(t, ok)
}

func TestEmitterBufferForcedWithoutStorage(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithBufferSize(50),
	)
	require.NoError(t, err)

	// Batching without a durable mirror is unsafe, so the effective
	// buffer collapses to one and every Track drains immediately.
	require.Equal(t, 1, e.BufferSize())

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return collector.RequestCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEmitterBufferForcedInGetMode(t *testing.T) {
	e, err := courier.New(
		courier.WithCollectorURL("http://localhost:0"),
		courier.WithMethod(courier.MethodGet),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(50),
	)
	require.NoError(t, err)
	require.Equal(t, 1, e.BufferSize())
}

func TestEmitterRetryableFailureHaltsAndRetries(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusServiceUnavailable, http.StatusOK)

	var failures []courier.RequestFailure
	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
		courier.WithOnFailure(func(f courier.RequestFailure) {
			failures = append(failures, f)
		}),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))

	// First drain fails with a retryable status and halts; the record
	// stays queued.
	require.NoError(t, e.FlushSync())
	require.Equal(t, 1, e.Pending())
	require.Len(t, failures, 1)
	require.Equal(t, http.StatusServiceUnavailable, failures[0].Status)
	require.True(t, failures[0].WillRetry)

	// The next drain is externally triggered, never automatic.
	require.Equal(t, 1, collector.RequestCount())

	require.NoError(t, e.FlushSync())
	require.Equal(t, 0, e.Pending())
	require.Equal(t, 2, collector.RequestCount())
}

func TestEmitterPermanentFailureDropsBatch(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusForbidden)

	var failure courier.RequestFailure
	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
		courier.WithOnFailure(func(f courier.RequestFailure) {
			failure = f
		}),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.NoError(t, e.FlushSync())

	require.Equal(t, 0, e.Pending())
	require.Equal(t, http.StatusForbidden, failure.Status)
	require.False(t, failure.WillRetry)
	require.Len(t, failure.Events, 1)
}

func TestEmitterExplicitRetryListWins(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusForbidden, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
		courier.WithRetryStatusCodes(http.StatusForbidden),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.NoError(t, e.FlushSync())

	// 403 is on the default don't-retry list, but the explicit retry
	// list takes precedence.
	require.Equal(t, 1, e.Pending())

	require.NoError(t, e.FlushSync())
	require.Equal(t, 0, e.Pending())
}

func TestEmitterRetriesDisabledGlobally(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusServiceUnavailable)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
		courier.WithRetryFailedRequests(false),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.NoError(t, e.FlushSync())
	require.Equal(t, 0, e.Pending())
}

func TestEmitterFlushWithoutCollectorURL(t *testing.T) {
	e, err := courier.New(
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.ErrorIs(t, e.Flush(), types.ErrNoCollectorURL)

	collector := testutil.StartCollector(t, http.StatusOK)
	e.SetCollectorURL(collector.URL())
	require.NoError(t, e.FlushSync())
	require.Equal(t, 0, e.Pending())
}

func TestEmitterTrackAfterClose(t *testing.T) {
	e, err := courier.New(courier.WithCollectorURL("http://localhost:0"))
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.ErrorIs(t, e.Track(pageView("https://example.com")), types.ErrEmitterClosed)
	require.NoError(t, e.Close())
}

func TestEmitterPersistFailureDrainsImmediately(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)
	kv := testutil.NewFlakyKV()
	kv.FailSets(true)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(kv),
		courier.WithBufferSize(100),
	)
	require.NoError(t, err)

	// The mirror write fails, so the record exists only in memory and
	// the drain fires immediately instead of waiting for the buffer.
	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return collector.RequestCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEmitterGetModePixelDelivery(t *testing.T) {
	// Pixel delivery is status-blind: an error status still removes the
	// record and the drain continues.
	collector := testutil.StartCollector(t, http.StatusForbidden)

	var mu sync.Mutex
	var delivered courier.EventBatch
	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithMethod(courier.MethodGet),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithOnSuccess(func(batch courier.EventBatch) {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, batch...)
		}),
	)
	require.NoError(t, err)
	require.Equal(t, courier.ModeGet, e.Mode())

	require.NoError(t, e.Track(pageView("https://example.com/page")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, e.Pending())

	reqs := collector.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodGet, reqs[0].Method)
	require.Equal(t, "/i", reqs[0].Path)
	require.True(t, strings.HasPrefix(reqs[0].Query, "stm="), "send timestamp must lead the query: %s", reqs[0].Query)
	require.Contains(t, reqs[0].Query, "e=pv")

	mu.Lock()
	defer mu.Unlock()
	url, _ := delivered[0].Get("url")
	require.Equal(t, "https://example.com/page", url)
}

func TestEmitterPixelForcedWithoutCORS(t *testing.T) {
	// Without asynchronous request support every GET goes through the
	// pixel technique, even for an anonymous queue whose marker would
	// otherwise need the request path.
	collector := testutil.StartCollector(t, http.StatusForbidden)

	var mu sync.Mutex
	var delivered courier.EventBatch
	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithAnonymousTracking(true),
		courier.WithCapabilities(courier.Capabilities{}),
		courier.WithOnSuccess(func(batch courier.EventBatch) {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, batch...)
		}),
	)
	require.NoError(t, err)
	require.Equal(t, courier.ModeGet, e.Mode())

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, e.Pending())

	reqs := collector.Requests()
	require.Len(t, reqs, 1)
	// Pixel loads carry no headers and ignore the error status.
	require.Empty(t, reqs[0].Header.Get("X-Courier-Anonymous"))
}

func TestEmitterAnonymousGetUsesRequestPath(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithMethod(courier.MethodGet),
		courier.WithAnonymousTracking(true),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return e.Pending() == 0 }, time.Second, 5*time.Millisecond)

	reqs := collector.Requests()
	require.Len(t, reqs, 1)
	// The anonymity marker can only travel on the request path, never
	// on a pixel load.
	require.Equal(t, "*", reqs[0].Header.Get("X-Courier-Anonymous"))
}

func TestEmitterAnonymousGetClassifiesStatuses(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusServiceUnavailable, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithMethod(courier.MethodGet),
		courier.WithAnonymousTracking(true),
		courier.WithStorage(storage.NewMemoryStore()),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return collector.RequestCount() == 1 }, time.Second, 5*time.Millisecond)

	// Unlike pixel delivery, the request path sees the 503 and retries.
	require.Equal(t, 1, e.Pending())

	require.Eventually(t, func() bool {
		require.NoError(t, e.FlushSync())
		return e.Pending() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestEmitterAnonymousPostHeader(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithAnonymousTracking(true),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(10),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.NoError(t, e.FlushSync())

	require.Equal(t, "*", collector.Requests()[0].Header.Get("X-Courier-Anonymous"))
}

func TestEmitterBeaconFastPath(t *testing.T) {
	beacon := testutil.NewManualBeacon(true)

	var delivered courier.EventBatch
	var mu sync.Mutex
	e, err := courier.New(
		courier.WithCollectorURL("http://collector.invalid"),
		courier.WithMethod(courier.MethodBeacon),
		courier.WithBeaconSender(beacon),
		courier.WithOnSuccess(func(batch courier.EventBatch) {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, batch...)
		}),
	)
	require.NoError(t, err)

	// Beacon acceptance counts as success without any HTTP round trip;
	// the invalid collector host is never dialed.
	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return e.Pending() == 0 }, time.Second, 5*time.Millisecond)

	require.Len(t, beacon.Sends(), 1)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
}

func TestEmitterBeaconRejectionFallsThrough(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)
	beacon := testutil.NewManualBeacon(false)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithMethod(courier.MethodBeacon),
		courier.WithBeaconSender(beacon),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return collector.RequestCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, e.Pending())
}

func TestEmitterBeaconRequestDisablesCustomHeaders(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)
	beacon := testutil.NewManualBeacon(false)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithMethod(courier.MethodBeacon),
		courier.WithBeaconSender(beacon),
		courier.WithCustomHeaders(map[string]string{"X-Custom": "yes"}),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return collector.RequestCount() == 1 }, time.Second, 5*time.Millisecond)

	// Headers stay disabled even on the fallback request path.
	require.Empty(t, collector.Requests()[0].Header.Get("X-Custom"))
}

func TestEmitterCustomHeaders(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithCustomHeaders(map[string]string{"X-Custom": "yes"}),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Eventually(t, func() bool { return collector.RequestCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "yes", collector.Requests()[0].Header.Get("X-Custom"))
}

func TestEmitterOversizedBypass(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)
	logger := testutil.NewCaptureLogger()
	metrics := testutil.NewTestMetricsCollector()

	var callbacks int
	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
		courier.WithMaxPostBytes(40),
		courier.WithLogger(logger),
		courier.WithMetrics(metrics),
		courier.WithOnSuccess(func(courier.EventBatch) { callbacks++ }),
		courier.WithOnFailure(func(courier.RequestFailure) { callbacks++ }),
	)
	require.NoError(t, err)

	big := pageView("https://example.com/" + strings.Repeat("x", 200))
	require.NoError(t, e.Track(big))

	// The oversized record never enters the queue; it is sent standalone
	// with a warning and no callbacks.
	require.Equal(t, 0, e.Pending())
	require.Eventually(t, func() bool { return collector.RequestCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, callbacks)
	require.Equal(t, int64(1), metrics.Oversized[courier.ModePost])
	require.True(t, logger.HasMessage("event exceeds the maximum request size and bypasses the queue"))
}

func TestEmitterMalformedHeadDiscarded(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)
	kv := storage.NewMemoryStore()

	// Seed the persisted slot with a corrupt head record followed by a
	// valid one.
	seed, err := json.Marshal([]string{"no-question-mark", "?e=pv"})
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), "courier_queue_inst_get", seed))

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithMethod(courier.MethodGet),
		courier.WithInstanceID("inst"),
		courier.WithStorage(kv),
	)
	require.NoError(t, err)
	require.Equal(t, 2, e.Pending())

	require.NoError(t, e.FlushSync())
	require.Equal(t, 0, e.Pending())

	// Only the valid record produced a request.
	require.Equal(t, 1, collector.RequestCount())
	require.Contains(t, collector.Requests()[0].Query, "e=pv")
}

func TestEmitterIdentityPreflight(t *testing.T) {
	idService := testutil.StartCollector(t, http.StatusOK)
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
		courier.WithIDServiceURL(idService.URL()+"/id"),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com/a")))
	require.NoError(t, e.FlushSync())
	require.Equal(t, 0, e.Pending())

	// The preflight fired exactly once, before the first batch.
	require.Equal(t, 1, idService.RequestCount())
	require.Equal(t, 1, collector.RequestCount())

	// Subsequent drains never repeat it.
	require.NoError(t, e.Track(pageView("https://example.com/b")))
	require.NoError(t, e.FlushSync())
	require.Equal(t, 1, idService.RequestCount())
	require.Equal(t, 2, collector.RequestCount())
}

func TestEmitterSingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var requests int
	var mu sync.Mutex

	blocking := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		requests++
		first := requests == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer blocking.Close()

	e, err := courier.New(
		courier.WithCollectorURL(blocking.URL),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com/a")))
	require.NoError(t, e.Flush())
	<-started

	// Further triggers while a drain is executing are no-ops.
	require.NoError(t, e.Flush())
	require.NoError(t, e.Flush())
	close(release)

	require.Eventually(t, func() bool { return e.Pending() == 0 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, requests)
}

func TestEmitterLifecycleShutdownFlushes(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)
	lc := courier.NewLifecycleCoordinator()

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
		courier.WithLifecycle(lc),
	)
	require.NoError(t, err)
	require.Len(t, lc.Queues(), 1)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.Equal(t, 1, e.Pending())

	lc.Shutdown()
	require.Equal(t, 0, e.Pending())
	require.Equal(t, 1, collector.RequestCount())
}

func TestEmitterCloseFlushesPending(t *testing.T) {
	collector := testutil.StartCollector(t, http.StatusOK)

	e, err := courier.New(
		courier.WithCollectorURL(collector.URL()),
		courier.WithStorage(storage.NewMemoryStore()),
		courier.WithBufferSize(100),
	)
	require.NoError(t, err)

	require.NoError(t, e.Track(pageView("https://example.com")))
	require.NoError(t, e.Close())
	require.Equal(t, 0, e.Pending())
	require.Equal(t, 1, collector.RequestCount())
}

func TestEmitterQueueSurvivesRestart(t *testing.T) {
	kv := storage.NewMemoryStore()

	e1, err := courier.New(
		courier.WithInstanceID("stable"),
		courier.WithStorage(kv),
		courier.WithBufferSize(100),
	)
	require.NoError(t, err)
	require.NoError(t, e1.Track(pageView("https://example.com")))
	require.Equal(t, 1, e1.Pending())

	// A new emitter with the same instance ID picks up the pending queue.
	collector := testutil.StartCollector(t, http.StatusOK)
	e2, err := courier.New(
		courier.WithInstanceID("stable"),
		courier.WithStorage(kv),
		courier.WithBufferSize(100),
		courier.WithCollectorURL(collector.URL()),
	)
	require.NoError(t, err)
	require.Equal(t, 1, e2.Pending())

	require.NoError(t, e2.FlushSync())
	require.Equal(t, 0, e2.Pending())
}
