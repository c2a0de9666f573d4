package courier

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tracebeam/courier/policy"
	"github.com/tracebeam/courier/queue"
	"github.com/tracebeam/courier/transport"
	"github.com/tracebeam/courier/types"
)

// getPath is the collector endpoint path for single-record GET delivery.
const getPath = "/i"

// Emitter is the outbound delivery queue of a tracker instance.
//
// It accepts opaque event payloads and guarantees best-effort at-least-once
// delivery to the collector: records are persisted, batched under a byte
// budget, retried on recoverable failures, and drained strictly oldest
// first. A retryable failure on the head batch blocks all newer records
// until the head resolves, preserving event ordering at the destination.
//
// The transport mode is resolved once at construction and is immutable;
// the collector URL and buffer size may be changed afterward via setters.
// All methods are safe for concurrent use.
type Emitter struct {
	config     *Config
	res        transport.Resolution
	store      *queue.Store
	sender     *transport.HTTPSender
	beacon     transport.BeaconSender
	classifier *policy.Classifier
	logger     types.Logger
	metrics    types.MetricsCollector

	mu           sync.Mutex
	collectorURL string
	bufferSize   int

	// executing is the single-flight guard of the drain loop: set when a
	// drain starts, cleared on every halting transition. External triggers
	// are no-ops while it is set.
	executing      atomic.Bool
	identityCalled atomic.Bool
	closed         atomic.Bool
}

// New creates an emitter, resolving the transport from the requested
// method and host capabilities and loading any persisted queue.
//
// Parameters:
//   - opts: Configuration options
//
// Returns:
//   - *Emitter: A ready emitter
//   - error: Configuration failure
func New(opts ...Option) (*Emitter, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.InstanceID == "" {
		return nil, errors.New("courier: instance ID cannot be empty")
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	res := transport.Resolve(cfg.Method, cfg.Capabilities)

	headers := cfg.CustomHeaders
	if res.HeadersDisabled {
		headers = nil
	}

	senderOpts := []transport.HTTPSenderOption{
		transport.WithConnectionTimeout(cfg.ConnectionTimeout),
		transport.WithCustomHeaders(headers),
		transport.WithAnonymous(cfg.Anonymous),
	}
	if cfg.HTTPClient != nil {
		senderOpts = append(senderOpts, transport.WithClient(cfg.HTTPClient))
	} else if cfg.WithCredentials {
		senderOpts = append(senderOpts, transport.WithCredentials())
	}

	beacon := cfg.Beacon
	if beacon == nil && res.Beacon {
		beacon = transport.NewBeacon()
	}

	storeOpts := []queue.StoreOption{
		queue.WithMaxPersisted(cfg.MaxQueueSize),
		queue.WithLogger(cfg.Logger),
		queue.WithMetrics(cfg.Metrics),
	}
	if cfg.Storage != nil {
		storeOpts = append(storeOpts, queue.WithStorage(cfg.Storage))
	}
	if cfg.Codec != nil {
		storeOpts = append(storeOpts, queue.WithCodec(cfg.Codec))
	}

	e := &Emitter{
		config: cfg,
		res:    res,
		store:  queue.New(context.Background(), res.Mode, cfg.InstanceID, storeOpts...),
		sender: transport.NewHTTPSender(senderOpts...),
		beacon: beacon,
		classifier: policy.NewClassifier(
			policy.WithRetryEnabled(cfg.RetryFailedRequests),
			policy.WithRetryStatusCodes(cfg.RetryStatusCodes...),
			policy.WithDontRetryStatusCodes(cfg.DontRetryStatusCodes...),
		),
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		collectorURL: cfg.CollectorURL,
	}
	e.bufferSize = e.effectiveBufferSize(cfg.BufferSize)

	if cfg.Lifecycle != nil {
		cfg.Lifecycle.RegisterQueue(e)
		cfg.Lifecycle.RegisterFlushHook(func() {
			_ = e.FlushSync()
		})
	}

	return e, nil
}

// effectiveBufferSize applies the batching safety rule: buffering beyond
// one record requires POST mode and a configured durable store.
func (e *Emitter) effectiveBufferSize(requested int) int {
	if requested > 1 && e.res.Mode == types.ModePost && e.config.Storage != nil {
		return requested
	}
	return 1
}

// Mode returns the resolved transport mode, immutable for the emitter's
// lifetime.
func (e *Emitter) Mode() types.Mode {
	return e.res.Mode
}

// Pending returns the number of queued records.
func (e *Emitter) Pending() int {
	return e.store.Len()
}

// CollectorURL returns the currently configured collector endpoint.
func (e *Emitter) CollectorURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.collectorURL
}

// SetCollectorURL changes the collector endpoint for subsequent sends.
//
// Parameters:
//   - url: The collector base URL
func (e *Emitter) SetCollectorURL(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.collectorURL = url
}

// BufferSize returns the effective drain threshold.
func (e *Emitter) BufferSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.bufferSize
}

// SetBufferSize changes the drain threshold. The batching safety rule
// still applies: sizes above one require POST mode and durable storage.
//
// Parameters:
//   - n: The requested buffer size
func (e *Emitter) SetBufferSize(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n < 1 {
		n = 1
	}
	e.bufferSize = e.effectiveBufferSize(n)
}

// Track accepts an event payload for delivery.
//
// The payload is shaped for the resolved transport and appended to the
// queue. A record exceeding the active byte cap is sent immediately via a
// standalone request, bypassing the queue entirely, with a size-exceeded
// warning. Enqueueing triggers a drain once the buffer threshold is
// reached, or immediately when the persistence write failed for this
// call.
//
// Parameters:
//   - p: The event payload; fields were stringified at Add time
//
// Returns:
//   - error: ErrEmitterClosed, ErrNoCollectorURL when a triggered drain
//     has no destination, or a payload shape error
func (e *Emitter) Track(p *types.Payload) error {
	if e.closed.Load() {
		return types.ErrEmitterClosed
	}
	if p == nil || p.Len() == 0 {
		return errors.New("courier: payload cannot be empty")
	}

	ctx := context.Background()

	var rec types.Record
	if e.res.Mode == types.ModeGet {
		get := types.GetRecord(p.QueryString())
		if max := e.config.MaxGetBytes; max > 0 {
			if len(e.getEndpoint())+get.EncodedSize() > max {
				return e.bypassOversized(get)
			}
		}
		rec = get
	} else {
		post := types.NewPostRecord(p)
		if max := e.config.MaxPostBytes; max > 0 && post.Bytes > max {
			return e.bypassOversized(post)
		}
		rec = post
	}

	persisted := e.store.Enqueue(ctx, rec)
	if e.store.Len() >= e.BufferSize() || !persisted {
		return e.Flush()
	}

	return nil
}

// bypassOversized sends a record that exceeds the byte cap immediately
// and directly; it never enters the queue and fires no callbacks.
func (e *Emitter) bypassOversized(rec types.Record) error {
	e.logger.Warn("event exceeds the maximum request size and bypasses the queue",
		"mode", e.res.Mode.String(),
		"bytes", rec.EncodedSize(),
	)
	e.metrics.IncOversized(e.res.Mode)

	if e.CollectorURL() == "" {
		return types.ErrNoCollectorURL
	}

	go func() {
		ctx := context.Background()
		e.metrics.IncSendTotal(e.res.Mode)
		switch r := rec.(type) {
		case *types.PostRecord:
			body, err := e.encodeEnvelope([]types.Record{r})
			if err != nil {
				return
			}
			e.sender.SendPost(ctx, e.postEndpoint(), body)
		case types.GetRecord:
			url := e.renderGetURL(r)
			if e.config.Anonymous {
				e.sender.SendGet(ctx, url)
			} else {
				e.sender.SendPixel(ctx, url)
			}
		}
	}()

	return nil
}

// Flush triggers an asynchronous drain of the queue.
//
// The trigger is a no-op while a drain is already executing or when the
// queue is empty. Triggering without a configured collector URL is a
// configuration error and fails loudly rather than silently dropping
// events.
//
// Returns:
//   - error: ErrNoCollectorURL if no destination is configured
func (e *Emitter) Flush() error {
	return e.flush(false)
}

// FlushSync drains the queue synchronously, blocking until it is empty
// or blocked by a failure. Reserved for the lifecycle coordinator's
// forced-flush hook so requests leave the network layer before teardown.
//
// Returns:
//   - error: ErrNoCollectorURL if no destination is configured
func (e *Emitter) FlushSync() error {
	return e.flush(true)
}

func (e *Emitter) flush(sync bool) error {
	if e.CollectorURL() == "" {
		return types.ErrNoCollectorURL
	}
	if e.store.Len() == 0 {
		return nil
	}
	if !e.executing.CompareAndSwap(false, true) {
		// Single-flight: the running drain is its own sole driver.
		return nil
	}

	if sync {
		e.drain(context.Background(), true)
	} else {
		go e.drain(context.Background(), false)
	}

	return nil
}

// drain walks the queue oldest-first until it empties or a failure
// halts it. It owns the executing flag: every return path clears it.
func (e *Emitter) drain(ctx context.Context, sync bool) {
	for {
		head := e.store.Head()
		if head == nil {
			e.executing.Store(false)
			return
		}

		// Self-healing guard against corrupted persisted state.
		if !head.Valid() {
			e.logger.Warn("discarding malformed queue record", "key", e.store.Key())
			e.store.RemoveFront(ctx, 1)
			continue
		}

		// One-shot identity preflight before the very first batch.
		if e.config.IDServiceURL != "" && e.identityCalled.CompareAndSwap(false, true) {
			if sync {
				e.sender.SendGet(ctx, e.config.IDServiceURL)
				continue
			}
			e.executing.Store(false)
			go func() {
				e.sender.SendGet(context.Background(), e.config.IDServiceURL)
				_ = e.Flush()
			}()
			return
		}

		var proceed bool
		if e.res.Mode == types.ModePost {
			proceed = e.sendBatch(ctx, sync)
		} else {
			proceed = e.sendSingle(ctx)
		}
		if !proceed {
			e.executing.Store(false)
			return
		}
	}
}

// sendBatch delivers one byte-budget-bounded batch. Returns true when
// the drain should continue with the next prefix.
func (e *Emitter) sendBatch(ctx context.Context, sync bool) bool {
	batch := e.store.SelectBatch(e.config.MaxPostBytes)
	if len(batch) == 0 {
		return false
	}

	events := make(types.EventBatch, 0, len(batch))
	for _, rec := range batch {
		events = append(events, rec.(*types.PostRecord).Payload)
	}

	body, err := e.encodeEnvelope(batch)
	if err != nil {
		// A record that cannot be encoded would poison the head of the
		// queue forever; drop the batch instead.
		e.logger.Error("dropping unencodable batch", "error", err.Error(), "events", len(batch))
		e.store.RemoveFront(ctx, len(batch))
		e.metrics.IncDropped(types.ModePost)
		return true
	}

	url := e.postEndpoint()
	e.metrics.IncSendTotal(types.ModePost)

	// Beacon acceptance is optimistic success: the transport takes
	// ownership of the payload and offers no delivery confirmation.
	if e.res.Beacon && e.beacon != nil && !sync {
		if e.beacon.Send(url, body, transport.ContentTypeJSON) {
			e.metrics.IncBeaconAccepted()
			e.metrics.IncSendSuccess(types.ModePost)
			e.store.RemoveFront(ctx, len(batch))
			e.emitSuccess(events)
			return true
		}
		e.metrics.IncBeaconRejected()
	}

	start := time.Now()
	outcome := e.sender.SendPost(ctx, url, body)
	e.metrics.ObserveSendDuration(types.ModePost, time.Since(start).Seconds())

	if outcome.Success() {
		e.metrics.IncSendSuccess(types.ModePost)
		e.store.RemoveFront(ctx, len(batch))
		e.emitSuccess(events)
		return true
	}

	willRetry := e.classifier.ShouldRetry(outcome.Status)
	e.metrics.IncSendFailure(types.ModePost)
	if willRetry {
		e.metrics.IncRetry(types.ModePost)
	} else {
		e.store.RemoveFront(ctx, len(batch))
		e.metrics.IncDropped(types.ModePost)
		e.logger.Error("collector response can not be retried, dropping batch",
			"status", outcome.Status,
			"events", len(batch),
		)
	}
	e.emitFailure(types.RequestFailure{
		Status:    outcome.Status,
		Message:   outcome.Message,
		Events:    events,
		WillRetry: willRetry,
	})

	return false
}

// sendSingle delivers exactly one get record. Returns true when the
// drain should continue with the next record.
func (e *Emitter) sendSingle(ctx context.Context) bool {
	rec, ok := e.store.Head().(types.GetRecord)
	if !ok {
		return false
	}

	url := e.renderGetURL(rec)
	events := e.singleEventBatch(rec)
	e.metrics.IncSendTotal(types.ModeGet)

	// Pixel delivery is mandatory when the host cannot issue
	// asynchronous requests. Otherwise anonymous queues use the request
	// path, since a pixel load cannot carry the anonymity header.
	if e.res.Pixel || !e.config.Anonymous {
		start := time.Now()
		result := e.sender.SendPixel(ctx, url)
		e.metrics.ObserveSendDuration(types.ModeGet, time.Since(start).Seconds())

		if result.Loaded || result.TimedOut {
			if result.TimedOut {
				e.logger.Debug("pixel send timed out, assuming outstanding delivery", "url", url)
			}
			e.metrics.IncSendSuccess(types.ModeGet)
			e.store.RemoveFront(ctx, 1)
			e.emitSuccess(events)
			return true
		}

		e.metrics.IncSendFailure(types.ModeGet)
		e.metrics.IncRetry(types.ModeGet)
		e.emitFailure(types.RequestFailure{
			Status:    0,
			Message:   "pixel load error",
			Events:    events,
			WillRetry: true,
		})
		return false
	}

	start := time.Now()
	outcome := e.sender.SendGet(ctx, url)
	e.metrics.ObserveSendDuration(types.ModeGet, time.Since(start).Seconds())

	if outcome.Success() {
		e.metrics.IncSendSuccess(types.ModeGet)
		e.store.RemoveFront(ctx, 1)
		e.emitSuccess(events)
		return true
	}

	willRetry := e.classifier.ShouldRetry(outcome.Status)
	e.metrics.IncSendFailure(types.ModeGet)
	if willRetry {
		e.metrics.IncRetry(types.ModeGet)
	} else {
		e.store.RemoveFront(ctx, 1)
		e.metrics.IncDropped(types.ModeGet)
		e.logger.Error("collector response can not be retried, dropping record",
			"status", outcome.Status,
		)
	}
	e.emitFailure(types.RequestFailure{
		Status:    outcome.Status,
		Message:   outcome.Message,
		Events:    events,
		WillRetry: willRetry,
	})

	return false
}

// encodeEnvelope serializes a batch into the POST wire envelope,
// attaching the shared delivery timestamp to every record uniformly just
// before transmission. Queued records are never mutated, so a retried
// batch gets a fresh send-time marker.
func (e *Emitter) encodeEnvelope(batch []types.Record) ([]byte, error) {
	var stm string
	if e.config.AttachSentTimestamp {
		stm = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	data := make([]*types.Payload, 0, len(batch))
	for _, rec := range batch {
		p := rec.(*types.PostRecord).Payload
		if stm != "" {
			p = p.Clone()
			p.Set(types.FieldSentTimestamp, stm)
		}
		data = append(data, p)
	}

	envelope := struct {
		Schema string           `json:"schema"`
		Data   []*types.Payload `json:"data"`
	}{
		Schema: e.config.PayloadDataSchema,
		Data:   data,
	}

	return json.Marshal(envelope)
}

// renderGetURL builds the full record URL, interpolating the shared
// send-time value immediately after the leading '?' when enabled.
func (e *Emitter) renderGetURL(rec types.GetRecord) string {
	q := string(rec)
	if e.config.AttachSentTimestamp && len(q) > 0 {
		stm := strconv.FormatInt(time.Now().UnixMilli(), 10)
		q = "?" + types.FieldSentTimestamp + "=" + stm + "&" + q[1:]
	}

	return e.getEndpoint() + q
}

// singleEventBatch reconstructs the raw payload of a get record for the
// callbacks. An unparsable record yields an empty batch rather than
// failing the send.
func (e *Emitter) singleEventBatch(rec types.GetRecord) types.EventBatch {
	p, err := types.PayloadFromQueryString(string(rec))
	if err != nil {
		return nil
	}
	return types.EventBatch{p}
}

func (e *Emitter) postEndpoint() string {
	return strings.TrimSuffix(e.CollectorURL(), "/") + e.config.PostPath
}

func (e *Emitter) getEndpoint() string {
	return strings.TrimSuffix(e.CollectorURL(), "/") + getPath
}

func (e *Emitter) emitSuccess(events types.EventBatch) {
	if e.config.OnSuccess != nil {
		e.config.OnSuccess(events)
	}
}

func (e *Emitter) emitFailure(failure types.RequestFailure) {
	if e.config.OnFailure != nil {
		e.config.OnFailure(failure)
	}
}

// Close marks the emitter closed and performs a final best-effort
// synchronous flush. Pending records that cannot be delivered remain in
// the persisted slot for the next instance with the same instance ID.
//
// Close is safe to call multiple times.
func (e *Emitter) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	if e.CollectorURL() != "" && e.store.Len() > 0 {
		_ = e.FlushSync()
	}
	if beacon, ok := e.beacon.(*transport.Beacon); ok && beacon != nil {
		beacon.Wait()
	}

	return nil
}
