package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/tracebeam/courier/internal/logging"
	"github.com/tracebeam/courier/internal/metrics"
	"github.com/tracebeam/courier/storage"
	"github.com/tracebeam/courier/types"
)

// DefaultMaxPersisted is the default maximum number of records mirrored
// into the persisted slot. The in-memory queue is not bounded by it.
const DefaultMaxPersisted = 1000

// Store is the ordered pending-event queue, mirrored to a durable slot.
//
// Insertion order is delivery priority: strict FIFO except for permanent
// drops. All methods are safe for concurrent use.
type Store struct {
	mode    types.Mode
	key     string
	kv      storage.KV
	codec   Codec
	maxLen  int
	logger  types.Logger
	metrics types.MetricsCollector

	mu      sync.Mutex
	records []types.Record
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStorage sets the durable slot store backing the queue.
//
// When no storage is configured the queue is in-memory only and pending
// records do not survive a restart.
//
// Parameters:
//   - kv: The slot store
//
// Returns:
//   - StoreOption: Configuration option
func WithStorage(kv storage.KV) StoreOption {
	return func(s *Store) {
		s.kv = kv
	}
}

// WithCodec sets the snapshot codec for the persisted slot.
//
// Default: JSONCodec
//
// Parameters:
//   - c: The codec
//
// Returns:
//   - StoreOption: Configuration option
func WithCodec(c Codec) StoreOption {
	return func(s *Store) {
		s.codec = c
	}
}

// WithMaxPersisted sets the maximum number of records mirrored into the
// persisted slot. Older records are kept; the tail beyond the limit is
// truncated from the mirror only.
//
// Default: DefaultMaxPersisted
//
// Parameters:
//   - n: Maximum persisted queue length
//
// Returns:
//   - StoreOption: Configuration option
func WithMaxPersisted(n int) StoreOption {
	return func(s *Store) {
		s.maxLen = n
	}
}

// WithLogger sets the store's logger.
func WithLogger(l types.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMetrics sets the store's metrics collector.
func WithMetrics(m types.MetricsCollector) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a store for the given mode and loads any persisted queue.
//
// The slot key is derived from the instance identifier and the mode tag,
// so independent emitter instances never contend on the same slot.
// Corrupted persisted state is discarded silently and the queue starts
// empty.
//
// Parameters:
//   - ctx: Context for the initial load
//   - mode: The queue's record shape, immutable for its lifetime
//   - instanceID: Unique identifier of the owning emitter instance
//   - opts: Optional configuration options
//
// Returns:
//   - *Store: A ready store, pre-populated from the persisted slot
func New(ctx context.Context, mode types.Mode, instanceID string, opts ...StoreOption) *Store {
	s := &Store{
		mode:   mode,
		key:    fmt.Sprintf("courier_queue_%s_%s", instanceID, mode),
		codec:  JSONCodec{},
		maxLen: DefaultMaxPersisted,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNopMetrics()
	}

	s.load(ctx)

	return s
}

// load reads the persisted slot into memory, discarding corrupt state.
func (s *Store) load(ctx context.Context) {
	if s.kv == nil {
		return
	}

	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if err != types.ErrKeyNotFound {
			s.logger.Debug("persisted queue unreadable, starting empty",
				"key", s.key,
				"error", err.Error(),
			)
		}

		return
	}

	records, err := s.codec.Decode(s.mode, data)
	if err != nil {
		s.logger.Debug("persisted queue corrupt, starting empty",
			"key", s.key,
			"error", err.Error(),
		)

		return
	}

	s.records = records
	s.metrics.SetQueueDepth(s.mode, len(records))
}

// Mode returns the record shape the store is locked to.
func (s *Store) Mode() types.Mode {
	return s.mode
}

// Key returns the persisted slot key.
func (s *Store) Key() string {
	return s.key
}

// Len returns the number of pending records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Enqueue appends a record and mirrors the queue to the persisted slot.
//
// Persistence is best-effort: a write failure never aborts the enqueue.
//
// Parameters:
//   - ctx: Context for the persistence write
//   - rec: The record to append
//
// Returns:
//   - bool: true if the mirror write succeeded (or no storage is
//     configured); false signals the caller to drain promptly since the
//     record exists only in memory
func (s *Store) Enqueue(ctx context.Context, rec types.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	s.metrics.IncEnqueued(s.mode)
	s.metrics.SetQueueDepth(s.mode, len(s.records))

	return s.persistLocked(ctx)
}

// RemoveFront removes the first n records and re-persists the remainder.
//
// Parameters:
//   - ctx: Context for the persistence write
//   - n: Number of records to remove from the front
func (s *Store) RemoveFront(ctx context.Context, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return
	}
	if n > len(s.records) {
		n = len(s.records)
	}
	s.records = s.records[n:]
	s.metrics.SetQueueDepth(s.mode, len(s.records))

	s.persistLocked(ctx)
}

// Head returns the oldest pending record, or nil if the queue is empty.
func (s *Store) Head() types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return nil
	}

	return s.records[0]
}

// SelectBatch returns the longest queue prefix whose cumulative encoded
// size stays below maxBytes.
//
// At least one record is always selected when the queue is non-empty,
// even if that single record alone exceeds the cap: the cap only bounds
// additional records joining a batch, since an oversized single record
// was already diverted at enqueue time.
//
// Parameters:
//   - maxBytes: The batch byte budget
//
// Returns:
//   - []types.Record: The selected prefix (shared backing array; callers
//     must not mutate)
func (s *Store) SelectBatch(maxBytes int) []types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int
	var n int
	for i, rec := range s.records {
		size := rec.EncodedSize()
		if i > 0 && total+size >= maxBytes {
			break
		}
		total += size
		n = i + 1
	}

	return s.records[:n]
}

// Records returns a copy of the pending record sequence.
func (s *Store) Records() []types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Record, len(s.records))
	copy(out, s.records)

	return out
}

// persistLocked mirrors the queue into the slot, truncated to the maximum
// persisted length. Callers must hold s.mu. Returns false on any write or
// encode failure; the failure is absorbed, never surfaced.
func (s *Store) persistLocked(ctx context.Context) bool {
	if s.kv == nil {
		return true
	}

	trunc := s.records
	if s.maxLen > 0 && len(trunc) > s.maxLen {
		trunc = trunc[:s.maxLen]
	}

	data, err := s.codec.Encode(s.mode, trunc)
	if err == nil {
		err = s.kv.Set(ctx, s.key, data)
	}
	if err != nil {
		s.metrics.IncPersistError(s.mode)
		s.logger.Debug("queue persistence failed, continuing in memory",
			"key", s.key,
			"error", err.Error(),
		)

		return false
	}

	return true
}
