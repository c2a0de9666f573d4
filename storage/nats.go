package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tracebeam/courier/types"
)

// NATSStoreConfig configures the NATS JetStream slot store.
type NATSStoreConfig struct {
	// Bucket is the JetStream KeyValue bucket name.
	// Default: "courier-queue"
	Bucket string

	// Description is the bucket description shown by NATS tooling.
	// Default: "courier pending event queues"
	Description string

	// TTL is the maximum age of a slot value. Zero means values never
	// expire. Stale queue snapshots from dead emitter instances are
	// reaped by this TTL.
	// Default: 0
	TTL time.Duration

	// Replicas is the number of bucket replicas (for fault tolerance).
	// Default: 1 (use 3 for production clusters)
	Replicas int

	// OperationTimeout bounds each Get/Set/Delete round-trip.
	// Default: 5 seconds
	OperationTimeout time.Duration
}

// DefaultNATSStoreConfig returns the default configuration.
//
// Returns:
//   - NATSStoreConfig: Default configuration with reasonable defaults
func DefaultNATSStoreConfig() NATSStoreConfig {
	return NATSStoreConfig{
		Bucket:           "courier-queue",
		Description:      "courier pending event queues",
		Replicas:         1,
		OperationTimeout: 5 * time.Second,
	}
}

// NATSStore is a KV implementation backed by a NATS JetStream KeyValue
// bucket.
//
// Unlike MemoryStore, values persisted to JetStream survive process
// crashes. Use it when the host application already runs NATS
// infrastructure and wants pending events to outlive a restart.
type NATSStore struct {
	kv     jetstream.KeyValue
	config NATSStoreConfig
}

// Compile-time assertion that NATSStore implements KV.
var _ KV = (*NATSStore)(nil)

// NATSStoreOption configures a NATSStore.
type NATSStoreOption func(*NATSStoreConfig)

// WithBucket sets the JetStream KeyValue bucket name.
//
// Parameters:
//   - name: Bucket name
//
// Returns:
//   - NATSStoreOption: Configuration option
func WithBucket(name string) NATSStoreOption {
	return func(c *NATSStoreConfig) {
		c.Bucket = name
	}
}

// WithTTL sets the maximum age of slot values.
//
// Parameters:
//   - d: Value time-to-live (0 = never expire)
//
// Returns:
//   - NATSStoreOption: Configuration option
func WithTTL(d time.Duration) NATSStoreOption {
	return func(c *NATSStoreConfig) {
		c.TTL = d
	}
}

// WithReplicas sets the number of bucket replicas.
//
// Parameters:
//   - n: Replica count
//
// Returns:
//   - NATSStoreOption: Configuration option
func WithReplicas(n int) NATSStoreOption {
	return func(c *NATSStoreConfig) {
		c.Replicas = n
	}
}

// WithOperationTimeout bounds each store round-trip.
//
// Parameters:
//   - d: Per-operation timeout
//
// Returns:
//   - NATSStoreOption: Configuration option
func WithOperationTimeout(d time.Duration) NATSStoreOption {
	return func(c *NATSStoreConfig) {
		c.OperationTimeout = d
	}
}

// NewNATSStore creates a slot store on a JetStream KeyValue bucket,
// creating or updating the bucket as needed.
//
// Parameters:
//   - ctx: Context for bucket creation
//   - js: A JetStream context
//   - opts: Optional configuration options
//
// Returns:
//   - *NATSStore: A ready store
//   - error: Bucket creation failure, or nil JetStream context
func NewNATSStore(ctx context.Context, js jetstream.JetStream, opts ...NATSStoreOption) (*NATSStore, error) {
	if js == nil {
		return nil, errors.New("courier: JetStream context is nil")
	}

	config := DefaultNATSStoreConfig()
	for _, opt := range opts {
		opt(&config)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: config.Description,
		TTL:         config.TTL,
		Replicas:    config.Replicas,
	})
	if err != nil {
		return nil, fmt.Errorf("courier: creating KV bucket %q: %w", config.Bucket, err)
	}

	return &NATSStore{kv: kv, config: config}, nil
}

// Get returns the value stored under key.
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	entry, err := s.kv.Get(opCtx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, types.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("courier: reading slot %q: %w", key, err)
	}

	return entry.Value(), nil
}

// Set stores value under key, replacing any existing value.
func (s *NATSStore) Set(ctx context.Context, key string, value []byte) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.kv.Put(opCtx, key, value); err != nil {
		return fmt.Errorf("courier: writing slot %q: %w", key, err)
	}

	return nil
}

// Delete removes the value stored under key.
func (s *NATSStore) Delete(ctx context.Context, key string) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.kv.Delete(opCtx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("courier: deleting slot %q: %w", key, err)
	}

	return nil
}

// opContext derives a bounded context for one store round-trip.
func (s *NATSStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.OperationTimeout)
}
