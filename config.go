package courier

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tracebeam/courier/internal/logging"
	"github.com/tracebeam/courier/internal/metrics"
	"github.com/tracebeam/courier/queue"
	"github.com/tracebeam/courier/storage"
	"github.com/tracebeam/courier/transport"
	"github.com/tracebeam/courier/types"
)

// DefaultPayloadDataSchema identifies the POST envelope payload format.
const DefaultPayloadDataSchema = "courier/payload_data/1-0-0"

// DefaultPostPath is the collector endpoint path for POST batches.
const DefaultPostPath = "/track"

// DefaultMaxPostBytes is the default POST batch byte budget.
const DefaultMaxPostBytes = 40_000

// Config holds configuration for an Emitter.
//
// Prefer the functional options over mutating this struct directly; the
// options validate and compose.
type Config struct {
	CollectorURL         string
	Method               transport.Method
	PostPath             string
	BufferSize           int
	MaxPostBytes         int
	MaxGetBytes          int
	AttachSentTimestamp  bool
	MaxQueueSize         int
	ConnectionTimeout    time.Duration
	Anonymous            bool
	CustomHeaders        map[string]string
	WithCredentials      bool
	RetryStatusCodes     []int
	DontRetryStatusCodes []int
	RetryFailedRequests  bool
	IDServiceURL         string
	PayloadDataSchema    string
	InstanceID           string
	Capabilities         transport.Capabilities
	Storage              storage.KV
	Codec                queue.Codec
	HTTPClient           *http.Client
	Beacon               transport.BeaconSender
	Lifecycle            Coordinator
	OnSuccess            types.SuccessHandler
	OnFailure            types.FailureHandler
	Logger               types.Logger
	Metrics              types.MetricsCollector
}

// DefaultConfig returns a Config with sensible defaults.
//
// Defaults: POST method preference left unset (resolution picks POST when
// asynchronous requests are available), buffer size 1, 40 KB POST budget,
// unlimited GET size, sent-timestamp attachment on, 1000 persisted
// records, 5 second connection timeout, retries enabled, no persistence.
//
// Returns:
//   - *Config: Configuration with default settings
func DefaultConfig() *Config {
	return &Config{
		PostPath:            DefaultPostPath,
		BufferSize:          1,
		MaxPostBytes:        DefaultMaxPostBytes,
		AttachSentTimestamp: true,
		MaxQueueSize:        queue.DefaultMaxPersisted,
		ConnectionTimeout:   5 * time.Second,
		RetryFailedRequests: true,
		PayloadDataSchema:   DefaultPayloadDataSchema,
		InstanceID:          uuid.NewString(),
		Capabilities:        transport.DefaultCapabilities(),
		Logger:              logging.NewNopLogger(),
		Metrics:             metrics.NewNopMetrics(),
	}
}

// Option configures a Config.
type Option func(*Config)

// WithCollectorURL sets the remote collector endpoint.
//
// A collector URL must be configured before the first drain; triggering a
// drain without one is a configuration error.
//
// Parameters:
//   - url: The collector base URL (scheme and host, no path)
//
// Returns:
//   - Option: Configuration option
func WithCollectorURL(url string) Option {
	return func(c *Config) {
		c.CollectorURL = url
	}
}

// WithMethod sets the requested event delivery method.
//
// The request is resolved against the host capabilities at construction
// time; see transport.Resolve for the priority order.
//
// Parameters:
//   - m: The requested method (post, get, or beacon)
//
// Returns:
//   - Option: Configuration option
func WithMethod(m transport.Method) Option {
	return func(c *Config) {
		c.Method = m
	}
}

// WithPostPath sets the collector endpoint path for POST batches.
//
// Default: "/track"
//
// Parameters:
//   - path: The POST path, with leading slash
//
// Returns:
//   - Option: Configuration option
func WithPostPath(path string) Option {
	return func(c *Config) {
		c.PostPath = path
	}
}

// WithBufferSize sets how many records accumulate before a drain fires.
//
// Buffering is only honored for POST queues with persistence configured;
// otherwise the effective buffer size is forced to 1, since batching
// without a durable mirror risks losing multiple events at once.
//
// Parameters:
//   - n: The number of records to accumulate (minimum 1)
//
// Returns:
//   - Option: Configuration option
func WithBufferSize(n int) Option {
	return func(c *Config) {
		c.BufferSize = n
	}
}

// WithMaxPostBytes sets the POST batch byte budget.
//
// A single record exceeding the budget is sent immediately via a
// standalone request, bypassing the queue, with a size-exceeded warning.
//
// Default: 40000
//
// Parameters:
//   - n: The budget in bytes
//
// Returns:
//   - Option: Configuration option
func WithMaxPostBytes(n int) Option {
	return func(c *Config) {
		c.MaxPostBytes = n
	}
}

// WithMaxGetBytes sets the maximum rendered GET request size.
//
// Zero means no limit and disables the size check entirely.
//
// Default: 0
//
// Parameters:
//   - n: The limit in bytes, including the collector endpoint
//
// Returns:
//   - Option: Configuration option
func WithMaxGetBytes(n int) Option {
	return func(c *Config) {
		c.MaxGetBytes = n
	}
}

// WithSentTimestamp toggles attachment of the shared delivery timestamp.
//
// When enabled, every record of a physical request carries the same
// send-time marker, attached just before transmission rather than at
// enqueue time.
//
// Default: enabled
//
// Parameters:
//   - attach: false to omit the sent timestamp
//
// Returns:
//   - Option: Configuration option
func WithSentTimestamp(attach bool) Option {
	return func(c *Config) {
		c.AttachSentTimestamp = attach
	}
}

// WithMaxQueueSize sets the maximum persisted queue length.
//
// The in-memory queue is unbounded; only the persisted mirror is
// truncated.
//
// Default: 1000
//
// Parameters:
//   - n: Maximum number of persisted records
//
// Returns:
//   - Option: Configuration option
func WithMaxQueueSize(n int) Option {
	return func(c *Config) {
		c.MaxQueueSize = n
	}
}

// WithConnectionTimeout bounds each delivery attempt.
//
// An attempt with no response within the timeout is aborted and treated
// as a network failure with status 0.
//
// Default: 5 seconds
//
// Parameters:
//   - d: The per-attempt timeout
//
// Returns:
//   - Option: Configuration option
func WithConnectionTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ConnectionTimeout = d
	}
}

// WithAnonymousTracking marks all requests with the anonymity header.
//
// Anonymous queues never use the pixel technique for GET delivery, since
// the header cannot be attached to a pixel load.
//
// Parameters:
//   - anonymous: true to enable anonymous tracking
//
// Returns:
//   - Option: Configuration option
func WithAnonymousTracking(anonymous bool) Option {
	return func(c *Config) {
		c.Anonymous = anonymous
	}
}

// WithCustomHeaders sets caller-supplied headers for every request.
//
// Ignored for the queue's lifetime when the beacon method was requested:
// beacon sends cannot carry headers, and attaching them only on the
// fallback path would be inconsistent.
//
// Parameters:
//   - headers: Header name/value pairs
//
// Returns:
//   - Option: Configuration option
func WithCustomHeaders(headers map[string]string) Option {
	return func(c *Config) {
		c.CustomHeaders = headers
	}
}

// WithCredentials enables credentialed sends (cookie handling).
//
// Returns:
//   - Option: Configuration option
func WithCredentials(enabled bool) Option {
	return func(c *Config) {
		c.WithCredentials = enabled
	}
}

// WithRetryStatusCodes sets status codes that are always retried, winning
// over the don't-retry list.
//
// Parameters:
//   - codes: HTTP status codes to always retry
//
// Returns:
//   - Option: Configuration option
func WithRetryStatusCodes(codes ...int) Option {
	return func(c *Config) {
		c.RetryStatusCodes = append(c.RetryStatusCodes, codes...)
	}
}

// WithDontRetryStatusCodes sets status codes that are never retried, in
// addition to the standard permanent-failure codes.
//
// Parameters:
//   - codes: HTTP status codes to never retry
//
// Returns:
//   - Option: Configuration option
func WithDontRetryStatusCodes(codes ...int) Option {
	return func(c *Config) {
		c.DontRetryStatusCodes = append(c.DontRetryStatusCodes, codes...)
	}
}

// WithRetryFailedRequests sets the global retry-enable flag.
//
// Default: enabled
//
// Parameters:
//   - retry: false to drop every failed batch immediately
//
// Returns:
//   - Option: Configuration option
func WithRetryFailedRequests(retry bool) Option {
	return func(c *Config) {
		c.RetryFailedRequests = retry
	}
}

// WithIDServiceURL sets the identity-service preflight endpoint.
//
// When set, a single one-shot GET is fired to it before the very first
// batch is sent; its completion re-invokes the drain loop. It is never
// repeated for the lifetime of the queue and has no retry semantics.
//
// Parameters:
//   - url: The identity service URL
//
// Returns:
//   - Option: Configuration option
func WithIDServiceURL(url string) Option {
	return func(c *Config) {
		c.IDServiceURL = url
	}
}

// WithPayloadDataSchema sets the schema identifier of the POST envelope.
//
// Default: DefaultPayloadDataSchema
//
// Parameters:
//   - schema: The schema identifier
//
// Returns:
//   - Option: Configuration option
func WithPayloadDataSchema(schema string) Option {
	return func(c *Config) {
		c.PayloadDataSchema = schema
	}
}

// WithInstanceID sets the emitter instance identifier used to namespace
// the persisted queue slot.
//
// Default: a random UUID per emitter
//
// Parameters:
//   - id: The instance identifier
//
// Returns:
//   - Option: Configuration option
func WithInstanceID(id string) Option {
	return func(c *Config) {
		c.InstanceID = id
	}
}

// WithCapabilities sets the host environment capability probes consulted
// by transport resolution.
//
// Default: full support
//
// Parameters:
//   - caps: The probed capabilities
//
// Returns:
//   - Option: Configuration option
func WithCapabilities(caps transport.Capabilities) Option {
	return func(c *Config) {
		c.Capabilities = caps
	}
}

// WithStorage sets the durable slot store for queue persistence.
//
// Without storage the queue is in-memory only and the effective buffer
// size is forced to 1.
//
// Parameters:
//   - kv: The slot store (e.g. storage.NewMemoryStore, storage.SQLStore,
//     storage.NATSStore)
//
// Returns:
//   - Option: Configuration option
func WithStorage(kv storage.KV) Option {
	return func(c *Config) {
		c.Storage = kv
	}
}

// WithCodec sets the persisted snapshot codec.
//
// Default: queue.JSONCodec
//
// Parameters:
//   - codec: The codec
//
// Returns:
//   - Option: Configuration option
func WithCodec(codec queue.Codec) Option {
	return func(c *Config) {
		c.Codec = codec
	}
}

// WithHTTPClient sets the HTTP client used for deliveries.
//
// Parameters:
//   - client: The HTTP client
//
// Returns:
//   - Option: Configuration option
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithBeaconSender sets the fire-and-forget sender for the beacon fast
// path.
//
// Default: transport.NewBeacon()
//
// Parameters:
//   - b: The beacon sender
//
// Returns:
//   - Option: Configuration option
func WithBeaconSender(b transport.BeaconSender) Option {
	return func(c *Config) {
		c.Beacon = b
	}
}

// WithLifecycle registers the emitter with a shared lifecycle
// coordinator so it can be force-flushed synchronously before the host
// context is torn down.
//
// Parameters:
//   - coordinator: The shared coordinator
//
// Returns:
//   - Option: Configuration option
func WithLifecycle(coordinator Coordinator) Option {
	return func(c *Config) {
		c.Lifecycle = coordinator
	}
}

// WithOnSuccess sets the success callback, invoked with the raw payloads
// of every accepted delivery.
//
// Parameters:
//   - handler: The success handler
//
// Returns:
//   - Option: Configuration option
func WithOnSuccess(handler types.SuccessHandler) Option {
	return func(c *Config) {
		c.OnSuccess = handler
	}
}

// WithOnFailure sets the failure callback, invoked with the terminal
// failure details and the affected raw payloads.
//
// Parameters:
//   - handler: The failure handler
//
// Returns:
//   - Option: Configuration option
func WithOnFailure(handler types.FailureHandler) Option {
	return func(c *Config) {
		c.OnFailure = handler
	}
}

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// The logger interface is compatible with zap.SugaredLogger.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger types.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics integration.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
func WithMetrics(collector types.MetricsCollector) Option {
	return func(c *Config) {
		c.Metrics = collector
	}
}

// fileConfig is the YAML shape accepted by ConfigFromYAML. Only scalar
// settings are expressible in a file; stores, clients, and callbacks are
// wired in code.
type fileConfig struct {
	CollectorURL         *string           `yaml:"collector_url"`
	Method               *transport.Method `yaml:"method"`
	PostPath             *string           `yaml:"post_path"`
	BufferSize           *int              `yaml:"buffer_size"`
	MaxPostBytes         *int              `yaml:"max_post_bytes"`
	MaxGetBytes          *int              `yaml:"max_get_bytes"`
	AttachSentTimestamp  *bool             `yaml:"attach_sent_timestamp"`
	MaxQueueSize         *int              `yaml:"max_queue_size"`
	ConnectionTimeout    *time.Duration    `yaml:"connection_timeout"`
	Anonymous            *bool             `yaml:"anonymous"`
	CustomHeaders        map[string]string `yaml:"custom_headers"`
	WithCredentials      *bool             `yaml:"with_credentials"`
	RetryStatusCodes     []int             `yaml:"retry_status_codes"`
	DontRetryStatusCodes []int             `yaml:"dont_retry_status_codes"`
	RetryFailedRequests  *bool             `yaml:"retry_failed_requests"`
	IDServiceURL         *string           `yaml:"id_service_url"`
	PayloadDataSchema    *string           `yaml:"payload_data_schema"`
	InstanceID           *string           `yaml:"instance_id"`
}

// ConfigFromYAML parses YAML configuration into an Option.
//
// Absent keys leave their defaults untouched, so the option composes
// with code-level options in either order.
//
// Parameters:
//   - data: The YAML document
//
// Returns:
//   - Option: An option applying the file settings
//   - error: Parse failure
func ConfigFromYAML(data []byte) (Option, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("courier: parsing config: %w", err)
	}

	return func(c *Config) {
		if fc.CollectorURL != nil {
			c.CollectorURL = *fc.CollectorURL
		}
		if fc.Method != nil {
			c.Method = *fc.Method
		}
		if fc.PostPath != nil {
			c.PostPath = *fc.PostPath
		}
		if fc.BufferSize != nil {
			c.BufferSize = *fc.BufferSize
		}
		if fc.MaxPostBytes != nil {
			c.MaxPostBytes = *fc.MaxPostBytes
		}
		if fc.MaxGetBytes != nil {
			c.MaxGetBytes = *fc.MaxGetBytes
		}
		if fc.AttachSentTimestamp != nil {
			c.AttachSentTimestamp = *fc.AttachSentTimestamp
		}
		if fc.MaxQueueSize != nil {
			c.MaxQueueSize = *fc.MaxQueueSize
		}
		if fc.ConnectionTimeout != nil {
			c.ConnectionTimeout = *fc.ConnectionTimeout
		}
		if fc.Anonymous != nil {
			c.Anonymous = *fc.Anonymous
		}
		if fc.CustomHeaders != nil {
			c.CustomHeaders = fc.CustomHeaders
		}
		if fc.WithCredentials != nil {
			c.WithCredentials = *fc.WithCredentials
		}
		if fc.RetryStatusCodes != nil {
			c.RetryStatusCodes = append(c.RetryStatusCodes, fc.RetryStatusCodes...)
		}
		if fc.DontRetryStatusCodes != nil {
			c.DontRetryStatusCodes = append(c.DontRetryStatusCodes, fc.DontRetryStatusCodes...)
		}
		if fc.RetryFailedRequests != nil {
			c.RetryFailedRequests = *fc.RetryFailedRequests
		}
		if fc.IDServiceURL != nil {
			c.IDServiceURL = *fc.IDServiceURL
		}
		if fc.PayloadDataSchema != nil {
			c.PayloadDataSchema = *fc.PayloadDataSchema
		}
		if fc.InstanceID != nil {
			c.InstanceID = *fc.InstanceID
		}
	}, nil
}

// ConfigFromYAMLFile reads and parses a YAML configuration file.
//
// Parameters:
//   - path: The file path
//
// Returns:
//   - Option: An option applying the file settings
//   - error: Read or parse failure
func ConfigFromYAMLFile(path string) (Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("courier: reading config file: %w", err)
	}

	return ConfigFromYAML(data)
}
