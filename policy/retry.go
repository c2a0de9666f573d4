package policy

// defaultDontRetryStatusCodes are permanent-failure statuses that are never
// worth re-attempting. They are merged into every classifier's don't-retry
// set on top of any caller-supplied codes.
var defaultDontRetryStatusCodes = []int{400, 401, 403, 410, 422}

// Classifier decides whether a failed delivery attempt should be retried.
//
// Construct with NewClassifier. The zero value retries nothing; always use
// the constructor.
type Classifier struct {
	enabled   bool
	retry     map[int]struct{}
	dontRetry map[int]struct{}
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithRetryEnabled sets the global retry-enable flag.
//
// When disabled, every failure is terminal regardless of status code and
// the failed batch is dropped from the queue.
//
// Parameters:
//   - enabled: false to disable all retries (default: true)
//
// Returns:
//   - ClassifierOption: Configuration option
func WithRetryEnabled(enabled bool) ClassifierOption {
	return func(c *Classifier) {
		c.enabled = enabled
	}
}

// WithRetryStatusCodes sets status codes that are always retried.
//
// An explicit retry code wins even when the same code appears on the
// don't-retry list.
//
// Parameters:
//   - codes: HTTP status codes to always retry
//
// Returns:
//   - ClassifierOption: Configuration option
func WithRetryStatusCodes(codes ...int) ClassifierOption {
	return func(c *Classifier) {
		for _, code := range codes {
			c.retry[code] = struct{}{}
		}
	}
}

// WithDontRetryStatusCodes sets status codes that are never retried.
//
// The standard permanent-failure codes (400, 401, 403, 410, 422) are
// always included in addition to the codes given here.
//
// Parameters:
//   - codes: HTTP status codes to never retry
//
// Returns:
//   - ClassifierOption: Configuration option
func WithDontRetryStatusCodes(codes ...int) ClassifierOption {
	return func(c *Classifier) {
		for _, code := range codes {
			c.dontRetry[code] = struct{}{}
		}
	}
}

// NewClassifier creates a retry classifier.
//
// Defaults: retries enabled, empty explicit retry list, don't-retry list
// seeded with the standard permanent-failure codes.
//
// Parameters:
//   - opts: Optional configuration options
//
// Returns:
//   - *Classifier: A new classifier
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		enabled:   true,
		retry:     make(map[int]struct{}),
		dontRetry: make(map[int]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	for _, code := range defaultDontRetryStatusCodes {
		c.dontRetry[code] = struct{}{}
	}

	return c
}

// ShouldRetry reports whether a delivery attempt that ended with the given
// status code should remain queued for a future drain.
//
// Parameters:
//   - status: The terminal HTTP status code (0 for network failures)
//
// Returns:
//   - bool: true if the batch should be retried
func (c *Classifier) ShouldRetry(status int) bool {
	if status >= 200 && status < 300 {
		return false
	}
	if !c.enabled {
		return false
	}
	if _, ok := c.retry[status]; ok {
		return true
	}
	if _, ok := c.dontRetry[status]; ok {
		return false
	}

	return true
}
