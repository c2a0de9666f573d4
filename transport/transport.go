package transport

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tracebeam/courier/types"
)

// Method is the caller's requested event delivery method.
type Method string

const (
	// MethodDefault lets resolution pick: POST when asynchronous requests
	// are available, GET via pixel otherwise.
	MethodDefault Method = ""

	// MethodPost requests batched POST delivery.
	MethodPost Method = "post"

	// MethodGet requests single-record GET delivery.
	MethodGet Method = "get"

	// MethodBeacon requests POST delivery with the beacon fast path.
	MethodBeacon Method = "beacon"
)

// UnmarshalYAML decodes a method from YAML configuration.
//
// Booleans are accepted for compatibility with older tracker
// configurations: true means beacon, false means get.
func (m *Method) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case bool:
		if v {
			*m = MethodBeacon
		} else {
			*m = MethodGet
		}
	case string:
		parsed := Method(v)
		switch parsed {
		case MethodDefault, MethodPost, MethodGet, MethodBeacon:
			*m = parsed
		default:
			return fmt.Errorf("courier: unknown event method %q", v)
		}
	default:
		return fmt.Errorf("courier: event method must be a string or bool, got %T", raw)
	}

	return nil
}

// Capabilities describes the delivery primitives available in the host
// environment. The host embedding the tracker probes and reports them
// once at construction time.
type Capabilities struct {
	// Beacon reports whether a fire-and-forget beacon primitive is
	// available.
	Beacon bool

	// CORS reports whether asynchronous cross-origin requests are
	// available. Without them POST delivery is impossible.
	CORS bool

	// UserAgent is the host's user-agent string, consulted by the beacon
	// defect denylist.
	UserAgent string
}

// DefaultCapabilities reports full support, the common case for native
// hosts with an unrestricted network stack.
func DefaultCapabilities() Capabilities {
	return Capabilities{Beacon: true, CORS: true}
}

// Resolution is the immutable transport decision for a queue's lifetime.
type Resolution struct {
	// Mode is the resolved queue shape.
	Mode types.Mode

	// Beacon reports whether the beacon fast path is enabled for POST
	// batches.
	Beacon bool

	// Pixel reports whether GET delivery must use the pixel technique
	// because asynchronous requests are unavailable.
	Pixel bool

	// HeadersDisabled reports whether custom headers are disabled for the
	// queue's lifetime. Set whenever beacon delivery was requested.
	HeadersDisabled bool
}

// Resolve fixes the transport for a queue from the requested method and
// the host capabilities.
//
// Priority order:
//
//  1. A requested "get" method resolves to GET, via requests when
//     available and the pixel technique otherwise.
//  2. Without asynchronous request support, only pixel GET is possible.
//  3. Otherwise POST; the beacon fast path is enabled only when beacon
//     was requested, the primitive is available, and the user agent is
//     not on the beacon defect denylist.
//
// Parameters:
//   - requested: The caller's method preference
//   - caps: The host environment capabilities
//
// Returns:
//   - Resolution: The immutable transport decision
func Resolve(requested Method, caps Capabilities) Resolution {
	res := Resolution{HeadersDisabled: requested == MethodBeacon}

	switch {
	case requested == MethodGet:
		res.Mode = types.ModeGet
		res.Pixel = !caps.CORS
	case !caps.CORS:
		res.Mode = types.ModeGet
		res.Pixel = true
	default:
		res.Mode = types.ModePost
		res.Beacon = requested == MethodBeacon && caps.Beacon && !BeaconDenied(caps.UserAgent)
	}

	return res
}
