package courier

import (
	"github.com/tracebeam/courier/transport"
	"github.com/tracebeam/courier/types"
)

// Type aliases for convenience - re-export from types and transport packages.
type (
	Mode             = types.Mode
	Payload          = types.Payload
	Field            = types.Field
	Record           = types.Record
	PostRecord       = types.PostRecord
	GetRecord        = types.GetRecord
	EventBatch       = types.EventBatch
	RequestFailure   = types.RequestFailure
	SuccessHandler   = types.SuccessHandler
	FailureHandler   = types.FailureHandler
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
	Method           = transport.Method
	Capabilities     = transport.Capabilities
)

// Re-export mode constants for convenience.
const (
	ModePost = types.ModePost
	ModeGet  = types.ModeGet
)

// Re-export method constants for convenience.
const (
	MethodDefault = transport.MethodDefault
	MethodPost    = transport.MethodPost
	MethodGet     = transport.MethodGet
	MethodBeacon  = transport.MethodBeacon
)
