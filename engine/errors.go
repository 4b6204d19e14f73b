package engine

import "errors"

// Configuration errors are rejected synchronously by the setters; the
// previous value is retained.
var (
	// ErrUnknownParameter reports a parameter name outside the engine's
	// schema.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidBlock reports per-channel buffers whose shape does not
	// match the configured channel count and block size.
	ErrInvalidBlock = errors.New("invalid block shape")

	// ErrBridgeFull reports a full control channel; the command was not
	// delivered and may be retried.
	ErrBridgeFull = errors.New("control bridge full")
)
