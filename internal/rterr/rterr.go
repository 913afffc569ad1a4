// Package rterr enumerates the error kinds shared across roughtimed's
// subsystems. Call sites wrap a sentinel with fmt.Errorf("%w: ...") so
// callers can still errors.Is/errors.As against the kind while getting a
// message with local context.
package rterr

import "errors"

var (
	// Startup errors: fatal, logged and cause a non-zero exit.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidSeedLength    = errors.New("invalid seed length")
	ErrKms                  = errors.New("kms error")

	// Per-request errors: counted, logged at info, packet silently dropped.
	ErrInvalidRequest  = errors.New("invalid request")
	ErrRequestTooShort = errors.New("request too short")

	// Wire codec errors.
	ErrMessageTooShort    = errors.New("message too short")
	ErrInvalidOffsetValue = errors.New("invalid offset value")
	ErrInvalidNumTags     = errors.New("invalid number of tags")
	ErrInvalidTagOrdering = errors.New("invalid tag ordering")
	ErrOverflow           = errors.New("overflow")

	// Envelope encryption errors.
	ErrInvalidData     = errors.New("invalid data")
	ErrOperationFailed = errors.New("operation failed")
)
