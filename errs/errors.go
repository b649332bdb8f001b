// Package errs defines the sentinel errors returned by mapicodec decoders.
//
// Every decode failure satisfies errors.Is(err, ErrCorrupted). The finer-grained
// sentinels wrap ErrCorrupted so callers that only care whether a property value
// was decodable can test a single error, while tests and diagnostics can still
// distinguish the cause.
package errs

import (
	"errors"
	"fmt"
)

// ErrCorrupted is the single decode error kind.
var ErrCorrupted = errors.New("corrupted data")

var (
	// ErrTruncated reports a fixed-size read past the end of the buffer.
	ErrTruncated = corrupted("truncated input")
	// ErrTrailingBytes reports bytes left over after a record was fully decoded.
	ErrTrailingBytes = corrupted("trailing bytes after record")
	// ErrSizeMismatch reports a declared length that disagrees with the consumed length.
	ErrSizeMismatch = corrupted("declared size mismatch")
	// ErrSentinelMismatch reports a fixed-value field holding an unexpected value.
	ErrSentinelMismatch = corrupted("sentinel mismatch")
	// ErrUnknownProvider reports an entry id provider UID missing from the dispatch table.
	ErrUnknownProvider = corrupted("unknown provider uid")
	// ErrUnknownDiscriminant reports a type or discriminant value with no known layout.
	ErrUnknownDiscriminant = corrupted("unknown discriminant")
	// ErrUnsupportedType reports a property type code with no value decoder.
	ErrUnsupportedType = corrupted("unsupported property type")
	// ErrDepthExceeded reports nesting deeper than the configured maximum.
	ErrDepthExceeded = corrupted("maximum nesting depth exceeded")
	// ErrRepeatMismatch reports a "repeat" field that differs from its primary field.
	ErrRepeatMismatch = corrupted("repeat field mismatch")
)

// corruptedError is a refinement of ErrCorrupted.
type corruptedError struct {
	msg string
}

func corrupted(msg string) error {
	return &corruptedError{msg: msg}
}

func (e *corruptedError) Error() string {
	return e.msg
}

func (e *corruptedError) Unwrap() error {
	return ErrCorrupted
}

// Wrapf annotates err with a formatted context prefix, preserving errors.Is chains.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
