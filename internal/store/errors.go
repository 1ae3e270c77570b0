package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks failures reaching or querying the database.
	ErrUnavailable = errors.New("chunk store unavailable")

	// ErrCorruptVector marks a stored embedding that cannot be decoded
	// at the configured dimensionality.
	ErrCorruptVector = errors.New("corrupt stored vector")

	// ErrDimensionMismatch is returned by InsertBatch for vectors of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// CorruptionError reports a row whose blob does not decode to Want floats.
type CorruptionError struct {
	ID       int64
	BlobSize int
	Want     int
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("row %d: embedding blob is %d bytes, want %d (%d dimensions)",
		e.ID, e.BlobSize, e.Want*4, e.Want)
}

func (e *CorruptionError) Unwrap() error {
	return ErrCorruptVector
}

// IsUnavailable reports whether err came from an unreachable store.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
