package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates a frame with a known magic but an invalid layout.
	ErrMalformed = errors.New("malformed frame")
	// ErrUnrecognized indicates a frame with an unknown magic.
	ErrUnrecognized = errors.New("unrecognized frame")
)

// MalformedError describes a malformed frame.
type MalformedError struct {
	Magic uint16
	Size  int
}

// Error implements error.
func (e *MalformedError) Error() string {
	if e.Size < HeaderSize {
		return fmt.Sprintf("malformed frame: %d bytes, no magic", e.Size)
	}
	return fmt.Sprintf("malformed frame: magic %04x with %d bytes", e.Magic, e.Size)
}

// Is matches ErrMalformed.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// UnrecognizedError carries the unknown magic.
type UnrecognizedError struct {
	Magic uint16
}

// Error implements error.
func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized frame magic %04x", e.Magic)
}

// Is matches ErrUnrecognized.
func (e *UnrecognizedError) Is(target error) bool {
	return target == ErrUnrecognized
}
