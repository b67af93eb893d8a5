package link

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval indicates a non-positive polling interval.
	ErrInvalidInterval = errors.New("interval must be positive")
	// ErrPacketTooLarge indicates a frame exceeding transport maximum.
	ErrPacketTooLarge = errors.New("packet too large")
)

// PacketTooLargeError is returned by Transport.Send.
type PacketTooLargeError struct {
	Size int
	Max  int
}

// Error implements error.
func (e *PacketTooLargeError) Error() string {
	return fmt.Sprintf("packet too large: %d bytes exceeds %d", e.Size, e.Max)
}

// Is matches ErrPacketTooLarge.
func (e *PacketTooLargeError) Is(target error) bool {
	return target == ErrPacketTooLarge
}

// CheckPacketSize validates the size of data against max.
// A non-positive max means unlimited.
func CheckPacketSize(data []byte, max int) error {
	if max > 0 && len(data) > max {
		return &PacketTooLargeError{Size: len(data), Max: max}
	}
	return nil
}

// FetchError terminates the polling loop of a Conn.
type FetchError struct {
	// Transport identifies the concrete transport.
	Transport string
	// Err is the cause.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s connection could not process data: %v", e.Transport, e.Err)
}

// Unwrap returns the cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
