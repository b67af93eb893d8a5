package link

import (
	"context"
	"time"
)

// Transport is the capability a concrete link provides to Conn.
type Transport interface {
	// Check returns a complete received frame, or nil if nothing is
	// available. It must not block.
	Check() ([]byte, error)
	// Send transmits one frame and reports whether it was sent.
	// Frames larger than the transport maximum must fail with
	// a PacketTooLargeError before anything is transmitted.
	Send(data []byte) (bool, error)
}

// CommandHandler is called when a command frame is received.
type CommandHandler interface {
	HandleCommand(ctx context.Context, command byte, throttle float32)
}

// HandleCommandFunc is func type of CommandHandler.
type HandleCommandFunc func(ctx context.Context, command byte, throttle float32)

// HandleCommand implements CommandHandler.
func (f HandleCommandFunc) HandleCommand(ctx context.Context, command byte, throttle float32) {
	f(ctx, command, throttle)
}

// BinaryHandler is called when a binary frame is received.
// The payload is owned by the handler and may be retained.
type BinaryHandler interface {
	HandleBinary(ctx context.Context, payload []byte)
}

// HandleBinaryFunc is func type of BinaryHandler.
type HandleBinaryFunc func(ctx context.Context, payload []byte)

// HandleBinary implements BinaryHandler.
func (f HandleBinaryFunc) HandleBinary(ctx context.Context, payload []byte) {
	f(ctx, payload)
}

// Config configures a Conn.
type Config struct {
	// Interval between two ticks, must be positive.
	Interval time.Duration
	// Commands receives command frames. Optional.
	Commands CommandHandler
	// Binaries receives binary frames. Optional.
	Binaries BinaryHandler
	// Context is the parent of the polling loop. Optional.
	Context context.Context
}

// DefaultInterval is a reasonable polling interval for most links.
const DefaultInterval = 10 * time.Millisecond

// State is the lifecycle state of a Conn.
type State int

// States
const (
	StateRunning State = iota
	StateStopped
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
