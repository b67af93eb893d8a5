package frame

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// Magic numbers.
const (
	MagicCommand uint16 = 0xEEAF
	MagicBinary  uint16 = 0xEEAE
)

// Frame sizes.
const (
	HeaderSize       = 2
	CommandFrameSize = HeaderSize + 1 + 4
)

// Kind is the kind of a decoded frame.
type Kind int

// Frame kinds.
const (
	KindCommand Kind = iota + 1
	KindBinary
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is a decoded frame.
type Frame struct {
	Kind Kind

	// Command and Throttle are valid for KindCommand.
	Command  byte
	Throttle float32

	// Payload is valid for KindBinary.
	Payload []byte
}

// EncodeCommand encodes a command frame.
func EncodeCommand(command byte, throttle float32) []byte {
	b := make([]byte, CommandFrameSize)
	binary.BigEndian.PutUint16(b, MagicCommand)
	b[2] = command
	binary.BigEndian.PutUint32(b[3:], math.Float32bits(throttle))
	return b
}

// EncodeBinary encodes a binary frame. The payload is copied.
func EncodeBinary(payload []byte) []byte {
	b := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(b, MagicBinary)
	copy(b[HeaderSize:], payload)
	return b
}

// Decode decodes a single frame.
// The payload of a binary frame shares memory with data.
func Decode(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, &MalformedError{Size: len(data)}
	}
	magic := binary.BigEndian.Uint16(data)
	switch magic {
	case MagicCommand:
		if len(data) != CommandFrameSize {
			return nil, &MalformedError{Magic: magic, Size: len(data)}
		}
		return &Frame{
			Kind:     KindCommand,
			Command:  data[2],
			Throttle: math.Float32frombits(binary.BigEndian.Uint32(data[3:])),
		}, nil
	case MagicBinary:
		return &Frame{Kind: KindBinary, Payload: data[HeaderSize:]}, nil
	}
	return nil, &UnrecognizedError{Magic: magic}
}

// Bytes returns encoded bytes for sending.
func (f *Frame) Bytes() []byte {
	if f.Kind == KindCommand {
		return EncodeCommand(f.Command, f.Throttle)
	}
	return EncodeBinary(f.Payload)
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	if f.Kind == KindCommand {
		return fmt.Sprintf("command %d throttle %v", f.Command, f.Throttle)
	}
	return fmt.Sprintf("binary [%d] %s", len(f.Payload), hex.EncodeToString(f.Payload))
}
