package frame

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeCommand(t *testing.T) {
	testCases := []struct {
		name     string
		command  byte
		throttle float32
		expect   []byte
	}{
		{"zero", 0, 0, []byte{0xee, 0xaf, 0, 0, 0, 0, 0}},
		{"half", 5, 0.75, []byte{0xee, 0xaf, 5, 0x3f, 0x40, 0, 0}},
		{"one", 3, 1, []byte{0xee, 0xaf, 3, 0x3f, 0x80, 0, 0}},
		{"negative", 0xff, -2, []byte{0xee, 0xaf, 0xff, 0xc0, 0, 0, 0}},
		{"inf", 1, float32(math.Inf(1)), []byte{0xee, 0xaf, 1, 0x7f, 0x80, 0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := EncodeCommand(tc.command, tc.throttle)
			require.Equal(t, tc.expect, b)
			require.Len(t, b, CommandFrameSize)
		})
	}
}

func TestEncodeBinary(t *testing.T) {
	require.Equal(t, []byte{0xee, 0xae}, EncodeBinary(nil))
	require.Equal(t, []byte{0xee, 0xae, 1, 2}, EncodeBinary([]byte{1, 2}))

	payload := make([]byte, 1000)
	require.Len(t, EncodeBinary(payload), HeaderSize+len(payload))

	src := []byte{1, 2, 3}
	b := EncodeBinary(src)
	src[0] = 9
	require.Equal(t, byte(1), b[2], "payload must be copied")
}

func TestCommandRoundTrip(t *testing.T) {
	throttles := []float32{
		0, 0.75, 1, -1, 1e-38, math.MaxFloat32, -math.MaxFloat32,
		math.SmallestNonzeroFloat32,
		float32(math.Inf(1)), float32(math.Inf(-1)),
		math.Float32frombits(0x7fc00001), // NaN with payload
	}
	for command := 0; command < 256; command += 17 {
		for _, throttle := range throttles {
			f, err := Decode(EncodeCommand(byte(command), throttle))
			require.NoError(t, err)
			require.Equal(t, KindCommand, f.Kind)
			require.Equal(t, byte(command), f.Command)
			require.Equal(t, math.Float32bits(throttle), math.Float32bits(f.Throttle))
		}
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0},
		{0xee, 0xaf},
		{0xee, 0xae, 0xee, 0xae},
		[]byte("hello device"),
		make([]byte, 4096),
	}
	for _, p := range payloads {
		f, err := Decode(EncodeBinary(p))
		require.NoError(t, err)
		require.Equal(t, KindBinary, f.Kind)
		require.Len(t, f.Payload, len(p))
		if len(p) > 0 {
			require.Equal(t, p, f.Payload)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one byte", []byte{0xee}},
		{"command no body", []byte{0xee, 0xaf}},
		{"command short", []byte{0xee, 0xaf, 1, 0, 0, 0}},
		{"command long", []byte{0xee, 0xaf, 1, 0, 0, 0, 0, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Decode(tc.data)
			require.Nil(t, f)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrMalformed))
			require.False(t, errors.Is(err, ErrUnrecognized))
			var me *MalformedError
			require.True(t, errors.As(err, &me))
			require.Equal(t, len(tc.data), me.Size)
		})
	}
}

func TestDecodeUnrecognized(t *testing.T) {
	for _, data := range [][]byte{
		{0, 0},
		{0, 0, 1, 2, 3, 4, 5},
		{0xee, 0xad, 1},
		{0xaf, 0xee},
	} {
		f, err := Decode(data)
		require.Nil(t, f)
		require.True(t, errors.Is(err, ErrUnrecognized))
		var ue *UnrecognizedError
		require.True(t, errors.As(err, &ue))
		require.Equal(t, uint16(data[0])<<8|uint16(data[1]), ue.Magic)
	}
}

func TestFrameBytes(t *testing.T) {
	cmd := &Frame{Kind: KindCommand, Command: 7, Throttle: 0.5}
	require.Equal(t, EncodeCommand(7, 0.5), cmd.Bytes())
	bin := &Frame{Kind: KindBinary, Payload: []byte{1}}
	require.Equal(t, []byte{0xee, 0xae, 1}, bin.Bytes())
	require.Equal(t, "command 7 throttle 0.5", cmd.String())
	require.Equal(t, "binary [1] 01", bin.String())
}
