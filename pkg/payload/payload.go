// Package payload provides typed binary payloads.
//
// A typed payload is a protobuf message wrapped in google.protobuf.Any, so
// the receiver can decode it without knowing the type in advance. It travels
// as the opaque content of a binary frame.
package payload

import (
	"encoding/hex"
	"fmt"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/golang/protobuf/ptypes/any"
	"github.com/golang/protobuf/ptypes/wrappers"
)

// Pack encodes msg as a typed payload.
func Pack(msg proto.Message) ([]byte, error) {
	a, err := ptypes.MarshalAny(msg)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(a)
}

// Unpack decodes a typed payload. The message type must be registered.
func Unpack(data []byte) (proto.Message, error) {
	var a any.Any
	if err := proto.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if a.TypeUrl == "" {
		return nil, fmt.Errorf("not a typed payload")
	}
	var msg ptypes.DynamicAny
	if err := ptypes.UnmarshalAny(&a, &msg); err != nil {
		return nil, err
	}
	return msg.Message, nil
}

// Text creates a typed payload carrying a string.
func Text(s string) []byte {
	data, err := Pack(&wrappers.StringValue{Value: s})
	if err != nil {
		panic(err)
	}
	return data
}

// Describe renders a payload for display.
func Describe(data []byte) string {
	if msg, err := Unpack(data); err == nil {
		name := proto.MessageName(msg)
		if s, ok := msg.(*wrappers.StringValue); ok {
			return fmt.Sprintf("%s %q", name, s.Value)
		}
		return name + " " + proto.CompactTextString(msg)
	}
	return fmt.Sprintf("[%d] %s", len(data), hex.EncodeToString(data))
}
