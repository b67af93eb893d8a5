// Package frame provides the wire format between controller and device.
package frame

// Two kinds of frames travel over the link, both prefixed by a 16-bit
// big-endian magic number:
//
//   Command: 0xEEAF | command (u8) | throttle (f32, big-endian)   7 bytes
//   Binary:  0xEEAE | opaque payload                              2+N bytes
//
// The codec owns the magic numbers, callers only see decoded commands
// and payloads. There is no checksum, integrity is left to the transport.
