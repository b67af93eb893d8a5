// Package link provides the half-duplex connection engine.
//
// A Conn polls its Transport on a fixed interval. On every tick it either
// receives one inbound frame and dispatches it to the registered handlers,
// or transmits the head of the send queue, never both. Receiving always
// takes precedence so inbound data is not starved by outbound backlog.
//
// Sends are fire-and-forget: SendCommand and SendBinaryPayload only put a
// frame into the queue. Delivery confirmation belongs to the transport.
package link
