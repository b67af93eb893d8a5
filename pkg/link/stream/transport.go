// Package stream implements link.Transport over byte streams.
//
// Each frame is prefixed by 4-byte (little-endian) length. The receive
// lane and the send lane may be the same stream (e.g. a TCP connection)
// or two separate one-way streams.
package stream

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/halflink/pkg/link"
)

// DefaultMaxPacketSize is the default limit of a single frame.
const DefaultMaxPacketSize = 1024

// DefaultInboxSize is the number of received frames buffered before
// the reader stops reading.
const DefaultInboxSize = 16

// Transport implements link.Transport.
type Transport struct {
	MaxPacketSize int

	rx io.Reader
	tx io.Writer

	inbox   chan []byte
	readErr error
	errLock sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// New creates a Transport using rw for both directions.
func New(rw io.ReadWriter, maxPacketSize int) *Transport {
	return NewLanes(rw, rw, maxPacketSize)
}

// NewLanes creates a Transport receiving from rx and sending to tx.
func NewLanes(rx io.Reader, tx io.Writer, maxPacketSize int) *Transport {
	t := &Transport{
		MaxPacketSize: maxPacketSize,
		rx:            rx,
		tx:            tx,
		inbox:         make(chan []byte, DefaultInboxSize),
	}
	go t.readLoop()
	return t
}

// Dial connects to a TCP endpoint.
func Dial(ctx context.Context, addr string, maxPacketSize int) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn, maxPacketSize), nil
}

// Accept listens on addr and waits for a single peer.
func Accept(ctx context.Context, addr string, maxPacketSize int) (*Transport, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	glog.Infof("waiting for peer on %s", ln.Addr())
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	glog.Infof("peer %s connected", conn.RemoteAddr())
	return New(conn, maxPacketSize), nil
}

// Name implements Named.
func (t *Transport) Name() string {
	return "stream"
}

// Check implements link.Transport.
func (t *Transport) Check() ([]byte, error) {
	select {
	case pkt, ok := <-t.inbox:
		if ok {
			return pkt, nil
		}
		t.errLock.Lock()
		defer t.errLock.Unlock()
		return nil, t.readErr
	default:
		return nil, nil
	}
}

// Send implements link.Transport.
func (t *Transport) Send(data []byte) (bool, error) {
	if err := link.CheckPacketSize(data, t.MaxPacketSize); err != nil {
		return false, err
	}
	if err := WritePacket(t.tx, data); err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the lanes which are io.Closer.
func (t *Transport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	var err error
	if closer, ok := t.rx.(io.Closer); ok {
		err = closer.Close()
	}
	if closer, ok := t.tx.(io.Closer); ok && interface{}(t.tx) != interface{}(t.rx) {
		if e := closer.Close(); err == nil {
			err = e
		}
	}
	return err
}

func (t *Transport) readLoop() {
	defer close(t.inbox)
	for {
		pkt, err := ReadPacket(t.rx, t.MaxPacketSize)
		if err != nil {
			t.errLock.Lock()
			t.readErr = err
			t.errLock.Unlock()
			return
		}
		t.inbox <- pkt
	}
}

// ReadPacket reads one length-prefixed packet.
func ReadPacket(r io.Reader, maxPacketSize int) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if maxPacketSize > 0 && int(size) > maxPacketSize {
		return nil, fmt.Errorf("inbound: %w", &link.PacketTooLargeError{Size: int(size), Max: maxPacketSize})
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(r, pkt)
	return pkt, err
}

// WritePacket writes one length-prefixed packet.
func WritePacket(w io.Writer, pkt []byte) error {
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	_, err := w.Write(buf)
	return err
}
