// Package websocket carries one frame per websocket binary message.
package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/halflink/pkg/link"
)

// DefaultMaxPacketSize is the default limit of a single frame.
const DefaultMaxPacketSize = 64 * 1024

// Transport implements link.Transport.
type Transport struct {
	MaxPacketSize int

	conn    *websocket.Conn
	inbox   chan []byte
	readErr error
	errLock sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

// New wraps websocket.Conn and starts receiving.
func New(conn *websocket.Conn) *Transport {
	conn.PayloadType = websocket.BinaryFrame
	t := &Transport{
		MaxPacketSize: DefaultMaxPacketSize,
		conn:          conn,
		inbox:         make(chan []byte, 16),
		closed:        make(chan struct{}),
	}
	conn.MaxPayloadBytes = t.MaxPacketSize
	go t.readLoop()
	return t
}

// Dial connects to a websocket endpoint.
func Dial(url, origin string) (*Transport, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Name implements Named.
func (t *Transport) Name() string {
	return "websocket"
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
	if err := websocket.Message.Send(t.conn, data); err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the connection.
func (t *Transport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.closed)
		err = t.conn.Close()
	})
	return err
}

// Closed is closed after Close.
func (t *Transport) Closed() <-chan struct{} {
	return t.closed
}

func (t *Transport) readLoop() {
	defer close(t.inbox)
	for {
		var pkt []byte
		if err := websocket.Message.Receive(t.conn, &pkt); err != nil {
			t.errLock.Lock()
			t.readErr = err
			t.errLock.Unlock()
			return
		}
		t.inbox <- pkt
	}
}

// Acceptor accepts websocket connections as Transports, one at a time.
type Acceptor struct {
	connCh chan *Transport
}

// NewAcceptor creates an Acceptor.
func NewAcceptor() *Acceptor {
	return &Acceptor{connCh: make(chan *Transport)}
}

// Accepted returns the chan of accepted Transports.
func (a *Acceptor) Accepted() <-chan *Transport {
	return a.connCh
}

// Handler returns the http.Handler serving websocket requests.
// The handler holds the connection until the Transport is closed.
func (a *Acceptor) Handler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		glog.Infof("websocket peer %s connected", conn.Request().RemoteAddr)
		t := New(conn)
		select {
		case a.connCh <- t:
			<-t.Closed()
		case <-conn.Request().Context().Done():
			t.Close()
		}
	})
}
