// Package wired provides a two-wire half-duplex transport.
//
// One wire is used for sending data and the other for receiving, both are
// one-way lanes exposed by the platform as character devices or FIFOs.
// The electrical side (pins, baud rate, line discipline) is configured
// outside of this package.
package wired

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/halflink/pkg/link/stream"
)

// Config defines the lanes of a wired link.
type Config struct {
	// SendLane is the path of the outbound lane.
	SendLane string
	// ReceiveLane is the path of the inbound lane.
	ReceiveLane string
	// AckPayload is the link-level acknowledgment sent by the peer.
	// Inbound frames equal to it are consumed by the transport.
	AckPayload []byte
	// MaxPacketSize limits a single frame, stream.DefaultMaxPacketSize if 0.
	MaxPacketSize int
}

// ErrNoLane indicates a lane is not configured.
var ErrNoLane = errors.New("both send and receive lanes are required")

// Transport implements link.Transport over two lanes.
type Transport struct {
	*stream.Transport
	config Config
	acks   int
}

// Open opens both lanes.
func Open(conf Config) (*Transport, error) {
	if conf.SendLane == "" || conf.ReceiveLane == "" {
		return nil, ErrNoLane
	}
	rx, err := os.OpenFile(conf.ReceiveLane, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	tx, err := os.OpenFile(conf.SendLane, os.O_WRONLY, 0)
	if err != nil {
		rx.Close()
		return nil, err
	}
	return New(rx, tx, conf), nil
}

// New creates a Transport over opened lanes.
func New(rx io.Reader, tx io.Writer, conf Config) *Transport {
	if conf.MaxPacketSize == 0 {
		conf.MaxPacketSize = stream.DefaultMaxPacketSize
	}
	return &Transport{
		Transport: stream.NewLanes(rx, tx, conf.MaxPacketSize),
		config:    conf,
	}
}

// Name implements Named.
func (t *Transport) Name() string {
	return "wired"
}

// Config returns the configuration.
func (t *Transport) Config() Config {
	return t.config
}

// Acks returns the number of acknowledgments consumed.
// It must be called from the goroutine polling Check.
func (t *Transport) Acks() int {
	return t.acks
}

// Check implements link.Transport.
func (t *Transport) Check() ([]byte, error) {
	for {
		pkt, err := t.Transport.Check()
		if err != nil || pkt == nil {
			return pkt, err
		}
		if len(t.config.AckPayload) == 0 || !bytes.Equal(pkt, t.config.AckPayload) {
			return pkt, nil
		}
		t.acks++
		glog.V(4).Infof("wired: ACK %x", pkt)
	}
}
