// Package mqtt carries frames as MQTT messages.
//
// A device is addressed by a topic pair under the broker topic prefix:
//
//	<device>/down: frames from the controller to the device
//	<device>/up:   frames from the device to the controller
package mqtt

import (
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/halflink/pkg/link"
)

// ErrTimeout indicates an MQTT operation timed out.
var ErrTimeout = errors.New("mqtt timeout")

// Role is the side of the link.
type Role int

// Roles
const (
	RoleController Role = iota
	RoleDevice
)

// Defaults
const (
	DefaultMaxPacketSize  = 256 * 1024
	DefaultPublishTimeout = time.Second
	DefaultInboxSize      = 64
)

// Transport implements link.Transport.
type Transport struct {
	Queue          *Queue
	SubTopic       string
	PubTopic       string
	MaxPacketSize  int
	PublishTimeout time.Duration

	inbox chan []byte
	sub   *Subscription
}

// NewTransport creates the Transport.
func NewTransport(q *Queue) *Transport {
	return &Transport{
		Queue:          q,
		MaxPacketSize:  DefaultMaxPacketSize,
		PublishTimeout: DefaultPublishTimeout,
		inbox:          make(chan []byte, DefaultInboxSize),
	}
}

// Dial connects the broker and opens the Transport for a device.
func Dial(brokerURL, device string, role Role) (*Transport, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if err = q.ConnectAndWait(DefaultConnectTimeout); err != nil {
		return nil, err
	}
	t := NewTransport(q).For(device, role)
	if err = t.Open(); err != nil {
		q.Close()
		return nil, err
	}
	return t, nil
}

// WithTopics specifies the topics.
func (t *Transport) WithTopics(sub, pub string) *Transport {
	t.SubTopic, t.PubTopic = sub, pub
	return t
}

// For sets topics using the default convention for the role.
func (t *Transport) For(device string, role Role) *Transport {
	if role == RoleDevice {
		return t.WithTopics(device+"/down", device+"/up")
	}
	return t.WithTopics(device+"/up", device+"/down")
}

// Open subscribes SubTopic.
func (t *Transport) Open() error {
	t.sub = t.Queue.Sub(t.SubTopic, Handler(t.handleMsg))
	if !t.sub.Token.WaitTimeout(DefaultConnectTimeout) {
		return ErrTimeout
	}
	return t.sub.Token.Error()
}

// Name implements Named.
func (t *Transport) Name() string {
	return "mqtt"
}

// Check implements link.Transport.
func (t *Transport) Check() ([]byte, error) {
	select {
	case pkt := <-t.inbox:
		return pkt, nil
	default:
		return nil, nil
	}
}

// Send implements link.Transport. A failed publish is reported as not sent,
// the client reconnects by itself.
func (t *Transport) Send(data []byte) (bool, error) {
	if err := link.CheckPacketSize(data, t.MaxPacketSize); err != nil {
		return false, err
	}
	token := t.Queue.Pub(t.PubTopic, data)
	if !token.WaitTimeout(t.PublishTimeout) {
		glog.Warningf("mqtt: publish %q timeout", t.PubTopic)
		return false, nil
	}
	if err := token.Error(); err != nil {
		glog.Warningf("mqtt: publish %q error: %v", t.PubTopic, err)
		return false, nil
	}
	return true, nil
}

// Close unsubscribes and disconnects.
func (t *Transport) Close() error {
	var err error
	if t.sub != nil {
		err = t.sub.Close()
		t.sub = nil
	}
	t.Queue.Close()
	return err
}

func (t *Transport) handleMsg(topic string, payload []byte) {
	select {
	case t.inbox <- payload:
	default:
		glog.Warningf("mqtt: inbox full, drop %d bytes from %q", len(payload), topic)
	}
}
