// Package device provides a simulated device for the far end of a link.
package device

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/ptypes/wrappers"

	"github.com/robotalks/halflink/pkg/link"
	"github.com/robotalks/halflink/pkg/payload"
)

// CommandStop is the emergency stop command, it resets throttle.
const CommandStop byte = 0

// Sender queues outbound frames, implemented by link.Conn.
type Sender interface {
	SendCommand(command byte, throttle float32, immediately bool)
	SendBinaryPayload(payload []byte, immediately bool)
}

// Status is the simulated device state.
type Status struct {
	Command  byte
	Throttle float32
	Commands int
	Payloads int
}

// Simulator echoes commands and binary payloads back to the controller
// and reports throttle periodically.
type Simulator struct {
	Sender    Sender
	Telemetry time.Duration

	status Status
	lock   sync.Mutex
}

// NewSimulator creates a Simulator.
func NewSimulator(telemetry time.Duration) *Simulator {
	return &Simulator{Telemetry: telemetry}
}

// Status returns current status.
func (s *Simulator) Status() Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.status
}

// HandleCommand implements link.CommandHandler.
func (s *Simulator) HandleCommand(ctx context.Context, command byte, throttle float32) {
	if command == CommandStop {
		throttle = 0
	}
	s.lock.Lock()
	s.status.Commands++
	s.status.Command = command
	s.status.Throttle = throttle
	s.lock.Unlock()
	glog.Infof("command %d throttle %v", command, throttle)
	if s.Sender != nil {
		s.Sender.SendCommand(command, throttle, command == CommandStop)
	}
}

// HandleBinary implements link.BinaryHandler.
func (s *Simulator) HandleBinary(ctx context.Context, data []byte) {
	s.lock.Lock()
	s.status.Payloads++
	s.lock.Unlock()
	glog.Infof("binary %s", payload.Describe(data))
	if s.Sender == nil {
		return
	}
	if msg, err := payload.Unpack(data); err == nil {
		if text, ok := msg.(*wrappers.StringValue); ok {
			s.Sender.SendBinaryPayload(payload.Text("echo: "+text.Value), false)
			return
		}
	}
	s.Sender.SendBinaryPayload(data, false)
}

// Run implements Runnable, reporting throttle every Telemetry period.
func (s *Simulator) Run(ctx context.Context) error {
	if s.Telemetry <= 0 || s.Sender == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(s.Telemetry)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			data, err := payload.Pack(&wrappers.FloatValue{Value: s.Status().Throttle})
			if err != nil {
				return err
			}
			s.Sender.SendBinaryPayload(data, false)
		}
	}
}

var (
	_ link.CommandHandler = (*Simulator)(nil)
	_ link.BinaryHandler  = (*Simulator)(nil)
)
