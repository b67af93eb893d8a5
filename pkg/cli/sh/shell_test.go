package sh

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/halflink/pkg/link"
)

type testSender struct {
	pending int
	state   link.State
	lock    sync.Mutex
}

func (s *testSender) SendCommand(command byte, throttle float32, immediately bool) {}
func (s *testSender) SendBinaryPayload(payload []byte, immediately bool)           {}
func (s *testSender) Interval() time.Duration                                      { return time.Millisecond }

func (s *testSender) State() link.State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

func (s *testSender) Pending() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.pending > 0 {
		s.pending--
	}
	return s.pending
}

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		args     []string
		command  byte
		throttle float32
		fail     bool
	}{
		{args: []string{"5"}, command: 5},
		{args: []string{"0x10", "0.75"}, command: 16, throttle: 0.75},
		{args: []string{"255", "-1"}, command: 255, throttle: -1},
		{args: []string{"256"}, fail: true},
		{args: []string{"1", "fast"}, fail: true},
		{args: nil, fail: true},
		{args: []string{"1", "2", "3"}, fail: true},
	}
	for _, tc := range testCases {
		command, throttle, err := parseCommand(tc.args)
		if tc.fail {
			require.Error(t, err, "%v", tc.args)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.command, command)
		require.Equal(t, tc.throttle, throttle)
	}
}

func TestDrain(t *testing.T) {
	sender := &testSender{pending: 5}
	s := &Shell{Conn: sender}
	s.drain()
	require.Equal(t, 0, sender.Pending())

	sender = &testSender{pending: 100, state: link.StateFailed}
	s.Conn = sender
	s.drain()
	require.Equal(t, 98, sender.Pending())
}
