package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/halflink/pkg/frame"
	fx "github.com/robotalks/halflink/pkg/framework"
)

// Conn is a half-duplex connection driven by a polling loop.
type Conn struct {
	interval  time.Duration
	transport Transport
	name      string
	commands  CommandHandler
	binaries  BinaryHandler
	queue     Queue

	ctx      context.Context
	cancel   func()
	stopOnce sync.Once
	done     chan struct{}

	state State
	err   error
	lock  sync.RWMutex
}

// Open creates a Conn over the transport and starts polling.
// The first tick happens one interval later.
func Open(t Transport, conf Config) (*Conn, error) {
	if conf.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	parent := conf.Context
	if parent == nil {
		parent = context.Background()
	}
	c := &Conn{
		interval:  conf.Interval,
		transport: t,
		name:      fx.NameOf(t),
		commands:  conf.Commands,
		binaries:  conf.Binaries,
		done:      make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(parent)
	glog.V(2).Infof("%s connection started, interval %v", c.name, c.interval)
	go c.run(c.ctx)
	return c, nil
}

// Name implements Named.
func (c *Conn) Name() string {
	return c.name
}

// Interval returns the polling interval.
func (c *Conn) Interval() time.Duration {
	return c.interval
}

// SendCommand queues a command frame. It never blocks and doesn't tell
// whether the command is transmitted, that happens on a later tick.
func (c *Conn) SendCommand(command byte, throttle float32, immediately bool) {
	c.enqueue(frame.EncodeCommand(command, throttle), immediately)
}

// SendBinaryPayload queues a binary frame. Keeping the payload within the
// transport limit is the caller's responsibility, oversized frames fail the
// connection when they are sent.
func (c *Conn) SendBinaryPayload(payload []byte, immediately bool) {
	c.enqueue(frame.EncodeBinary(payload), immediately)
}

func (c *Conn) enqueue(data []byte, immediately bool) {
	if c.ctx.Err() != nil {
		glog.V(2).Infof("%s connection stopped, drop %d bytes", c.name, len(data))
		return
	}
	c.queue.Enqueue(data, immediately)
}

// Pending returns the number of queued frames.
func (c *Conn) Pending() int {
	return c.queue.Len()
}

// Stop cancels the polling loop. It's safe to call multiple times and
// from handlers. A tick in progress completes, no tick starts afterwards.
func (c *Conn) Stop() {
	c.stopOnce.Do(func() {
		glog.V(2).Infof("%s connection stop requested", c.name)
		c.cancel()
	})
}

// Done is closed when the polling loop exits.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Wait waits for the polling loop to exit and returns Err.
func (c *Conn) Wait() error {
	<-c.done
	return c.Err()
}

// Err returns the FetchError which terminated the loop, or nil.
func (c *Conn) Err() error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.err
}

// State returns the current state.
func (c *Conn) State() State {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state
}

// Running indicates the polling loop is active.
func (c *Conn) Running() bool {
	return c.State() == StateRunning && c.ctx.Err() == nil
}

// Run implements Runnable. It supervises the running connection and
// stops it when ctx is canceled.
func (c *Conn) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		c.Stop()
		<-c.done
		return ctx.Err()
	case <-c.done:
		return c.Err()
	}
}

func (c *Conn) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.finish(nil)
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			if err := c.tick(ctx); err != nil {
				c.finish(&FetchError{Transport: c.name, Err: err})
				return
			}
		}
	}
}

func (c *Conn) tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	data, err := c.transport.Check()
	if err != nil {
		return err
	}
	if len(data) > 0 {
		return c.dispatch(ctx, data)
	}
	pending, ok := c.queue.Dequeue()
	if !ok {
		return nil
	}
	sent, err := c.transport.Send(pending)
	if err != nil {
		return err
	}
	if !sent {
		glog.Warningf("%s: frame of %d bytes not sent", c.name, len(pending))
	} else if glog.V(4) {
		glog.Infof("%s: SND %x", c.name, pending)
	}
	return nil
}

func (c *Conn) dispatch(ctx context.Context, data []byte) error {
	f, err := frame.Decode(data)
	if err != nil {
		if errors.Is(err, frame.ErrUnrecognized) {
			glog.V(2).Infof("%s: drop %v", c.name, err)
			return nil
		}
		return err
	}
	if glog.V(4) {
		glog.Infof("%s: RCV %v", c.name, f)
	}
	switch f.Kind {
	case frame.KindCommand:
		if h := c.commands; h != nil {
			h.HandleCommand(ctx, f.Command, f.Throttle)
		}
	case frame.KindBinary:
		if h := c.binaries; h != nil {
			h.HandleBinary(ctx, append([]byte(nil), f.Payload...))
		}
	}
	return nil
}

func (c *Conn) finish(err error) {
	c.cancel()
	c.lock.Lock()
	c.err = err
	if err != nil {
		c.state = StateFailed
	} else {
		c.state = StateStopped
	}
	c.lock.Unlock()
	dropped := c.queue.Clear()
	if err != nil {
		glog.Errorf("%v", err)
	} else {
		glog.V(2).Infof("%s connection stopped", c.name)
	}
	if dropped > 0 {
		glog.V(2).Infof("%s: %d queued frames discarded", c.name, dropped)
	}
}
