// Package env sets up links from flags and environment variables.
package env

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/halflink/pkg/link"
	"github.com/robotalks/halflink/pkg/link/mqtt"
	"github.com/robotalks/halflink/pkg/link/stream"
	"github.com/robotalks/halflink/pkg/link/websocket"
	"github.com/robotalks/halflink/pkg/link/wired"
)

// Config provides common options to set up a link.
type Config struct {
	// URL specifies the transport, e.g.
	//   tcp://host:port
	//   mqtt://host:port/topic-prefix/
	//   ws://host:port/path
	//   wired:///dev/tx-lane?rx=/dev/rx-lane&ack=06
	URL string
	// Interval is the polling interval.
	Interval time.Duration
	// Device identifies the device on shared transports (MQTT).
	Device string
	// MaxPacketSize limits a single frame, 0 for transport default.
	MaxPacketSize int
}

// Side is the side of the link a process is on.
type Side int

// Sides
const (
	Controller Side = iota
	Device
)

var openConn = link.Open

var defaultConfig = Config{
	URL:      "tcp://localhost:7070",
	Interval: link.DefaultInterval,
}

func init() {
	defaultConfig.Device = MachineID()
	if val := os.Getenv("HALFLINK_URL"); val != "" {
		defaultConfig.URL = val
	}
	if val := os.Getenv("HALFLINK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("HALFLINK_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.Interval = d
		} else {
			glog.Warningf("ignore HALFLINK_INTERVAL %q: %v", val, err)
		}
	}
	if val := os.Getenv("HALFLINK_MAX_PACKET"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			defaultConfig.MaxPacketSize = n
		} else {
			glog.Warningf("ignore HALFLINK_MAX_PACKET %q: %v", val, err)
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.URL, "url", defaultConfig.URL, "Link transport URL.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Link polling interval.")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Device ID on shared transports.")
	flag.IntVar(&defaultConfig.MaxPacketSize, "max-packet", defaultConfig.MaxPacketSize, "Max frame size, 0 for transport default.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return link.ErrInvalidInterval
	}
	if c.URL == "" {
		return fmt.Errorf("transport URL is required")
	}
	return nil
}

// NewTransport creates the transport on the specified side.
// A device side waits for its controller on tcp and ws.
func (c *Config) NewTransport(ctx context.Context, side Side) (link.Transport, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid transport URL: %v", err)
	}
	switch u.Scheme {
	case "tcp":
		var t *stream.Transport
		if side == Device {
			t, err = stream.Accept(ctx, u.Host, c.maxPacketSize(stream.DefaultMaxPacketSize))
		} else {
			t, err = stream.Dial(ctx, u.Host, c.maxPacketSize(stream.DefaultMaxPacketSize))
		}
		if err != nil {
			return nil, err
		}
		return t, nil
	case "mqtt", "mqtts":
		if c.Device == "" {
			return nil, fmt.Errorf("device ID is required for %s", u.Scheme)
		}
		role := mqtt.RoleController
		if side == Device {
			role = mqtt.RoleDevice
		}
		t, err := mqtt.Dial(c.URL, c.Device, role)
		if err != nil {
			return nil, err
		}
		t.MaxPacketSize = c.maxPacketSize(t.MaxPacketSize)
		return t, nil
	case "ws", "wss":
		var t *websocket.Transport
		if side == Device {
			if t, err = acceptWebsocket(ctx, u); err != nil {
				return nil, err
			}
		} else {
			origin := "http://" + u.Host
			if t, err = websocket.Dial(c.URL, origin); err != nil {
				return nil, err
			}
		}
		t.MaxPacketSize = c.maxPacketSize(t.MaxPacketSize)
		return t, nil
	case "wired":
		conf, err := WiredConfigFromURL(u)
		if err != nil {
			return nil, err
		}
		conf.MaxPacketSize = c.maxPacketSize(0)
		if side == Device {
			conf.SendLane, conf.ReceiveLane = conf.ReceiveLane, conf.SendLane
		}
		t, err := wired.Open(conf)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown transport URL scheme: %q", u.Scheme)
	}
}

// MustNewTransport creates the transport and fails on error.
func (c *Config) MustNewTransport(ctx context.Context, side Side) link.Transport {
	t, err := c.NewTransport(ctx, side)
	if err != nil {
		log.Fatalln(err)
	}
	return t
}

// Open creates the transport and starts a connection on it.
func (c *Config) Open(ctx context.Context, side Side, commands link.CommandHandler, binaries link.BinaryHandler) (*link.Conn, link.Transport, error) {
	t, err := c.NewTransport(ctx, side)
	if err != nil {
		return nil, nil, err
	}
	conn, err := openConn(t, link.Config{
		Interval: c.Interval,
		Commands: commands,
		Binaries: binaries,
		Context:  ctx,
	})
	if err != nil {
		if closer, ok := t.(io.Closer); ok {
			closer.Close()
		}
		return nil, nil, err
	}
	return conn, t, nil
}

func (c *Config) maxPacketSize(def int) int {
	if c.MaxPacketSize > 0 {
		return c.MaxPacketSize
	}
	return def
}

// WiredConfigFromURL parses wired:///send-lane?rx=receive-lane&ack=hex.
func WiredConfigFromURL(u *url.URL) (wired.Config, error) {
	conf := wired.Config{
		SendLane:    u.Path,
		ReceiveLane: u.Query().Get("rx"),
	}
	if ack := u.Query().Get("ack"); ack != "" {
		payload, err := hex.DecodeString(ack)
		if err != nil {
			return conf, fmt.Errorf("invalid ack payload: %v", err)
		}
		conf.AckPayload = payload
	}
	if conf.SendLane == "" || conf.ReceiveLane == "" {
		return conf, wired.ErrNoLane
	}
	return conf, nil
}

func acceptWebsocket(ctx context.Context, u *url.URL) (*websocket.Transport, error) {
	acceptor := websocket.NewAcceptor()
	path := u.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, acceptor.Handler())
	server := &http.Server{Addr: u.Host, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	glog.Infof("waiting for websocket peer on %s%s", u.Host, path)
	select {
	case t := <-acceptor.Accepted():
		go func() {
			<-t.Closed()
			server.Close()
		}()
		return t, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		server.Close()
		return nil, ctx.Err()
	}
}
