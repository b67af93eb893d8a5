package env

import (
	"context"
	"errors"
	"io"
	"io/ioutil"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/halflink/pkg/link"
	"github.com/robotalks/halflink/pkg/link/stream"
	"github.com/robotalks/halflink/pkg/link/wired"
)

func TestValidate(t *testing.T) {
	conf := NewConfig()
	require.NotEqual(t, "", conf.Device)
	require.NoError(t, conf.Validate())

	conf.Interval = 0
	require.Equal(t, link.ErrInvalidInterval, conf.Validate())
	conf.Interval, conf.URL = time.Millisecond, ""
	require.Error(t, conf.Validate())
}

func TestWiredConfigFromURL(t *testing.T) {
	u, err := url.Parse("wired:///dev/tx?rx=/dev/rx&ack=06ff")
	require.NoError(t, err)
	conf, err := WiredConfigFromURL(u)
	require.NoError(t, err)
	require.Equal(t, wired.Config{
		SendLane:    "/dev/tx",
		ReceiveLane: "/dev/rx",
		AckPayload:  []byte{0x06, 0xff},
	}, conf)

	u, _ = url.Parse("wired:///dev/tx")
	_, err = WiredConfigFromURL(u)
	require.Equal(t, wired.ErrNoLane, err)

	u, _ = url.Parse("wired:///dev/tx?rx=/dev/rx&ack=zz")
	_, err = WiredConfigFromURL(u)
	require.Error(t, err)
}

func TestNewTransportUnknownScheme(t *testing.T) {
	conf := NewConfig()
	conf.URL = "carrier-pigeon://coop"
	_, err := conf.NewTransport(context.Background(), Controller)
	require.EqualError(t, err, `unknown transport URL scheme: "carrier-pigeon"`)
}

func TestNewTransportTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if conn, err := ln.Accept(); err == nil {
			stream.WritePacket(conn, []byte{0xee, 0xae})
		}
	}()

	conf := NewConfig()
	conf.URL = "tcp://" + ln.Addr().String()
	conf.MaxPacketSize = 32
	tr, err := conf.NewTransport(context.Background(), Controller)
	require.NoError(t, err)
	st := tr.(*stream.Transport)
	defer st.Close()
	require.Equal(t, 32, st.MaxPacketSize)
}

func TestOpenWired(t *testing.T) {
	dir, err := ioutil.TempDir("", "env")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	rx, tx := filepath.Join(dir, "rx"), filepath.Join(dir, "tx")
	require.NoError(t, ioutil.WriteFile(rx, nil, 0644))
	require.NoError(t, ioutil.WriteFile(tx, nil, 0644))

	conf := NewConfig()
	conf.URL = "wired://" + tx + "?rx=" + rx
	conf.Interval = time.Hour
	conn, tr, err := conf.Open(context.Background(), Controller, nil, nil)
	require.NoError(t, err)
	defer tr.(*wired.Transport).Close()
	require.Equal(t, "wired", conn.Name())
	require.Equal(t, tx, tr.(*wired.Transport).Config().SendLane)
	conn.Stop()
	require.NoError(t, conn.Wait())
}

func TestOpenClosesTransportOnFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	readErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			readErr <- err
			return
		}
		defer conn.Close()
		_, err = conn.Read(make([]byte, 1))
		readErr <- err
	}()

	openErr := errors.New("open failed")
	openConn = func(link.Transport, link.Config) (*link.Conn, error) {
		return nil, openErr
	}
	defer func() { openConn = link.Open }()

	conf := NewConfig()
	conf.URL = "tcp://" + ln.Addr().String()
	conn, tr, err := conf.Open(context.Background(), Controller, nil, nil)
	require.Equal(t, openErr, err)
	require.Nil(t, conn)
	require.Nil(t, tr)
	select {
	case err := <-readErr:
		require.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("transport not closed")
	}
}
