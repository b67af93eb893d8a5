package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/halflink/pkg/frame"
	"github.com/robotalks/halflink/pkg/link"
)

func expectPacket(t *testing.T, tr *Transport) []byte {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		pkt, err := tr.Check()
		require.NoError(t, err)
		if pkt != nil {
			return pkt
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expect packet timeout")
	return nil
}

func TestPacketEncoding(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, []byte{1, 2, 3}))
	require.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3}, buf.Bytes())
	pkt, err := ReadPacket(&buf, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)

	_, err = ReadPacket(bytes.NewReader([]byte{5, 0, 0, 0, 1, 2, 3, 4, 5}), 4)
	require.True(t, errors.Is(err, link.ErrPacketTooLarge))

	_, err = ReadPacket(bytes.NewReader([]byte{5, 0, 0, 0, 1}), 0)
	require.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestTransportPipe(t *testing.T) {
	a, b := net.Pipe()
	ta, tb := New(a, 16), New(b, 16)
	defer ta.Close()
	defer tb.Close()

	pkt, err := ta.Check()
	require.NoError(t, err)
	require.Nil(t, pkt)

	sent := make(chan error, 1)
	go func() {
		_, err := ta.Send(frame.EncodeCommand(3, 1))
		sent <- err
	}()
	require.Equal(t, frame.EncodeCommand(3, 1), expectPacket(t, tb))
	require.NoError(t, <-sent)

	ok, err := ta.Send(make([]byte, 17))
	require.False(t, ok)
	require.True(t, errors.Is(err, link.ErrPacketTooLarge))
}

func TestTransportLanes(t *testing.T) {
	rx := bytes.NewReader([]byte{2, 0, 0, 0, 0xee, 0xae})
	var tx bytes.Buffer
	tr := NewLanes(rx, &tx, 0)

	require.Equal(t, []byte{0xee, 0xae}, expectPacket(t, tr))
	var err error
	deadline := time.Now().Add(time.Second)
	for err == nil && time.Now().Before(deadline) {
		_, err = tr.Check()
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, io.EOF, err)

	ok, err := tr.Send([]byte{1})
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 0, 0, 1}, tx.Bytes())
}

func TestTransportWithConn(t *testing.T) {
	a, b := net.Pipe()
	ctl, dev := New(a, 64), New(b, 64)
	defer ctl.Close()
	defer dev.Close()

	received := make(chan []byte, 1)
	devConn, err := link.Open(dev, link.Config{
		Interval: time.Millisecond,
		Binaries: link.HandleBinaryFunc(func(ctx context.Context, payload []byte) {
			received <- payload
		}),
	})
	require.NoError(t, err)
	defer devConn.Stop()
	ctlConn, err := link.Open(ctl, link.Config{Interval: time.Millisecond})
	require.NoError(t, err)
	defer ctlConn.Stop()

	ctlConn.SendBinaryPayload([]byte("hello"), false)
	select {
	case payload := <-received:
		require.Equal(t, []byte("hello"), payload)
	case <-time.After(time.Second):
		t.Fatal("payload not received")
	}
}

func TestAcceptDial(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	accepted := make(chan *Transport, 1)
	go func() {
		tr, err := Accept(ctx, addr, 0)
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- tr
	}()

	var client *Transport
	for client == nil {
		if client, err = Dial(ctx, addr, 0); err != nil {
			require.NoError(t, ctx.Err())
			time.Sleep(5 * time.Millisecond)
		}
	}
	defer client.Close()
	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()

	_, err = client.Send([]byte{0xee, 0xae, 7})
	require.NoError(t, err)
	require.Equal(t, []byte{0xee, 0xae, 7}, expectPacket(t, server))
}

func TestAcceptCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Accept(ctx, "127.0.0.1:0", 0)
	require.Error(t, err)
}
