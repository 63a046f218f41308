// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mqtt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sclera-iot/mqtt5/packet"
	"github.com/sclera-iot/mqtt5/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroker accepts a single connection, reads one frame at a time
// (via a Transformer-shaped byte reader) and exposes them to the test
// so it can script replies.
type fakeBroker struct {
	ln   net.Listener
	conn net.Conn
}

func newFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return &fakeBroker{ln: ln}
}

func (b *fakeBroker) addr() string { return b.ln.Addr().String() }

func (b *fakeBroker) accept(t *testing.T) net.Conn {
	t.Helper()
	conn, err := b.ln.Accept()
	require.NoError(t, err)
	b.conn = conn
	return conn
}

func (b *fakeBroker) close() {
	if b.conn != nil {
		b.conn.Close()
	}
	b.ln.Close()
}

// readPacket reads exactly one frame off conn using the same
// fixed-header peeking logic as the production reassembler.
func readPacket(t *testing.T, conn net.Conn) packet.Packet {
	t.Helper()
	buf := make([]byte, 0, 256)
	chunk := make([]byte, 256)
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := conn.Read(chunk)
		require.NoError(t, err)
		buf = append(buf, chunk[:n]...)

		r := wire.NewReader(buf)
		fh, err := packet.PeekFixedHeader(r)
		if err != nil {
			continue
		}
		frameLen := fh.HeaderLen + fh.RemainingLen
		if len(buf) < frameLen {
			continue
		}
		p, err := packet.Decode(buf[:frameLen])
		require.NoError(t, err)
		return p
	}
}

func newTestClient(t *testing.T, addr string, opts ...Option) *Client {
	t.Helper()
	connect := &packet.ConnectPacket{ClientID: "test-client", KeepAlive: 60}
	defaultOpts := append([]Option{WithReconnectTime(0)}, opts...)
	return NewClient("tcp://"+addr, connect, defaultOpts...)
}

func TestConnectCompletesOnConnAck(t *testing.T) {
	broker := newFakeBroker(t)
	defer broker.close()

	go func() {
		conn := broker.accept(t)
		readPacket(t, conn)
		frame, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
		conn.Write(frame)
	}()

	c := newTestClient(t, broker.addr())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, stateConnected, c.getState())
}

func TestConnectFailsOnReasonCodeError(t *testing.T) {
	broker := newFakeBroker(t)
	defer broker.close()

	go func() {
		conn := broker.accept(t)
		readPacket(t, conn)
		frame, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonNotAuthorized}).Encode()
		conn.Write(frame)
	}()

	c := newTestClient(t, broker.addr())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.Connect(ctx)
	require.Error(t, err)
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, packet.ReasonNotAuthorized, connErr.ReasonCode)
}

func TestSubscribeResolvesTokenOnSubAck(t *testing.T) {
	broker := newFakeBroker(t)
	defer broker.close()

	serverReady := make(chan net.Conn, 1)
	go func() {
		conn := broker.accept(t)
		readPacket(t, conn)
		frame, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
		conn.Write(frame)
		serverReady <- conn
	}()

	c := newTestClient(t, broker.addr())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	conn := <-serverReady

	go func() {
		sub := readPacket(t, conn).(*packet.SubscribePacket)
		frame, _ := (&packet.SubAckPacket{
			PacketID:    sub.PacketID,
			ReasonCodes: []packet.ReasonCode{packet.ReasonGrantedQoS1},
		}).Encode()
		conn.Write(frame)
	}()

	tok, err := c.Subscribe([]packet.Subscription{{Filter: "a/b", QoS: packet.QoS1}})
	require.NoError(t, err)

	require.NoError(t, tok.WaitTimeout(2*time.Second))
	require.NotNil(t, tok.Result)
	assert.Equal(t, []packet.ReasonCode{packet.ReasonGrantedQoS1}, tok.Result.ReasonCodes)
}

func TestPublishQoS0TokenCompletesImmediately(t *testing.T) {
	broker := newFakeBroker(t)
	defer broker.close()

	go func() {
		conn := broker.accept(t)
		readPacket(t, conn)
		frame, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
		conn.Write(frame)
		readPacket(t, conn)
	}()

	c := newTestClient(t, broker.addr())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	tok, err := c.Publish("a/b", []byte("hi"), packet.QoS0, false)
	require.NoError(t, err)

	select {
	case <-tok.Done():
		assert.NoError(t, tok.Error())
	case <-time.After(time.Second):
		t.Fatal("qos0 token never completed")
	}
}

func TestPublishQoS1ResolvesOnPubAck(t *testing.T) {
	broker := newFakeBroker(t)
	defer broker.close()

	serverReady := make(chan net.Conn, 1)
	go func() {
		conn := broker.accept(t)
		readPacket(t, conn)
		frame, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
		conn.Write(frame)
		serverReady <- conn
	}()

	c := newTestClient(t, broker.addr())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	conn := <-serverReady
	go func() {
		pub := readPacket(t, conn).(*packet.PublishPacket)
		frame, _ := (&packet.AckPacket{
			PacketType: packet.PacketIDAckType(packet.TypePubAck),
			PacketID:   pub.PacketID,
			ReasonCode: packet.ReasonSuccess,
		}).Encode()
		conn.Write(frame)
	}()

	tok, err := c.Publish("a/b", []byte("hi"), packet.QoS1, false)
	require.NoError(t, err)
	require.NoError(t, tok.WaitTimeout(2*time.Second))
}

func TestDisconnectFailsPendingTokens(t *testing.T) {
	broker := newFakeBroker(t)
	defer broker.close()

	serverReady := make(chan net.Conn, 1)
	go func() {
		conn := broker.accept(t)
		readPacket(t, conn)
		frame, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
		conn.Write(frame)
		serverReady <- conn
	}()

	c := newTestClient(t, broker.addr())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	conn := <-serverReady

	tok, err := c.Subscribe([]packet.Subscription{{Filter: "a/b", QoS: packet.QoS0}})
	require.NoError(t, err)

	readPacket(t, conn)
	conn.Close()

	require.ErrorIs(t, tok.WaitTimeout(2*time.Second), ErrNotConnected)
	assert.ErrorIs(t, tok.Error(), ErrNotConnected)
}

func TestCloseIsIdempotent(t *testing.T) {
	broker := newFakeBroker(t)
	defer broker.close()

	go func() {
		conn := broker.accept(t)
		readPacket(t, conn)
		frame, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
		conn.Write(frame)
	}()

	c := newTestClient(t, broker.addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestPublishDeserializeModeChangesSurfacedPayloadType(t *testing.T) {
	broker := newFakeBroker(t)
	defer broker.close()

	serverReady := make(chan net.Conn, 1)
	go func() {
		conn := broker.accept(t)
		readPacket(t, conn)
		frame, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
		conn.Write(frame)
		serverReady <- conn
	}()

	c := newTestClient(t, broker.addr(), WithPublishDeserializeOptions(packet.UTF8String))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	conn := <-serverReady
	// NewBinaryPublish sets no payload_format_indicator, so the default
	// PayloadFormatIndicator mode would surface this as raw bytes; with
	// UTF8String requested, the client must surface it as text instead.
	frame, err := packet.NewBinaryPublish("a/b", []byte("hello"), packet.QoS0, false).Encode()
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	select {
	case ev := <-c.Events():
		wp, ok := ev.(WirePacketEvent)
		require.True(t, ok)
		pub, ok := wp.Packet.(*packet.PublishPacket)
		require.True(t, ok)
		assert.True(t, pub.IsText)
		assert.Equal(t, "hello", pub.PayloadText)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish event")
	}
}

func TestPublishWithoutConnectionReturnsErrNotConnected(t *testing.T) {
	c := NewClient("tcp://127.0.0.1:1", &packet.ConnectPacket{ClientID: "x"}, WithReconnectTime(0))
	_, err := c.Publish("a/b", []byte("hi"), packet.QoS0, false)
	assert.ErrorIs(t, err, ErrNotConnected)
}
