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

// Package transport dials the four schemes the wire protocol can run
// over (plain TCP, TLS-wrapped, and WebSocket in both variants) behind
// one Conn interface that already speaks whole MQTT packets.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sclera-iot/mqtt5/packet"
	"github.com/sclera-iot/mqtt5/transform"
)

const (
	// DefaultTCPPort is used for tcp:// and mqtt:// URLs with no
	// explicit port.
	DefaultTCPPort = 1883
	// DefaultTLSPort is used for mqtts:// URLs with no explicit port.
	DefaultTLSPort = 8883
	// DefaultWSPort is used for ws:// URLs with no explicit port.
	DefaultWSPort = 80
	// DefaultWSSPort is used for wss:// URLs with no explicit port.
	DefaultWSSPort = 443

	readBufferSize = 4096
)

// Conn is a decoded-packet source plus a raw-byte sink. Closing either
// the application side or detecting a transport-level read/write error
// closes the other half and stops the packet channel.
type Conn interface {
	// Packets yields whole decoded packets in arrival order. It is
	// closed, possibly after emitting a final error via Err, when the
	// underlying connection ends.
	Packets() <-chan packet.Packet
	// Err returns the reason Packets was closed, if it was not a clean
	// shutdown. Safe to call after Packets is closed.
	Err() error
	// Send writes raw bytes (typically an Encode()'d packet). Concurrent
	// calls are serialized, so their writes never interleave.
	Send(data []byte) error
	// Close tears down the connection. Safe to call more than once.
	Close() error
}

// DialOptions configures Dial.
type DialOptions struct {
	ConnectTimeout time.Duration
	TLSConfig      *tls.Config
	WebSocketPath  string
	DecodeOptions  packet.DecodeOptions
}

// DialOption mutates DialOptions.
type DialOption func(*DialOptions)

// WithConnectTimeout bounds how long Dial waits for the underlying
// handshake (TCP connect, TLS handshake, or WebSocket upgrade).
func WithConnectTimeout(d time.Duration) DialOption {
	return func(o *DialOptions) { o.ConnectTimeout = d }
}

// WithTLSConfig supplies the TLS configuration used for mqtts:// and
// wss:// schemes. A nil config uses the platform defaults.
func WithTLSConfig(cfg *tls.Config) DialOption {
	return func(o *DialOptions) { o.TLSConfig = cfg }
}

// WithWebSocketPath overrides the request path used for ws:// and
// wss:// upgrades (default "/mqtt").
func WithWebSocketPath(path string) DialOption {
	return func(o *DialOptions) { o.WebSocketPath = path }
}

// WithPublishMode selects how the connection's Transformer surfaces
// decoded PUBLISH payloads (see packet.PublishPayloadMode).
func WithPublishMode(mode packet.PublishPayloadMode) DialOption {
	return func(o *DialOptions) { o.DecodeOptions.PublishMode = mode }
}

// Dial connects to rawURL, whose scheme selects the transport: tcp://
// and mqtt:// for plain TCP (TCP_NODELAY on), mqtts:// for TLS, ws://
// and wss:// for WebSocket (subprotocol "mqtt", binary frames).
func Dial(ctx context.Context, rawURL string, opts ...DialOption) (Conn, error) {
	o := DialOptions{
		ConnectTimeout: 10 * time.Second,
		WebSocketPath:  "/mqtt",
	}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse address: %w", err)
	}

	switch u.Scheme {
	case "tcp", "mqtt":
		return dialTCP(ctx, u, o, false)
	case "mqtts", "ssl", "tls":
		return dialTCP(ctx, u, o, true)
	case "ws", "wss":
		return dialWebSocket(ctx, u, o)
	default:
		return nil, fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
}

func hostWithDefaultPort(u *url.URL, defaultPort int) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), fmt.Sprintf("%d", defaultPort))
}

func dialTCP(ctx context.Context, u *url.URL, o DialOptions, useTLS bool) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
	defer cancel()

	var conn net.Conn
	var err error
	if useTLS {
		host := hostWithDefaultPort(u, DefaultTLSPort)
		cfg := o.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: cfg}
		conn, err = dialer.DialContext(dialCtx, "tcp", host)
	} else {
		host := hostWithDefaultPort(u, DefaultTCPPort)
		dialer := &net.Dialer{}
		conn, err = dialer.DialContext(dialCtx, "tcp", host)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: dial: %w", err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	byteConn := &streamConn{conn: conn}
	return newConn(byteConn, o.DecodeOptions), nil
}

func dialWebSocket(ctx context.Context, u *url.URL, o DialOptions) (Conn, error) {
	if u.Path == "" {
		u.Path = o.WebSocketPath
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: o.ConnectTimeout,
		TLSClientConfig:  o.TLSConfig,
		Subprotocols:     []string{"mqtt"},
	}

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket dial: %w", err)
	}

	return newConn(&wsConn{ws: ws}, o.DecodeOptions), nil
}

// byteStream abstracts the two concrete transports (raw socket,
// WebSocket message framing) behind one read/write/close surface so
// conn can stay transport-agnostic.
type byteStream interface {
	// readFrame blocks for the next chunk of bytes. TCP streams return
	// arbitrary-sized reads; WebSocket streams return one message per
	// call (already frame-delimited by the WS layer).
	readFrame() ([]byte, error)
	write(data []byte) error
	close() error
}

type streamConn struct {
	conn net.Conn
	buf  [readBufferSize]byte
}

func (s *streamConn) readFrame() ([]byte, error) {
	n, err := s.conn.Read(s.buf[:])
	if n > 0 {
		out := make([]byte, n)
		copy(out, s.buf[:n])
		return out, err
	}
	return nil, err
}

func (s *streamConn) write(data []byte) error {
	_, err := s.conn.Write(data)
	return err
}

func (s *streamConn) close() error { return s.conn.Close() }

type wsConn struct {
	ws *websocket.Conn
}

func (w *wsConn) readFrame() ([]byte, error) {
	_, data, err := w.ws.ReadMessage()
	return data, err
}

func (w *wsConn) write(data []byte) error {
	return w.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (w *wsConn) close() error { return w.ws.Close() }

// conn drives a byteStream's reads through a transform.Transformer and
// fans decoded packets out on a channel, satisfying Conn.
type conn struct {
	stream  byteStream
	decOpts packet.DecodeOptions
	packets chan packet.Packet

	closeOnce sync.Once
	closed    chan struct{}

	writeMu sync.Mutex

	mu  sync.Mutex
	err error
}

func newConn(stream byteStream, decOpts packet.DecodeOptions) *conn {
	c := &conn{
		stream:  stream,
		decOpts: decOpts,
		packets: make(chan packet.Packet, 16),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *conn) readLoop() {
	defer close(c.packets)

	tr := transform.NewWithDecodeOptions(c.decOpts)
	for {
		chunk, err := c.stream.readFrame()
		if len(chunk) > 0 {
			packets, decodeErr := tr.Feed(chunk)
			for _, p := range packets {
				select {
				case c.packets <- p:
				case <-c.closed:
					return
				}
			}
			if decodeErr != nil {
				c.fail(decodeErr)
				return
			}
		}
		if err != nil {
			c.fail(err)
			return
		}
	}
}

func (c *conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	_ = c.Close()
}

func (c *conn) Packets() <-chan packet.Packet { return c.packets }

func (c *conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *conn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.stream.write(data); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.stream.close()
	})
	return err
}
