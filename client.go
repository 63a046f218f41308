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

// Package mqtt implements a resilient MQTT 5.0 client session: connect,
// authenticate, keep the connection alive, multiplex request/response
// pairs by packet identifier, reconnect on failure, and expose a
// single ordered stream of inbound events to the application.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sclera-iot/mqtt5/idpool"
	"github.com/sclera-iot/mqtt5/packet"
	"github.com/sclera-iot/mqtt5/transport"
)

// connState is the client's coarse lifecycle state.
type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// Client is a single MQTT 5.0 session against one broker address. The
// zero value is not usable; construct with NewClient.
type Client struct {
	address         string
	connectTemplate *packet.ConnectPacket
	opts            *ClientOptions
	logger          *slog.Logger
	metrics         *Metrics

	idPool *idpool.Pool

	events chan Event

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup

	connMu sync.Mutex
	conn   transport.Conn

	pendingMu    sync.Mutex
	pendingSub   map[packet.PacketIdentifier]*SubscribeToken
	pendingUnsub map[packet.PacketIdentifier]*UnsubscribeToken
	pendingPub   map[packet.PacketIdentifier]*PublishToken

	stateMu sync.Mutex
	state   connState

	assignedClientID        string
	negotiatedKeepAlive     time.Duration
	negotiatedMaxPacketSize uint32

	connectOnce  sync.Once
	firstAttempt chan error
}

// NewClient constructs a Client targeting address (a tcp://, mqtt://,
// mqtts://, ws:// or wss:// URL) with the given CONNECT template. The
// client does not dial until Connect is called.
func NewClient(address string, connect *packet.ConnectPacket, opts ...Option) *Client {
	options := NewClientOptions()
	for _, opt := range opts {
		opt(options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if connect.ClientID == "" && options.ClientIDGenerator != nil {
		connect.ClientID = options.ClientIDGenerator()
	}
	connect.CleanStart = options.CleanStart

	return &Client{
		address:         address,
		connectTemplate: connect,
		opts:            options,
		logger:          logger,
		metrics:         NewMetrics(),
		idPool:          idpool.New(),
		events:          make(chan Event, options.EventBufferSize),
		closed:          make(chan struct{}),
		pendingSub:      make(map[packet.PacketIdentifier]*SubscribeToken),
		pendingUnsub:    make(map[packet.PacketIdentifier]*UnsubscribeToken),
		pendingPub:      make(map[packet.PacketIdentifier]*PublishToken),
		firstAttempt:    make(chan error, 1),
	}
}

// Events returns the client's single ordered stream of inbound
// protocol packets and lifecycle events. Closed once Close has fully
// torn the client down.
func (c *Client) Events() <-chan Event { return c.events }

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics { return c.metrics }

func (c *Client) getState() connState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Client) setState(s connState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// Connect starts the reconnect supervisor and blocks until the first
// connection attempt resolves: either ConnAck arrived (nil error) or
// the attempt definitively failed (a non-nil error). Subsequent
// reconnects after the first happen in the background and are
// reported only through Events, never through a second Connect call.
func (c *Client) Connect(ctx context.Context) error {
	if c.getState() == stateClosed {
		return ErrClosed
	}
	if c.getState() != stateDisconnected {
		return ErrAlreadyConnected
	}
	if c.address == "" {
		return ErrNoServers
	}

	c.setState(stateConnecting)
	c.connectOnce.Do(func() {
		c.wg.Add(1)
		go c.supervise()
	})

	select {
	case err := <-c.firstAttempt:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// supervise owns the reconnect loop: acquire a transport, run one
// connected session to completion, then either stop (ReconnectTime==0
// after the first failure) or sleep and retry.
func (c *Client) supervise() {
	defer c.wg.Done()

	first := true
	for {
		select {
		case <-c.closed:
			return
		default:
		}

		c.metrics.ConnectionAttempts.Add(1)
		if !first {
			c.metrics.ReconnectAttempts.Add(1)
		}

		err := c.runSession(first)

		if first {
			first = false
			if err != nil {
				c.firstAttempt <- err
			}
		}

		if err != nil {
			c.events <- FailedConnectionAttempt{Reason: err}
		}

		if c.getState() == stateClosed {
			return
		}

		if c.opts.ReconnectTime <= 0 {
			c.setState(stateDisconnected)
			return
		}

		if err != nil {
			c.logger.Warn("reconnection failed", "error", err, "retry_in", c.opts.ReconnectTime)
		}

		select {
		case <-c.closed:
			return
		case <-time.After(c.opts.ReconnectTime):
		}
	}
}

// runSession dials, completes the Connect/ConnAck handshake, and then
// drives the connection until it ends. A non-nil error means the dial
// or handshake failed; once the handshake has succeeded it returns nil,
// and the reason the session ended is reported as a ConnectionClosed
// event. When first is set, a successful handshake is reported on
// firstAttempt as soon as the ConnAck is accepted.
func (c *Client) runSession(first bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ConnectTimeout)
	defer cancel()

	tcon, err := transport.Dial(ctx, c.address,
		transport.WithConnectTimeout(c.opts.ConnectTimeout),
		transport.WithTLSConfig(c.opts.TLSConfig),
		transport.WithWebSocketPath(c.opts.WebSocketPath),
		transport.WithPublishMode(c.opts.PublishMode),
	)
	if err != nil {
		c.logger.Warn("failed to connect to server", "address", c.address, "error", err)
		return fmt.Errorf("mqtt: dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = tcon
	c.connMu.Unlock()
	defer func() {
		tcon.Close()
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
	}()

	connectPacket := *c.connectTemplate
	if c.assignedClientID != "" {
		connectPacket.ClientID = c.assignedClientID
	}

	frame, err := connectPacket.Encode()
	if err != nil {
		return fmt.Errorf("mqtt: encode connect: %w", err)
	}
	if err := tcon.Send(frame); err != nil {
		return fmt.Errorf("mqtt: send connect: %w", err)
	}
	c.metrics.PacketsSent.Add(1)

	connAck, err := c.awaitConnAck(ctx, tcon)
	if err != nil {
		return err
	}
	c.events <- WirePacketEvent{Packet: connAck}
	if connAck.ReasonCode.IsError() {
		return &ConnectError{ReasonCode: connAck.ReasonCode}
	}

	c.applyConnAck(&connectPacket, connAck)
	c.metrics.ActiveConnections.Add(1)
	defer c.metrics.ActiveConnections.Add(-1)
	c.setState(stateConnected)
	if first {
		c.firstAttempt <- nil
	}
	c.logger.Info("connected to broker",
		"address", c.address,
		"client_id", connectPacket.ClientID,
		"session_present", connAck.SessionPresent)

	reason := c.drive(tcon)
	c.setState(stateConnecting)
	c.failPendingOnDisconnect()
	c.logger.Info("connection lost", "error", reason)
	c.events <- ConnectionClosed{Reason: reason}
	return nil
}

func (c *Client) awaitConnAck(ctx context.Context, tcon transport.Conn) (*packet.ConnAckPacket, error) {
	select {
	case p, ok := <-tcon.Packets():
		if !ok {
			if err := tcon.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("mqtt: connection closed before connack")
		}
		connAck, ok := p.(*packet.ConnAckPacket)
		if !ok {
			return nil, fmt.Errorf("mqtt: expected connack, got %s", p.Type())
		}
		return connAck, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("mqtt: timed out awaiting connack: %w", ctx.Err())
	}
}

func (c *Client) applyConnAck(sent *packet.ConnectPacket, connAck *packet.ConnAckPacket) {
	if connAck.Properties != nil && connAck.Properties.AssignedClientID != "" {
		c.assignedClientID = connAck.Properties.AssignedClientID
	} else {
		c.assignedClientID = sent.ClientID
	}

	keepAlive := time.Duration(sent.KeepAlive) * time.Second
	if connAck.Properties != nil && connAck.Properties.ServerKeepAlive != nil {
		keepAlive = time.Duration(*connAck.Properties.ServerKeepAlive) * time.Second
	}
	if keepAlive <= 0 {
		keepAlive = c.opts.KeepAliveFloor
	}
	c.negotiatedKeepAlive = keepAlive

	maxSize := uint32(0)
	if connAck.Properties != nil && connAck.Properties.MaximumPacketSize != nil {
		maxSize = *connAck.Properties.MaximumPacketSize
	}
	c.negotiatedMaxPacketSize = maxSize
}

// drive runs the connected session's event loop: reader dispatch,
// keepalive ticks, and the close signal, composed as a first-completes
// select exactly as the teacher's supervisor fiber does.
func (c *Client) drive(tcon transport.Conn) error {
	keepAlive := c.negotiatedKeepAlive
	if keepAlive <= 0 {
		keepAlive = c.opts.KeepAliveFloor
	}

	pingInterval := keepAlive - 100*time.Millisecond
	if pingInterval <= 0 {
		pingInterval = keepAlive
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	pingTimeout := time.Duration(float64(keepAlive) * 1.5)
	var pingOutstanding bool
	pingDeadline := time.NewTimer(pingTimeout)
	pingDeadline.Stop()
	defer pingDeadline.Stop()

	for {
		select {
		case <-c.closed:
			c.sendDisconnect(tcon, packet.ReasonNormalDisconnection)
			return ErrClosedLocally

		case <-ticker.C:
			if err := c.sendPing(tcon); err != nil {
				return fmt.Errorf("%w: %v", ErrClosedRemotely, err)
			}
			if !pingOutstanding {
				pingOutstanding = true
				pingDeadline.Reset(pingTimeout)
			}

		case <-pingDeadline.C:
			c.events <- PingFailed{}
			c.metrics.PingFailures.Add(1)
			return ErrPingTimeout

		case p, ok := <-tcon.Packets():
			if !ok {
				if err := tcon.Err(); err != nil {
					return fmt.Errorf("%w: %v", ErrClosedRemotely, err)
				}
				return ErrClosedRemotely
			}
			c.metrics.PacketsReceived.Add(1)
			if p.Type() == packet.TypePingResp {
				pingOutstanding = false
				pingDeadline.Stop()
				continue
			}
			c.dispatch(p)
		}
	}
}

func (c *Client) sendPing(tcon transport.Conn) error {
	frame, err := packet.PingReq.Encode()
	if err != nil {
		return err
	}
	if err := tcon.Send(frame); err != nil {
		return err
	}
	c.metrics.PacketsSent.Add(1)
	return nil
}

// dispatch resolves SubAck/UnsubAck and terminal PubAck/PubComp
// acknowledgements against pending Tokens and forwards every other
// packet (Publish, PubRec, PubRel, and a PubAck/PubComp with no
// pending Token) to the application event stream. A SubAck/UnsubAck
// with no pending Token is logged and dropped.
func (c *Client) dispatch(p packet.Packet) {
	switch v := p.(type) {
	case *packet.SubAckPacket:
		c.resolveSubAck(v)
	case *packet.UnsubAckPacket:
		c.resolveUnsubAck(v)
	case *packet.AckPacket:
		c.resolveAck(v)
	default:
		if v.Type() == packet.TypePublish {
			c.metrics.MessagesReceived.Add(1)
		}
		c.events <- WirePacketEvent{Packet: p}
	}
}

func (c *Client) resolveSubAck(v *packet.SubAckPacket) {
	c.pendingMu.Lock()
	tok, ok := c.pendingSub[v.PacketID]
	if ok {
		delete(c.pendingSub, v.PacketID)
	}
	c.pendingMu.Unlock()

	c.idPool.Release(uint16(v.PacketID))
	if !ok {
		c.logger.Warn("suback for unknown packet identifier", "packet_id", v.PacketID)
		return
	}
	tok.Result = v
	tok.complete(nil)
}

func (c *Client) resolveUnsubAck(v *packet.UnsubAckPacket) {
	c.pendingMu.Lock()
	tok, ok := c.pendingUnsub[v.PacketID]
	if ok {
		delete(c.pendingUnsub, v.PacketID)
	}
	c.pendingMu.Unlock()

	c.idPool.Release(uint16(v.PacketID))
	if !ok {
		c.logger.Warn("unsuback for unknown packet identifier", "packet_id", v.PacketID)
		return
	}
	tok.Result = v
	tok.complete(nil)
}

// resolveAck completes a pending PublishToken on the terminal
// acknowledgement for its QoS (PubAck at QoS 1, PubComp at QoS 2). The
// engine does not drive QoS 1/2 retransmission; it only surfaces the
// result of whatever the broker sent.
func (c *Client) resolveAck(v *packet.AckPacket) {
	terminal := v.Type() == packet.TypePubAck || v.Type() == packet.TypePubComp
	if !terminal {
		c.events <- WirePacketEvent{Packet: v}
		return
	}

	c.pendingMu.Lock()
	tok, ok := c.pendingPub[v.PacketID]
	if ok {
		delete(c.pendingPub, v.PacketID)
	}
	c.pendingMu.Unlock()

	c.idPool.Release(uint16(v.PacketID))
	if !ok {
		c.events <- WirePacketEvent{Packet: v}
		return
	}
	if v.ReasonCode.IsError() {
		tok.complete(fmt.Errorf("mqtt: publish rejected: %s", v.ReasonCode))
	} else {
		tok.complete(nil)
	}
}

// failPendingOnDisconnect rejects every outstanding Token: a dropped
// connection can never complete them, matching the requirement that
// pending subscribe/unsubscribe awaits are rejected on every
// disconnection.
func (c *Client) failPendingOnDisconnect() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for id, tok := range c.pendingSub {
		tok.complete(ErrNotConnected)
		delete(c.pendingSub, id)
		c.idPool.Release(uint16(id))
	}
	for id, tok := range c.pendingUnsub {
		tok.complete(ErrNotConnected)
		delete(c.pendingUnsub, id)
		c.idPool.Release(uint16(id))
	}
	for id, tok := range c.pendingPub {
		tok.complete(ErrNotConnected)
		delete(c.pendingPub, id)
		c.idPool.Release(uint16(id))
	}
}

func (c *Client) sendDisconnect(tcon transport.Conn, reason packet.ReasonCode) {
	frame, err := (&packet.DisconnectPacket{ReasonCode: reason}).Encode()
	if err != nil {
		return
	}
	_ = tcon.Send(frame)
}

// activeConn returns the current transport, or nil if disconnected.
func (c *Client) activeConn() transport.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

// Publish sends data to topic at the given QoS. At QoS 0 the returned
// Token is already complete; at QoS 1/2 it completes when the
// broker's PubAck/PubComp arrives, or with ErrNotConnected if the
// session drops first.
func (c *Client) Publish(topic string, data []byte, qos packet.QoS, retain bool) (*PublishToken, error) {
	tcon := c.activeConn()
	if tcon == nil {
		return nil, ErrNotConnected
	}

	tok := newPublishToken()
	p := packet.NewBinaryPublish(topic, data, qos, retain)

	if qos > packet.QoS0 {
		id, err := c.idPool.Acquire()
		if err != nil {
			return nil, err
		}
		p.PacketID = packet.PacketIdentifier(id)
		tok.PacketID = p.PacketID

		c.pendingMu.Lock()
		c.pendingPub[p.PacketID] = tok
		c.pendingMu.Unlock()
	}

	frame, err := p.Encode()
	if err != nil {
		if qos > packet.QoS0 {
			c.pendingMu.Lock()
			delete(c.pendingPub, p.PacketID)
			c.pendingMu.Unlock()
			c.idPool.Release(uint16(p.PacketID))
		}
		return nil, err
	}

	if err := tcon.Send(frame); err != nil {
		if qos > packet.QoS0 {
			c.pendingMu.Lock()
			delete(c.pendingPub, p.PacketID)
			c.pendingMu.Unlock()
			c.idPool.Release(uint16(p.PacketID))
		}
		return nil, err
	}
	c.metrics.PacketsSent.Add(1)
	c.metrics.MessagesSent.Add(1)

	if qos == packet.QoS0 {
		tok.complete(nil)
	}
	return tok, nil
}

// Subscribe requests delivery from one or more topic filters. The
// returned Token completes when the matching SubAck arrives.
func (c *Client) Subscribe(subs []packet.Subscription) (*SubscribeToken, error) {
	tcon := c.activeConn()
	if tcon == nil {
		return nil, ErrNotConnected
	}

	id, err := c.idPool.Acquire()
	if err != nil {
		return nil, err
	}

	p := &packet.SubscribePacket{
		PacketID:      packet.PacketIdentifier(id),
		Subscriptions: subs,
	}

	tok := newSubscribeToken()
	c.pendingMu.Lock()
	c.pendingSub[p.PacketID] = tok
	c.pendingMu.Unlock()

	frame, err := p.Encode()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pendingSub, p.PacketID)
		c.pendingMu.Unlock()
		c.idPool.Release(id)
		return nil, err
	}

	if err := tcon.Send(frame); err != nil {
		c.pendingMu.Lock()
		delete(c.pendingSub, p.PacketID)
		c.pendingMu.Unlock()
		c.idPool.Release(id)
		return nil, err
	}
	c.metrics.PacketsSent.Add(1)

	return tok, nil
}

// Unsubscribe requests removal of one or more topic filters. The
// returned Token completes when the matching UnsubAck arrives.
func (c *Client) Unsubscribe(filters []string) (*UnsubscribeToken, error) {
	tcon := c.activeConn()
	if tcon == nil {
		return nil, ErrNotConnected
	}

	id, err := c.idPool.Acquire()
	if err != nil {
		return nil, err
	}

	p := &packet.UnsubscribePacket{
		PacketID: packet.PacketIdentifier(id),
		Filters:  filters,
	}

	tok := newUnsubscribeToken()
	c.pendingMu.Lock()
	c.pendingUnsub[p.PacketID] = tok
	c.pendingMu.Unlock()

	frame, err := p.Encode()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pendingUnsub, p.PacketID)
		c.pendingMu.Unlock()
		c.idPool.Release(id)
		return nil, err
	}

	if err := tcon.Send(frame); err != nil {
		c.pendingMu.Lock()
		delete(c.pendingUnsub, p.PacketID)
		c.pendingMu.Unlock()
		c.idPool.Release(id)
		return nil, err
	}
	c.metrics.PacketsSent.Add(1)

	return tok, nil
}

// Auth writes an Auth packet for an enhanced-authentication round trip
// initiated by the broker.
func (c *Client) Auth(p *packet.AuthPacket) error {
	tcon := c.activeConn()
	if tcon == nil {
		return ErrNotConnected
	}

	frame, err := p.Encode()
	if err != nil {
		return err
	}
	if err := tcon.Send(frame); err != nil {
		return err
	}
	c.metrics.PacketsSent.Add(1)
	return nil
}

// Close marks the client inactive, best-effort-sends a Disconnect,
// signals the supervisor to stop, waits for it to finish, and closes
// the event stream. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.setState(stateClosed)
		close(c.closed)
		c.wg.Wait()
		c.setState(stateClosed)
		close(c.events)
		c.logger.Info("disconnected from broker", "address", c.address)
	})
	return nil
}
