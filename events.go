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

import "github.com/sclera-iot/mqtt5/packet"

// Event is the single sum type surfaced on Client.Events(): either a
// wire packet (Kind in 1..15, matching packet.ControlPacketType) or a
// lifecycle event (Kind >= 100). The engine consumes some packets
// instead of forwarding them: PingResp (keepalive), SubAck and UnsubAck
// (they resolve pending Tokens, or are logged and dropped when none
// matches), and a PubAck/PubComp that completes a pending PublishToken.
type Event interface {
	Kind() int
}

// customPacketBase is the range reserved for engine-internal events,
// kept well clear of the 1..15 wire packet discriminants.
const customPacketBase = 100

const (
	kindConnectionClosed = customPacketBase + iota
	kindFailedConnectionAttempt
	kindPingFailed
	kindError
)

// WirePacketEvent wraps a decoded protocol packet handed to the
// application unmodified (see Event for the packets the engine consumes
// instead).
type WirePacketEvent struct {
	packet.Packet
}

func (e WirePacketEvent) Kind() int { return int(e.Packet.Type()) }

// ConnectionClosed fires once the transport for the current session
// has been torn down, whether cleanly or not. Reason is one of
// ErrClosedLocally, ErrClosedRemotely or ErrPingTimeout (wrapped with
// more detail where available); test with errors.Is.
type ConnectionClosed struct {
	Reason error
}

func (ConnectionClosed) Kind() int { return kindConnectionClosed }

// FailedConnectionAttempt fires when a reconnect attempt's Connect/
// ConnAck handshake did not complete.
type FailedConnectionAttempt struct {
	Reason error
}

func (FailedConnectionAttempt) Kind() int { return kindFailedConnectionAttempt }

// PingFailed fires when no PingResp arrived within 1.5x the
// negotiated keepalive.
type PingFailed struct{}

func (PingFailed) Kind() int { return kindPingFailed }

// Error is the event type for conditions that do not map to a specific
// lifecycle event. The client itself never sends one: a decode failure
// out of the reassembly transformer ends the session and is reported
// as the Reason of ConnectionClosed.
type Error struct {
	Message string
}

func (Error) Kind() int { return kindError }
