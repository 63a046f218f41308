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
	"errors"
	"fmt"

	"github.com/sclera-iot/mqtt5/packet"
)

var (
	// ErrAlreadyConnected is returned by Connect when the client is
	// already connected or mid-handshake.
	ErrAlreadyConnected = errors.New("mqtt: already connected")
	// ErrNotConnected is returned by Publish/Subscribe/Unsubscribe/Auth
	// when no session is active.
	ErrNotConnected = errors.New("mqtt: not connected")
	// ErrClosed is returned by Connect when called after Close.
	ErrClosed = errors.New("mqtt: client closed")
	// ErrTimeout is returned by Token.WaitTimeout on expiry.
	ErrTimeout = errors.New("mqtt: operation timed out")
	// ErrNoServers is returned by Connect when no broker address was
	// configured.
	ErrNoServers = errors.New("mqtt: no server address configured")

	// ErrClosedLocally is ConnectionClosed.Reason when the application
	// called Close and the session tore itself down deliberately.
	ErrClosedLocally = errors.New("mqtt: connection closed locally")
	// ErrClosedRemotely is ConnectionClosed.Reason when the broker
	// closed the transport or a read from it failed.
	ErrClosedRemotely = errors.New("mqtt: connection closed remotely")
	// ErrPingTimeout is ConnectionClosed.Reason when no PingResp arrived
	// within 1.5x the keepalive interval. A PingFailed event is also
	// emitted before the session tears down.
	ErrPingTimeout = errors.New("mqtt: keepalive timeout, no pingresp received")
)

// ConnectError reports a failed CONNECT/ConnAck exchange, carrying the
// broker's reason code when one was returned.
type ConnectError struct {
	ReasonCode packet.ReasonCode
	Err        error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mqtt: connect failed: %s", e.Err)
	}
	return fmt.Sprintf("mqtt: connect refused: %s", e.ReasonCode)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// DisconnectError reports a server-initiated DISCONNECT.
type DisconnectError struct {
	ReasonCode packet.ReasonCode
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("mqtt: disconnected by server: %s", e.ReasonCode)
}
