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
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sclera-iot/mqtt5/packet"
)

const (
	// DefaultReconnectTime is the delay between reconnect attempts.
	DefaultReconnectTime = time.Second
	// DefaultConnectTimeout bounds how long Connect waits for ConnAck.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultKeepAliveFloor is used when neither side requested a
	// keepalive interval, so the engine never disables liveness
	// checking outright.
	DefaultKeepAliveFloor = 5 * time.Second
	// DefaultEventBufferSize bounds the inbound event channel.
	DefaultEventBufferSize = 64
)

// ClientOptions configures a Client. Use NewClientOptions for the
// documented defaults; construct with functional Options via NewClient
// rather than setting fields directly.
type ClientOptions struct {
	CleanStart bool

	ReconnectTime  time.Duration
	ConnectTimeout time.Duration
	KeepAliveFloor time.Duration

	PublishMode packet.PublishPayloadMode

	EventBufferSize int
	Logger          *slog.Logger

	// ClientIDGenerator fabricates a ClientID whenever the caller's
	// ConnectPacket omits one. Set it to nil to leave the id empty so
	// the broker assigns one.
	ClientIDGenerator func() string

	TLSConfig     *tls.Config
	WebSocketPath string
}

// NewClientOptions returns the documented defaults.
func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		CleanStart:        true,
		ReconnectTime:     DefaultReconnectTime,
		ConnectTimeout:    DefaultConnectTimeout,
		KeepAliveFloor:    DefaultKeepAliveFloor,
		EventBufferSize:   DefaultEventBufferSize,
		ClientIDGenerator: func() string { return uuid.NewString() },
		WebSocketPath:     "/mqtt",
	}
}

// Option mutates ClientOptions.
type Option func(*ClientOptions)

// WithCleanStart sets the CONNECT clean_start flag (default true).
func WithCleanStart(clean bool) Option {
	return func(o *ClientOptions) { o.CleanStart = clean }
}

// WithReconnectTime sets the delay between reconnect attempts. Zero
// disables automatic reconnection.
func WithReconnectTime(d time.Duration) Option {
	return func(o *ClientOptions) { o.ReconnectTime = d }
}

// WithConnectTimeout bounds how long Connect waits for ConnAck.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *ClientOptions) { o.ConnectTimeout = d }
}

// WithKeepAliveFloor sets the keepalive used when neither broker nor
// client requested one.
func WithKeepAliveFloor(d time.Duration) Option {
	return func(o *ClientOptions) { o.KeepAliveFloor = d }
}

// WithPublishDeserializeOptions selects how inbound Publish payloads
// surface to the application.
func WithPublishDeserializeOptions(mode packet.PublishPayloadMode) Option {
	return func(o *ClientOptions) { o.PublishMode = mode }
}

// WithEventBufferSize sets the inbound event channel's capacity.
func WithEventBufferSize(n int) Option {
	return func(o *ClientOptions) { o.EventBufferSize = n }
}

// WithLogger overrides the structured logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(o *ClientOptions) { o.Logger = logger }
}

// WithClientIDGenerator overrides how a missing ClientID is fabricated.
func WithClientIDGenerator(f func() string) Option {
	return func(o *ClientOptions) { o.ClientIDGenerator = f }
}

// WithTLSConfig supplies the TLS configuration for mqtts:// and wss://.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *ClientOptions) { o.TLSConfig = cfg }
}

// WithWebSocketPath overrides the ws://, wss:// request path.
func WithWebSocketPath(path string) Option {
	return func(o *ClientOptions) { o.WebSocketPath = path }
}
