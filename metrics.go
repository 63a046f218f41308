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

import "sync/atomic"

// Metrics holds atomic counters a caller can sample concurrently with
// the client's own goroutine; none of it gates behavior.
type Metrics struct {
	ConnectionAttempts atomic.Int64
	ReconnectAttempts  atomic.Int64
	ActiveConnections  atomic.Int64
	PacketsSent        atomic.Int64
	PacketsReceived    atomic.Int64
	MessagesSent       atomic.Int64
	MessagesReceived   atomic.Int64
	PingFailures       atomic.Int64
	ProtocolErrors     atomic.Int64
}

// NewMetrics returns a zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Snapshot is a point-in-time, non-atomic copy of Metrics suitable for
// logging or exposing over an introspection endpoint.
type Snapshot struct {
	ConnectionAttempts int64
	ReconnectAttempts  int64
	ActiveConnections  int64
	PacketsSent        int64
	PacketsReceived    int64
	MessagesSent       int64
	MessagesReceived   int64
	PingFailures       int64
	ProtocolErrors     int64
}

// Snapshot reads every counter once and returns the result.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ConnectionAttempts: m.ConnectionAttempts.Load(),
		ReconnectAttempts:  m.ReconnectAttempts.Load(),
		ActiveConnections:  m.ActiveConnections.Load(),
		PacketsSent:        m.PacketsSent.Load(),
		PacketsReceived:    m.PacketsReceived.Load(),
		MessagesSent:       m.MessagesSent.Load(),
		MessagesReceived:   m.MessagesReceived.Load(),
		PingFailures:       m.PingFailures.Load(),
		ProtocolErrors:     m.ProtocolErrors.Load(),
	}
}
