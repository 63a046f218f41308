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

package transport

import (
	"context"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/sclera-iot/mqtt5/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialTCPRoundTripsPackets(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		srv, err := ln.Accept()
		if err != nil {
			return
		}
		defer srv.Close()

		connAck, _ := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
		srv.Write(connAck)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, "tcp://"+ln.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	select {
	case p := <-c.Packets():
		require.NotNil(t, p)
		assert.Equal(t, packet.TypeConnAck, p.Type())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for packet")
	}

	<-serverDone
}

func TestDialRejectsUnsupportedScheme(t *testing.T) {
	_, err := Dial(context.Background(), "ftp://example.com")
	assert.Error(t, err)
}

func TestHostWithDefaultPort(t *testing.T) {
	u, err := url.Parse("tcp://broker.example.com")
	require.NoError(t, err)
	assert.Equal(t, "broker.example.com:1883", hostWithDefaultPort(u, DefaultTCPPort))

	u, err = url.Parse("tcp://broker.example.com:9999")
	require.NoError(t, err)
	assert.Equal(t, "broker.example.com:9999", hostWithDefaultPort(u, DefaultTCPPort))
}
