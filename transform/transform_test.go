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

package transform

import (
	"testing"

	"github.com/sclera-iot/mqtt5/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedWholeBufferAtOnce(t *testing.T) {
	connack, err := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
	require.NoError(t, err)
	publish, err := packet.NewTextPublish("a/b", "hi", packet.QoS0, true).Encode()
	require.NoError(t, err)

	tr := New()
	packets, err := tr.Feed(append(append([]byte{}, connack...), publish...))
	require.NoError(t, err)
	require.Len(t, packets, 2)
	assert.Equal(t, packet.TypeConnAck, packets[0].Type())
	assert.Equal(t, packet.TypePublish, packets[1].Type())
	assert.Empty(t, tr.carry)
}

func TestFeedFragmentationInvariance(t *testing.T) {
	connack, err := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
	require.NoError(t, err)
	publish, err := packet.NewTextPublish("a/b", "hi", packet.QoS0, true).Encode()
	require.NoError(t, err)
	whole := append(append([]byte{}, connack...), publish...)

	tr := New()
	var got []packet.Packet
	for i := 0; i < len(whole); i++ {
		chunk := whole[i : i+1]
		batch, err := tr.Feed(chunk)
		require.NoError(t, err)
		got = append(got, batch...)
	}

	require.Len(t, got, 2)
	assert.Equal(t, packet.TypeConnAck, got[0].Type())
	assert.Equal(t, packet.TypePublish, got[1].Type())
	assert.Empty(t, tr.carry)
}

func TestFeedArbitraryChunkSizes(t *testing.T) {
	connack, err := (&packet.ConnAckPacket{ReasonCode: packet.ReasonSuccess}).Encode()
	require.NoError(t, err)
	publish, err := packet.NewTextPublish("a/b", "hi", packet.QoS0, true).Encode()
	require.NoError(t, err)
	whole := append(append([]byte{}, connack...), publish...)

	chunkSizes := []int{3, 5, 1, 7, 11}
	tr := New()
	var got []packet.Packet
	pos := 0
	i := 0
	for pos < len(whole) {
		size := chunkSizes[i%len(chunkSizes)]
		i++
		end := pos + size
		if end > len(whole) {
			end = len(whole)
		}
		batch, err := tr.Feed(whole[pos:end])
		require.NoError(t, err)
		got = append(got, batch...)
		pos = end
	}

	require.Len(t, got, 2)
	assert.Equal(t, packet.TypeConnAck, got[0].Type())
	assert.Equal(t, packet.TypePublish, got[1].Type())
}

func TestFeedAppliesDecodeOptions(t *testing.T) {
	publish, err := packet.NewBinaryPublish("a/b", []byte("hi"), packet.QoS0, false).Encode()
	require.NoError(t, err)

	tr := NewWithDecodeOptions(packet.DecodeOptions{PublishMode: packet.UTF8String})
	packets, err := tr.Feed(publish)
	require.NoError(t, err)
	require.Len(t, packets, 1)

	p := packets[0].(*packet.PublishPacket)
	assert.True(t, p.IsText)
	assert.Equal(t, "hi", p.PayloadText)
}

func TestResetClearsCarry(t *testing.T) {
	tr := New()
	_, err := tr.Feed([]byte{0x20}) // one byte of a ConnAck fixed header, incomplete
	require.NoError(t, err)
	assert.NotEmpty(t, tr.carry)

	tr.Reset()
	assert.Empty(t, tr.carry)
}
