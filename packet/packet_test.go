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

package packet

import (
	"encoding/hex"
	"testing"

	"github.com/sclera-iot/mqtt5/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectMinimalByteExact(t *testing.T) {
	p := &ConnectPacket{CleanStart: true}
	out, err := p.Encode()
	require.NoError(t, err)
	assert.Equal(t, "100d00044d51545405020000000000", hex.EncodeToString(out))

	decoded, err := Decode(out)
	require.NoError(t, err)
	got, ok := decoded.(*ConnectPacket)
	require.True(t, ok)
	assert.Equal(t, true, got.CleanStart)
	assert.Equal(t, uint16(0), got.KeepAlive)
	assert.Equal(t, "", got.ClientID)
}

func TestPingSingletons(t *testing.T) {
	out, err := PingReq.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc0, 0x00}, out)

	out, err = PingResp.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xd0, 0x00}, out)
}

func TestDisconnectShortAndLongForm(t *testing.T) {
	out, err := (&DisconnectPacket{}).Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe0, 0x00}, out)

	out, err = (&DisconnectPacket{ReasonCode: ReasonNormalDisconnection}).Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe0, 0x00}, out)

	out, err = (&DisconnectPacket{ReasonCode: ReasonServerShuttingDown}).Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe0, 0x02, 0x8b, 0x00}, out)
}

func TestPublishQoS0TextPayloadRetain(t *testing.T) {
	p := NewTextPublish("a/b", "hi", QoS0, true)
	out, err := p.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(0x31), out[0])

	decoded, err := Decode(out)
	require.NoError(t, err)
	got, ok := decoded.(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, QoS0, got.QoS)
	assert.False(t, got.Duplicate)
	assert.True(t, got.Retain)
	assert.Equal(t, "a/b", got.Topic)
	assert.True(t, got.IsText)
	assert.Equal(t, "hi", got.PayloadText)
}

func TestSubscribeFlagsAndOptionsByte(t *testing.T) {
	p := &SubscribePacket{
		PacketID: 1,
		Subscriptions: []Subscription{
			{Filter: "#", RetainAsPublished: true},
		},
	}
	out, err := p.Encode()
	require.NoError(t, err)

	// Fixed header flags nibble is the low 4 bits of byte 0.
	assert.Equal(t, byte(0x02), out[0]&0x0F)
	assert.Equal(t, byte(0x08), out[len(out)-1])

	decoded, err := Decode(out)
	require.NoError(t, err)
	got, ok := decoded.(*SubscribePacket)
	require.True(t, ok)
	require.Len(t, got.Subscriptions, 1)
	assert.Equal(t, "#", got.Subscriptions[0].Filter)
	assert.True(t, got.Subscriptions[0].RetainAsPublished)
}

func TestSubAckRoundTrip(t *testing.T) {
	p := &SubAckPacket{PacketID: 1, ReasonCodes: []ReasonCode{ReasonGrantedQoS0}}
	out, err := p.Encode()
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	got, ok := decoded.(*SubAckPacket)
	require.True(t, ok)
	assert.Equal(t, PacketIdentifier(1), got.PacketID)
	assert.Equal(t, []ReasonCode{ReasonGrantedQoS0}, got.ReasonCodes)
}

func TestAckFamilyRoundTrip(t *testing.T) {
	for _, tc := range []ControlPacketType{TypePubAck, TypePubRec, TypePubRel, TypePubComp} {
		p := &AckPacket{PacketType: PacketIDAckType(tc), PacketID: 42, ReasonCode: ReasonSuccess}
		out, err := p.Encode()
		require.NoError(t, err)

		decoded, err := Decode(out)
		require.NoError(t, err)
		got, ok := decoded.(*AckPacket)
		require.True(t, ok)
		assert.Equal(t, PacketIdentifier(42), got.PacketID)
		assert.Equal(t, ReasonSuccess, got.ReasonCode)
		assert.Equal(t, tc, got.Type())
	}
}

func TestEncodeRejectsEmptySubscribeList(t *testing.T) {
	_, err := (&SubscribePacket{PacketID: 1}).Encode()
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestEncodeRejectsPublishIdentifierMismatch(t *testing.T) {
	_, err := (&PublishPacket{Topic: "a", QoS: QoS0, PacketID: 1}).Encode()
	assert.ErrorIs(t, err, ErrPolicyViolation)

	_, err = (&PublishPacket{Topic: "a", QoS: QoS1}).Encode()
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestPropertyLastWinsOnDuplicate(t *testing.T) {
	// A hand-built property block with a duplicate
	// Session_Expiry_Interval overwrites rather than erroring on
	// decode (Open Question (a): last-wins).
	body := wire.NewWriter()
	body.WriteByte(byte(PropSessionExpiryInterval))
	body.Uint32(5)
	body.WriteByte(byte(PropSessionExpiryInterval))
	body.Uint32(9)

	outer := wire.NewWriter()
	require.NoError(t, outer.VarInt(body.Len()))
	_, err := outer.Write(body.Bytes())
	require.NoError(t, err)

	decoded, err := decodeProperties(wire.NewReader(outer.Bytes()), contextGeneric)
	require.NoError(t, err)
	require.NotNil(t, decoded.SessionExpiryInterval)
	assert.Equal(t, uint32(9), *decoded.SessionExpiryInterval)
}

func TestValidateTopicFilterPermitsBareSlash(t *testing.T) {
	assert.NoError(t, ValidateTopicFilter("/"))
}

func TestValidateTopicFilterRejectsMidLevelHash(t *testing.T) {
	err := ValidateTopicFilter("a/#/b")
	assert.Error(t, err)
}
