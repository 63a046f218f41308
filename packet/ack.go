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

import "github.com/sclera-iot/mqtt5/wire"

// AckPacket is the shared shape of PUBACK, PUBREC, PUBREL and PUBCOMP:
// a packet identifier plus an optional reason code and properties,
// omitted entirely when the reason is Success and there are no
// properties to carry.
type AckPacket struct {
	PacketType PacketIDAckType
	PacketID   PacketIdentifier
	ReasonCode ReasonCode
	Properties *Properties
}

// PacketIDAckType narrows ControlPacketType to the four packet-
// identifier acknowledgement variants, since they all share one Go
// struct.
type PacketIDAckType ControlPacketType

func (p *AckPacket) Type() ControlPacketType { return ControlPacketType(p.PacketType) }

// flagsFor returns the fixed 4-bit flag field for the packet type:
// PUBREL is the one ack variant that reserves flags=0x02.
func flagsFor(t ControlPacketType) byte {
	if t == TypePubRel {
		return 0x02
	}
	return 0x00
}

func (p *AckPacket) Encode() ([]byte, error) {
	w := wire.NewWriter()
	w.ReserveHeader()

	if err := w.Uint16(uint16(p.PacketID)); err != nil {
		return nil, err
	}

	if p.ReasonCode != ReasonSuccess || p.Properties != nil {
		if err := w.WriteByte(byte(p.ReasonCode)); err != nil {
			return nil, err
		}
		if err := encodeProperties(w, p.Properties); err != nil {
			return nil, err
		}
	}

	return w.FinalizeMessage(byte(p.PacketType), flagsFor(ControlPacketType(p.PacketType)))
}

func decodeAck(t ControlPacketType, fh FixedHeader, r *wire.Reader) (*AckPacket, error) {
	if fh.Flags != flagsFor(t) {
		return nil, malformed("ack reserved flags mismatch")
	}

	id, err := r.Uint16()
	if err != nil {
		return nil, err
	}

	p := &AckPacket{
		PacketType: PacketIDAckType(t),
		PacketID:   PacketIdentifier(id),
		ReasonCode: ReasonSuccess,
	}

	if r.Remaining() == 0 {
		return p, nil
	}

	rc, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	p.ReasonCode = ReasonCode(rc)

	if r.Remaining() == 0 {
		return p, nil
	}

	props, err := decodeProperties(r, contextGeneric)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	return p, nil
}
