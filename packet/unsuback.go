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

// UnsubAckPacket acknowledges an UNSUBSCRIBE, one reason code per
// filter in request order.
type UnsubAckPacket struct {
	PacketID    PacketIdentifier
	ReasonCodes []ReasonCode
	Properties  *Properties
}

func (p *UnsubAckPacket) Type() ControlPacketType { return TypeUnsubAck }

func (p *UnsubAckPacket) Encode() ([]byte, error) {
	if len(p.ReasonCodes) == 0 {
		return nil, policyViolation("unsuback must carry at least one reason code")
	}

	w := wire.NewWriter()
	w.ReserveHeader()

	if err := w.Uint16(uint16(p.PacketID)); err != nil {
		return nil, err
	}
	if err := encodeProperties(w, p.Properties); err != nil {
		return nil, err
	}
	for _, rc := range p.ReasonCodes {
		if err := w.WriteByte(byte(rc)); err != nil {
			return nil, err
		}
	}

	return w.FinalizeMessage(byte(TypeUnsubAck), 0)
}

func decodeUnsubAck(r *wire.Reader) (*UnsubAckPacket, error) {
	id, err := r.Uint16()
	if err != nil {
		return nil, err
	}

	props, err := decodeProperties(r, contextGeneric)
	if err != nil {
		return nil, err
	}

	p := &UnsubAckPacket{PacketID: PacketIdentifier(id), Properties: props}

	for r.Remaining() > 0 {
		rc, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		p.ReasonCodes = append(p.ReasonCodes, ReasonCode(rc))
	}

	if len(p.ReasonCodes) == 0 {
		return nil, malformed("unsuback carried no reason codes")
	}

	return p, nil
}
