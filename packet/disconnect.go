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

// DisconnectPacket closes a session, either cleanly or with a reason.
// When ReasonCode is Success and Properties is nil, Encode produces
// the 2-byte short form.
type DisconnectPacket struct {
	ReasonCode ReasonCode
	Properties *Properties
}

func (p *DisconnectPacket) Type() ControlPacketType { return TypeDisconnect }

func (p *DisconnectPacket) Encode() ([]byte, error) {
	w := wire.NewWriter()
	w.ReserveHeader()

	if p.ReasonCode != ReasonNormalDisconnection || p.Properties != nil {
		if err := w.WriteByte(byte(p.ReasonCode)); err != nil {
			return nil, err
		}
		if err := encodeProperties(w, p.Properties); err != nil {
			return nil, err
		}
	}

	return w.FinalizeMessage(byte(TypeDisconnect), 0)
}

func decodeDisconnect(fh FixedHeader, r *wire.Reader) (*DisconnectPacket, error) {
	p := &DisconnectPacket{ReasonCode: ReasonNormalDisconnection}
	if fh.RemainingLen == 0 {
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
