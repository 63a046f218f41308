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

// AuthPacket carries an enhanced-authentication exchange step. Same
// short/long form as DisconnectPacket.
type AuthPacket struct {
	ReasonCode ReasonCode
	Properties *Properties
}

func (p *AuthPacket) Type() ControlPacketType { return TypeAuth }

func (p *AuthPacket) Encode() ([]byte, error) {
	if authDataNeedsMethod(p.Properties) {
		return nil, policyViolation("authentication data requires an authentication method")
	}

	w := wire.NewWriter()
	w.ReserveHeader()

	if p.ReasonCode != ReasonSuccess || p.Properties != nil {
		if err := w.WriteByte(byte(p.ReasonCode)); err != nil {
			return nil, err
		}
		if err := encodeProperties(w, p.Properties); err != nil {
			return nil, err
		}
	}

	return w.FinalizeMessage(byte(TypeAuth), 0)
}

func decodeAuth(fh FixedHeader, r *wire.Reader) (*AuthPacket, error) {
	p := &AuthPacket{ReasonCode: ReasonSuccess}
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
	if authDataNeedsMethod(props) {
		return nil, malformed("authentication data without authentication method")
	}
	p.Properties = props

	return p, nil
}
