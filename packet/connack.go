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

// ConnAckPacket is the server's reply to CONNECT.
type ConnAckPacket struct {
	SessionPresent bool
	ReasonCode     ReasonCode
	Properties     *Properties
}

func (p *ConnAckPacket) Type() ControlPacketType { return TypeConnAck }

func (p *ConnAckPacket) Encode() ([]byte, error) {
	if authDataNeedsMethod(p.Properties) {
		return nil, policyViolation("authentication data requires an authentication method")
	}
	if serverReferenceWithoutRedirect(p.ReasonCode, p.Properties) {
		return nil, policyViolation("server reference requires Server_moved or Use_another_server")
	}

	w := wire.NewWriter()
	w.ReserveHeader()

	var flags byte
	if p.SessionPresent {
		flags |= 0x01
	}
	if err := w.WriteByte(flags); err != nil {
		return nil, err
	}
	if err := w.WriteByte(byte(p.ReasonCode)); err != nil {
		return nil, err
	}
	if err := encodeProperties(w, p.Properties); err != nil {
		return nil, err
	}

	return w.FinalizeMessage(byte(TypeConnAck), 0)
}

func decodeConnAck(r *wire.Reader) (*ConnAckPacket, error) {
	flags, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	if flags&0xFE != 0 {
		return nil, malformed("connack flags reserved bits set")
	}

	rc, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	props, err := decodeProperties(r, contextGeneric)
	if err != nil {
		return nil, err
	}
	if authDataNeedsMethod(props) {
		return nil, malformed("authentication data without authentication method")
	}
	if serverReferenceWithoutRedirect(ReasonCode(rc), props) {
		return nil, malformed("server reference without a redirect reason code")
	}

	return &ConnAckPacket{
		SessionPresent: flags&0x01 != 0,
		ReasonCode:     ReasonCode(rc),
		Properties:     props,
	}, nil
}
