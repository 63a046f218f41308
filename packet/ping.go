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

// pingPacket is the shared, payload-free shape of PINGREQ and
// PINGRESP: a static two-byte wire form, precomputed once.
type pingPacket struct {
	t ControlPacketType
}

func (p *pingPacket) Type() ControlPacketType { return p.t }

func (p *pingPacket) Encode() ([]byte, error) {
	return []byte{byte(p.t) << 4, 0x00}, nil
}

// PingReq is the singleton PINGREQ packet: its wire form never varies,
// so every caller can share the one instance.
var PingReq Packet = &pingPacket{t: TypePingReq}

// PingResp is the singleton PINGRESP packet.
var PingResp Packet = &pingPacket{t: TypePingResp}
