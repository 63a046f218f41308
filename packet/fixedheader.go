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

// FixedHeader is the decoded first byte and remaining-length of a
// control packet, plus the offset at which its variable header begins.
type FixedHeader struct {
	Type         ControlPacketType
	Flags        byte
	RemainingLen int
	HeaderLen    int
}

// PeekFixedHeader decodes a fixed header from the start of r without
// consuming more of the Reader than the header itself, restoring the
// cursor if the header is incomplete (ErrBufferUnderflow). This is the
// primitive the reassembly transformer polls to decide whether a full
// frame has arrived yet.
func PeekFixedHeader(r *wire.Reader) (FixedHeader, error) {
	start := r.Position()

	first, err := r.Uint8()
	if err != nil {
		r.SetPosition(start)
		return FixedHeader{}, err
	}

	remaining, consumed, err := r.PeekVarInt()
	if err != nil {
		r.SetPosition(start)
		return FixedHeader{}, err
	}

	return FixedHeader{
		Type:         ControlPacketType(first >> 4),
		Flags:        first & 0x0F,
		RemainingLen: remaining,
		HeaderLen:    1 + consumed,
	}, nil
}
