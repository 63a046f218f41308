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

// UnsubscribePacket requests removal of one or more topic filters.
type UnsubscribePacket struct {
	PacketID   PacketIdentifier
	Filters    []string
	Properties *Properties
}

func (p *UnsubscribePacket) Type() ControlPacketType { return TypeUnsubscribe }

func (p *UnsubscribePacket) Encode() ([]byte, error) {
	if len(p.Filters) == 0 {
		return nil, policyViolation("unsubscribe must carry at least one topic filter")
	}
	for _, f := range p.Filters {
		if err := ValidateTopicFilter(f); err != nil {
			return nil, err
		}
	}

	w := wire.NewWriter()
	w.ReserveHeader()

	if err := w.Uint16(uint16(p.PacketID)); err != nil {
		return nil, err
	}
	if err := encodeProperties(w, p.Properties); err != nil {
		return nil, err
	}
	for _, f := range p.Filters {
		if err := w.String(f); err != nil {
			return nil, err
		}
	}

	return w.FinalizeMessage(byte(TypeUnsubscribe), 0x02)
}

func decodeUnsubscribe(fh FixedHeader, r *wire.Reader) (*UnsubscribePacket, error) {
	if fh.Flags != 0x02 {
		return nil, malformed("unsubscribe reserved flags must be 0b0010")
	}

	id, err := r.Uint16()
	if err != nil {
		return nil, err
	}

	props, err := decodeProperties(r, contextGeneric)
	if err != nil {
		return nil, err
	}

	p := &UnsubscribePacket{PacketID: PacketIdentifier(id), Properties: props}

	for r.Remaining() > 0 {
		filter, err := decodeUTF8(r)
		if err != nil {
			return nil, err
		}
		p.Filters = append(p.Filters, filter)
	}

	if len(p.Filters) == 0 {
		return nil, malformed("unsubscribe carried no topic filters")
	}

	return p, nil
}
