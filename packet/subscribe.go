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

// Subscription is one entry of a SUBSCRIBE packet's topic filter list.
type Subscription struct {
	Filter            string
	QoS               QoS
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    RetainHandling
}

// SubscribePacket requests delivery from one or more topic filters.
type SubscribePacket struct {
	PacketID      PacketIdentifier
	Subscriptions []Subscription
	Properties    *Properties
}

func (p *SubscribePacket) Type() ControlPacketType { return TypeSubscribe }

func (p *SubscribePacket) Encode() ([]byte, error) {
	if len(p.Subscriptions) == 0 {
		return nil, policyViolation("subscribe must carry at least one topic filter")
	}
	for _, sub := range p.Subscriptions {
		if err := ValidateTopicFilter(sub.Filter); err != nil {
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

	for _, sub := range p.Subscriptions {
		if err := w.String(sub.Filter); err != nil {
			return nil, err
		}
		options := byte(sub.QoS) & 0x03
		if sub.NoLocal {
			options |= 0x04
		}
		if sub.RetainAsPublished {
			options |= 0x08
		}
		options |= byte(sub.RetainHandling) << 4
		if err := w.WriteByte(options); err != nil {
			return nil, err
		}
	}

	return w.FinalizeMessage(byte(TypeSubscribe), 0x02)
}

func decodeSubscribe(fh FixedHeader, r *wire.Reader) (*SubscribePacket, error) {
	if fh.Flags != 0x02 {
		return nil, malformed("subscribe reserved flags must be 0b0010")
	}

	id, err := r.Uint16()
	if err != nil {
		return nil, err
	}

	props, err := decodeProperties(r, contextGeneric)
	if err != nil {
		return nil, err
	}

	p := &SubscribePacket{PacketID: PacketIdentifier(id), Properties: props}

	for r.Remaining() > 0 {
		filter, err := decodeUTF8(r)
		if err != nil {
			return nil, err
		}
		options, err := r.Uint8()
		if err != nil {
			return nil, err
		}

		p.Subscriptions = append(p.Subscriptions, Subscription{
			Filter:            filter,
			QoS:               QoS(options & 0x03),
			NoLocal:           options&0x04 != 0,
			RetainAsPublished: options&0x08 != 0,
			RetainHandling:    RetainHandling((options >> 4) & 0x03),
		})
	}

	if len(p.Subscriptions) == 0 {
		return nil, malformed("subscribe carried no topic filters")
	}

	return p, nil
}
