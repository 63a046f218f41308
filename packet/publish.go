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
	"unicode/utf8"

	"github.com/sclera-iot/mqtt5/wire"
)

// PublishPayloadMode selects how a decoded PublishPacket's Payload
// surfaces to the caller.
type PublishPayloadMode int

const (
	// PayloadFormatIndicator inspects the PUBLISH properties: a
	// Payload Format Indicator of 1 decodes as UTF-8 text, falling
	// back to raw bytes on invalid UTF-8; anything else is raw bytes.
	PayloadFormatIndicator PublishPayloadMode = iota
	// UTF8String always attempts a UTF-8 decode, falling back to a
	// byte sub-reader on failure.
	UTF8String
	// DataReader always exposes the payload as a byte sub-reader
	// (zero-copy window into the decoded frame).
	DataReader
	// Uint8Array always copies the payload into an owned byte slice.
	Uint8Array
)

// PublishPacket carries application data to a topic.
type PublishPacket struct {
	Duplicate bool
	QoS       QoS
	Retain    bool
	Topic     string
	PacketID  PacketIdentifier

	Properties *Properties

	// Payload is the raw application data. When the packet was decoded
	// with mode DataReader, with mode PayloadFormatIndicator and no
	// text indicator, or with mode UTF8String on invalid UTF-8, Payload
	// aliases the decoded frame and must not be retained past the
	// frame's lifetime; otherwise it is an owned copy.
	Payload []byte

	// PayloadText holds the UTF-8 decoding of Payload when the
	// resolved mode produced one (PayloadFormatIndicator with
	// indicator=1, or UTF8String on valid input).
	PayloadText string
	IsText      bool
}

func (p *PublishPacket) Type() ControlPacketType { return TypePublish }

// derivePayloadFormat infers the payload_format_indicator property
// value for NewTextPublish/NewBinaryPublish and SetTextWill/
// SetBinaryWill from the Go type of the payload handed in: a string
// payload is always valid UTF-8 by construction, byte slices are left
// unspecified since the caller may be sending arbitrary binary data.
func derivePayloadFormat(text bool) byte {
	if text {
		return 1
	}
	return 0
}

// NewTextPublish builds a PublishPacket for a UTF-8 string payload,
// setting payload_format_indicator automatically.
func NewTextPublish(topic, text string, qos QoS, retain bool) *PublishPacket {
	format := derivePayloadFormat(true)
	return &PublishPacket{
		QoS:         qos,
		Retain:      retain,
		Topic:       topic,
		Payload:     []byte(text),
		PayloadText: text,
		IsText:      true,
		Properties:  &Properties{PayloadFormat: &format},
	}
}

// NewBinaryPublish builds a PublishPacket for an opaque byte payload.
func NewBinaryPublish(topic string, data []byte, qos QoS, retain bool) *PublishPacket {
	return &PublishPacket{
		QoS:     qos,
		Retain:  retain,
		Topic:   topic,
		Payload: data,
	}
}

func (p *PublishPacket) Encode() ([]byte, error) {
	if err := ValidateTopicName(p.Topic); err != nil {
		return nil, err
	}
	if p.QoS == QoS0 && p.PacketID != 0 {
		return nil, policyViolation("packet identifier must be absent at QoS 0")
	}
	if p.QoS > QoS0 && p.PacketID == 0 {
		return nil, policyViolation("packet identifier required above QoS 0")
	}

	w := wire.NewWriter()
	w.ReserveHeader()

	if err := w.String(p.Topic); err != nil {
		return nil, err
	}
	if p.QoS > QoS0 {
		if err := w.Uint16(uint16(p.PacketID)); err != nil {
			return nil, err
		}
	}
	if err := encodeProperties(w, p.Properties); err != nil {
		return nil, err
	}
	if _, err := w.Write(p.Payload); err != nil {
		return nil, err
	}

	var flags byte
	if p.Duplicate {
		flags |= 0x08
	}
	flags |= byte(p.QoS) << 1
	if p.Retain {
		flags |= 0x01
	}

	return w.FinalizeMessage(byte(TypePublish), flags)
}

func decodePublish(fh FixedHeader, r *wire.Reader, mode PublishPayloadMode) (*PublishPacket, error) {
	qos := QoS((fh.Flags >> 1) & 0x03)
	if qos > QoS2 {
		return nil, malformed("invalid QoS in publish flags")
	}

	topicLen, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	topic, err := r.UTF8(int(topicLen))
	if err != nil {
		return nil, err
	}

	p := &PublishPacket{
		Duplicate: fh.Flags&0x08 != 0,
		QoS:       qos,
		Retain:    fh.Flags&0x01 != 0,
		Topic:     topic,
	}

	if qos > QoS0 {
		id, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		p.PacketID = PacketIdentifier(id)
	}

	props, err := decodeProperties(r, contextPublish)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	remaining := r.Remaining()
	resolvedMode := mode
	formatIndicatesText := props != nil && props.PayloadFormat != nil && *props.PayloadFormat == 1
	if mode == PayloadFormatIndicator {
		if formatIndicatesText {
			resolvedMode = UTF8String
		} else {
			resolvedMode = DataReader
		}
	}

	switch resolvedMode {
	case UTF8String:
		raw, err := r.Bytes(remaining)
		if err != nil {
			return nil, err
		}
		if utf8.Valid(raw) {
			p.IsText = true
			p.PayloadText = string(raw)
			p.Payload = []byte(p.PayloadText)
		} else {
			p.Payload = raw
		}

	case DataReader:
		raw, err := r.Bytes(remaining)
		if err != nil {
			return nil, err
		}
		p.Payload = raw

	case Uint8Array:
		raw, err := r.Bytes(remaining)
		if err != nil {
			return nil, err
		}
		owned := make([]byte, len(raw))
		copy(owned, raw)
		p.Payload = owned

	default:
		return nil, malformed("unknown publish payload mode")
	}

	return p, nil
}
