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

// ConnectPacket is the client's opening handshake request.
type ConnectPacket struct {
	CleanStart bool
	KeepAlive  uint16
	ClientID   string

	WillQoS        QoS
	WillRetain     bool
	WillTopic      string
	WillPayload    []byte
	WillProperties *Properties

	Username string
	Password []byte

	Properties *Properties
}

func (p *ConnectPacket) Type() ControlPacketType { return TypeConnect }

func (p *ConnectPacket) hasWill() bool { return p.WillTopic != "" }

// SetTextWill configures the Will as a UTF-8 text payload, deriving
// payload_format_indicator the same way NewTextPublish does for a
// regular Publish.
func (p *ConnectPacket) SetTextWill(topic, text string, qos QoS, retain bool) {
	format := derivePayloadFormat(true)
	if p.WillProperties == nil {
		p.WillProperties = &Properties{}
	}
	p.WillProperties.PayloadFormat = &format
	p.WillTopic = topic
	p.WillPayload = []byte(text)
	p.WillQoS = qos
	p.WillRetain = retain
}

// SetBinaryWill configures the Will as an opaque byte payload.
func (p *ConnectPacket) SetBinaryWill(topic string, data []byte, qos QoS, retain bool) {
	p.WillTopic = topic
	p.WillPayload = data
	p.WillQoS = qos
	p.WillRetain = retain
}

// NewConnectWithTextWill builds a ConnectPacket carrying a UTF-8 text
// Will message, mirroring NewTextPublish's payload-format derivation.
func NewConnectWithTextWill(clientID, willTopic, willText string, willQoS QoS, willRetain bool) *ConnectPacket {
	p := &ConnectPacket{ClientID: clientID}
	p.SetTextWill(willTopic, willText, willQoS, willRetain)
	return p
}

// NewConnectWithBinaryWill builds a ConnectPacket carrying an opaque
// byte Will message.
func NewConnectWithBinaryWill(clientID, willTopic string, willPayload []byte, willQoS QoS, willRetain bool) *ConnectPacket {
	p := &ConnectPacket{ClientID: clientID}
	p.SetBinaryWill(willTopic, willPayload, willQoS, willRetain)
	return p
}

func (p *ConnectPacket) Encode() ([]byte, error) {
	if authDataNeedsMethod(p.Properties) {
		return nil, policyViolation("authentication data requires an authentication method")
	}

	w := wire.NewWriter()
	w.ReserveHeader()

	if err := w.String(ProtocolName); err != nil {
		return nil, err
	}
	if err := w.WriteByte(ProtocolVersion); err != nil {
		return nil, err
	}

	var flags byte
	if p.CleanStart {
		flags |= 0x02
	}
	if p.hasWill() {
		flags |= 0x04
		flags |= byte(p.WillQoS) << 3
		if p.WillRetain {
			flags |= 0x20
		}
	}
	if p.Password != nil {
		flags |= 0x40
	}
	if p.Username != "" {
		flags |= 0x80
	}
	if err := w.WriteByte(flags); err != nil {
		return nil, err
	}
	if err := w.Uint16(p.KeepAlive); err != nil {
		return nil, err
	}

	if err := encodeProperties(w, p.Properties); err != nil {
		return nil, err
	}

	if err := w.String(p.ClientID); err != nil {
		return nil, err
	}

	if p.hasWill() {
		if err := encodeProperties(w, p.WillProperties); err != nil {
			return nil, err
		}
		if err := w.String(p.WillTopic); err != nil {
			return nil, err
		}
		if err := w.Binary(p.WillPayload); err != nil {
			return nil, err
		}
	}

	if p.Username != "" {
		if err := w.String(p.Username); err != nil {
			return nil, err
		}
	}
	if p.Password != nil {
		if err := w.Binary(p.Password); err != nil {
			return nil, err
		}
	}

	return w.FinalizeMessage(byte(TypeConnect), 0)
}

func decodeConnect(r *wire.Reader) (*ConnectPacket, error) {
	nameLen, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	name, err := r.UTF8(int(nameLen))
	if err != nil {
		return nil, err
	}
	if name != ProtocolName {
		return nil, malformed("unexpected protocol name")
	}

	version, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	if version != ProtocolVersion {
		return nil, malformed("unsupported protocol version")
	}

	flags, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	if flags&0x01 != 0 {
		return nil, malformed("connect flags reserved bit set")
	}

	keepAlive, err := r.Uint16()
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

	p := &ConnectPacket{
		CleanStart: flags&0x02 != 0,
		KeepAlive:  keepAlive,
		Properties: props,
	}

	clientIDLen, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	p.ClientID, err = r.UTF8(int(clientIDLen))
	if err != nil {
		return nil, err
	}

	willFlag := flags&0x04 != 0
	if willFlag {
		p.WillQoS = QoS((flags >> 3) & 0x03)
		p.WillRetain = flags&0x20 != 0

		p.WillProperties, err = decodeProperties(r, contextGeneric)
		if err != nil {
			return nil, err
		}
		topicLen, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		p.WillTopic, err = r.UTF8(int(topicLen))
		if err != nil {
			return nil, err
		}
		p.WillPayload, err = decodeBinaryCopy(r)
		if err != nil {
			return nil, err
		}
	}

	if flags&0x80 != 0 {
		p.Username, err = decodeUTF8(r)
		if err != nil {
			return nil, err
		}
	}
	if flags&0x40 != 0 {
		p.Password, err = decodeBinaryCopy(r)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}
