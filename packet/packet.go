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

// Packet is implemented by every one of the 14 MQTT control packets.
type Packet interface {
	Type() ControlPacketType

	// Encode serializes the packet to its complete wire form, including
	// the fixed header.
	Encode() ([]byte, error)
}

// DecodeOptions tunes packet-type-specific decode behavior. The zero
// value decodes Publish payloads per PayloadFormatIndicator.
type DecodeOptions struct {
	PublishMode PublishPayloadMode
}

// Decode reads one complete control packet from frame, which must hold
// exactly the bytes of a single packet as delimited by a FixedHeader
// (fixed header included). Callers that consume from a byte stream
// should use transform.Transformer to carve frame boundaries first.
func Decode(frame []byte, opts ...DecodeOptions) (Packet, error) {
	var opt DecodeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	r := wire.NewReader(frame)

	fh, err := PeekFixedHeader(r)
	if err != nil {
		return nil, err
	}
	r.SetPosition(fh.HeaderLen)

	body, err := r.SubReader(fh.RemainingLen)
	if err != nil {
		return nil, err
	}

	switch fh.Type {
	case TypeConnect:
		return decodeConnect(body)
	case TypeConnAck:
		return decodeConnAck(body)
	case TypePublish:
		return decodePublish(fh, body, opt.PublishMode)
	case TypePubAck:
		return decodeAck(TypePubAck, fh, body)
	case TypePubRec:
		return decodeAck(TypePubRec, fh, body)
	case TypePubRel:
		return decodeAck(TypePubRel, fh, body)
	case TypePubComp:
		return decodeAck(TypePubComp, fh, body)
	case TypeSubscribe:
		return decodeSubscribe(fh, body)
	case TypeSubAck:
		return decodeSubAck(body)
	case TypeUnsubscribe:
		return decodeUnsubscribe(fh, body)
	case TypeUnsubAck:
		return decodeUnsubAck(body)
	case TypePingReq:
		return PingReq, nil
	case TypePingResp:
		return PingResp, nil
	case TypeDisconnect:
		return decodeDisconnect(fh, body)
	case TypeAuth:
		return decodeAuth(fh, body)
	default:
		return nil, malformed("unknown control packet type")
	}
}
