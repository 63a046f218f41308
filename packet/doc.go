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

// Package packet implements the MQTT 5.0 control packet codec: the 14
// control packet types, their variable headers, the shared properties
// sub-codec, reason codes, and topic name/filter validation.
//
// # Per-packet variable headers
//
// Connect: protocol name/version, connect flags, keep alive, properties,
// client id, and — when the will flag is set — will properties, will
// topic and will payload, followed by username/password when their
// flags are set.
//
// ConnAck: a session-present flag byte (all other bits reserved), a
// reason code, and properties.
//
// Publish: topic name, a packet identifier present only above QoS 0,
// and properties. The fixed header's QoS bits (1-2) and retain/dup
// bits are semantic, unlike every other packet type where the fixed
// header's flag nibble is either 0b0000 or the protocol-mandated
// 0b0010.
//
// PubAck/PubRec/PubRel/PubComp: a packet identifier, and — omitted
// entirely when the reason is Success and there are no properties — a
// reason code and properties. PubRel alone carries fixed header flags
// 0b0010; the other three carry 0b0000.
//
// Subscribe/Unsubscribe: a packet identifier, properties, and a
// non-empty list of topic filters (Subscribe additionally carries a
// subscription options byte per filter). Both mandate fixed header
// flags 0b0010.
//
// SubAck/UnsubAck: a packet identifier, properties, and a non-empty
// list of per-filter reason codes.
//
// PingReq/PingResp: no variable header or payload; the fixed header's
// remaining length is always zero.
//
// Disconnect/Auth: a reason code and properties, both omittable
// (short form) when the reason is the type's default (Normal
// disconnection / Success) and there are no properties to carry.
//
// Encoder-derived payload format: PayloadFormatIndicator on a Publish
// or Will payload is never set directly by a caller using
// NewTextPublish/NewBinaryPublish or SetTextWill/SetBinaryWill; it is
// derived from the Go type of the payload handed in, centralized in
// derivePayloadFormat.
package packet
