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

// Package transform reassembles an arbitrary byte stream into a
// sequence of whole MQTT control packets, tolerating fragmentation at
// any boundary.
package transform

import (
	"errors"

	"github.com/sclera-iot/mqtt5/packet"
	"github.com/sclera-iot/mqtt5/wire"
)

// ErrBufferUnderflow re-exports wire.ErrBufferUnderflow for callers
// that want to distinguish "need more bytes" from a genuine decode
// failure without importing wire directly.
var ErrBufferUnderflow = wire.ErrBufferUnderflow

// Transformer carries an unconsumed byte tail across Feed calls so a
// packet split across two or more stream reads decodes correctly.
type Transformer struct {
	carry   []byte
	decOpts packet.DecodeOptions
}

// New returns an empty Transformer that decodes PUBLISH payloads with
// the default PublishPayloadMode (PayloadFormatIndicator).
func New() *Transformer {
	return &Transformer{}
}

// NewWithDecodeOptions returns an empty Transformer that applies opts
// to every packet.Decode call, letting callers choose how inbound
// PUBLISH payloads surface (see packet.PublishPayloadMode).
func NewWithDecodeOptions(opts packet.DecodeOptions) *Transformer {
	return &Transformer{decOpts: opts}
}

// Feed appends chunk to any carried-over bytes and decodes as many
// complete packets as are now available. Bytes belonging to an
// incomplete trailing frame are retained in carry for the next call.
// A decode error on an otherwise complete frame is returned
// immediately, with carry holding the failing frame and every byte
// after it, since the transformer does not attempt resynchronization.
func (t *Transformer) Feed(chunk []byte) ([]packet.Packet, error) {
	buf := chunk
	if len(t.carry) > 0 {
		buf = make([]byte, 0, len(t.carry)+len(chunk))
		buf = append(buf, t.carry...)
		buf = append(buf, chunk...)
	}

	var packets []packet.Packet
	r := wire.NewReader(buf)

	for r.Remaining() > 0 {
		start := r.Position()

		fh, err := packet.PeekFixedHeader(r)
		if err != nil {
			if errors.Is(err, wire.ErrBufferUnderflow) {
				t.carry = append(t.carry[:0], buf[start:]...)
				return packets, nil
			}
			return packets, err
		}

		frameEnd := r.Position() + fh.RemainingLen
		if frameEnd > len(buf) {
			r.SetPosition(start)
			t.carry = append(t.carry[:0], buf[start:]...)
			return packets, nil
		}

		frame := buf[start:frameEnd]
		p, err := packet.Decode(frame, t.decOpts)
		if err != nil {
			t.carry = append(t.carry[:0], buf[start:]...)
			return packets, err
		}

		packets = append(packets, p)
		r.SetPosition(frameEnd)
	}

	t.carry = t.carry[:0]
	return packets, nil
}

// Reset clears any carried-over partial frame. The transport builds a
// new Transformer for every connection, so bytes left over from a
// prior connection never reach the next one without a Reset call.
func (t *Transformer) Reset() {
	t.carry = nil
}
