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

package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// maxFixedHeaderLen is the widest a control byte plus a 4-byte
// variable-length remaining-length can be.
const maxFixedHeaderLen = 5

// ErrFlagsOutOfRange is returned by FinalizeMessage when flags does
// not fit in the fixed header's 4-bit flag field.
var ErrFlagsOutOfRange = errors.New("wire: flags do not fit in 4 bits")

// Writer accumulates an MQTT control packet's bytes. It reserves room
// for the fixed header up front so FinalizeMessage can backfill the
// control byte and the remaining-length without a second allocation or
// copy of the payload.
type Writer struct {
	buf        []byte
	headerRsvd int
	fixed      bool
}

// NewWriter returns a Writer with a growable backing buffer.
func NewWriter() *Writer {
	return &Writer{}
}

// NewFixedWriter returns a Writer that writes into buf and never grows
// it; writes past cap(buf) return ErrBufferUnderflow. ReserveHeader
// is the exception: it appends its placeholder bytes unconditionally.
func NewFixedWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0], fixed: true}
}

// ReserveHeader reserves maxFixedHeaderLen bytes at the front of the
// buffer for the fixed header, to be backfilled by FinalizeMessage.
// Payload serialization must not address bytes below this offset.
func (w *Writer) ReserveHeader() {
	w.headerRsvd = len(w.buf)
	for i := 0; i < maxFixedHeaderLen; i++ {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) grow(n int) error {
	if cap(w.buf)-len(w.buf) >= n {
		return nil
	}
	if w.fixed {
		return ErrBufferUnderflow
	}
	needed := len(w.buf) + n
	newCap := cap(w.buf) * 2
	if newCap < needed {
		newCap = needed
	}
	grown := make([]byte, len(w.buf), newCap)
	copy(grown, w.buf)
	w.buf = grown
	return nil
}

// WriteByte writes a single byte (satisfies io.ByteWriter).
func (w *Writer) WriteByte(b byte) error {
	if err := w.grow(1); err != nil {
		return err
	}
	w.buf = append(w.buf, b)
	return nil
}

// Write appends p verbatim (satisfies io.Writer).
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.grow(len(p)); err != nil {
		return 0, err
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Uint16 writes a big-endian uint16.
func (w *Writer) Uint16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// Uint32 writes a big-endian uint32.
func (w *Writer) Uint32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// Uint64 writes a big-endian uint64.
func (w *Writer) Uint64(v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// Float32 writes a big-endian IEEE-754 single.
func (w *Writer) Float32(v float32) error {
	return w.Uint32(math.Float32bits(v))
}

// Float64 writes a big-endian IEEE-754 double.
func (w *Writer) Float64(v float64) error {
	return w.Uint64(math.Float64bits(v))
}

// String writes a two-byte length prefix followed by the UTF-8 bytes
// of s.
func (w *Writer) String(s string) error {
	if err := w.Uint16(uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// Binary writes a two-byte length prefix followed by data.
func (w *Writer) Binary(data []byte) error {
	if err := w.Uint16(uint16(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// VarInt writes n using the 1-4 byte continuation encoding.
func (w *Writer) VarInt(n int) error {
	encoded, err := AppendVarInt(nil, n)
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

// Len returns the number of bytes written so far, including any
// reserved header space.
func (w *Writer) Len() int { return len(w.buf) }

// FinalizeMessage backfills the reserved fixed header with the real
// control byte and remaining-length, computed from everything written
// since ReserveHeader, and returns the complete packet bytes. flags
// must fit in 4 bits.
func (w *Writer) FinalizeMessage(packetType byte, flags byte) ([]byte, error) {
	if flags > 0x0F {
		return nil, ErrFlagsOutOfRange
	}

	payloadLen := len(w.buf) - w.headerRsvd - maxFixedHeaderLen
	if payloadLen < 0 {
		payloadLen = 0
	}
	header, err := AppendVarInt([]byte{packetType<<4 | flags}, payloadLen)
	if err != nil {
		return nil, err
	}

	if w.headerRsvd == 0 {
		// The header is the first thing in the buffer: write it into the
		// tail of the reserved space and return the buffer from there.
		start := maxFixedHeaderLen - len(header)
		copy(w.buf[start:], header)
		return w.buf[start:], nil
	}

	out := make([]byte, 0, w.headerRsvd+len(header)+payloadLen)
	out = append(out, w.buf[:w.headerRsvd]...)
	out = append(out, header...)
	out = append(out, w.buf[w.headerRsvd+maxFixedHeaderLen:]...)
	return out, nil
}

// Bytes returns the raw accumulated buffer, unfinalized, including any
// reserved header placeholder bytes.
func (w *Writer) Bytes() []byte { return w.buf }
