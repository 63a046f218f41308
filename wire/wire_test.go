package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderIntegers(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	u8, err := r.Uint8()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), u8)

	u16, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), u16)

	u32, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04050607), u32)

	_, err = r.Uint32()
	assert.ErrorIs(t, err, ErrBufferUnderflow)
}

func TestReaderBytesZeroCopy(t *testing.T) {
	backing := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	r := NewReader(backing)

	b, err := r.Bytes(2)
	require.NoError(t, err)
	require.Len(t, b, 2)

	// Mutating the returned slice mutates the backing array: proof
	// that Bytes does not copy.
	b[0] = 0x00
	assert.Equal(t, byte(0x00), backing[0])
	assert.Equal(t, 2, r.Position())
}

func TestReaderSubReaderAdvancesOuter(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	sub, err := r.SubReader(3)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Position())
	assert.Equal(t, 3, sub.Remaining())

	v, err := sub.Uint8()
	require.NoError(t, err)
	assert.Equal(t, byte(1), v)
}

func TestReaderUTF8(t *testing.T) {
	r := NewReader([]byte("hello"))
	s, err := r.UTF8(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestVarIntRoundTrip(t *testing.T) {
	cases := []int{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, MaxVarInt}
	for _, n := range cases {
		encoded, err := AppendVarInt(nil, n)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(encoded), 4)

		r := NewReader(encoded)
		decoded, consumed, err := r.VarInt()
		require.NoError(t, err)
		assert.Equal(t, n, decoded)
		assert.Equal(t, len(encoded), consumed)
	}
}

func TestVarIntRejectsOverflow(t *testing.T) {
	_, err := AppendVarInt(nil, MaxVarInt+1)
	assert.ErrorIs(t, err, ErrValueTooLarge)
}

func TestVarIntRejectsFiveByteEncoding(t *testing.T) {
	// Four bytes with the continuation bit set, so a fifth is needed.
	r := NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	_, _, err := r.VarInt()
	assert.ErrorIs(t, err, ErrVarIntTooLong)
}

func TestPeekVarIntRestoresPositionOnUnderflow(t *testing.T) {
	r := NewReader([]byte{0x80}) // continuation bit set, no more bytes
	start := r.Position()
	_, _, err := r.PeekVarInt()
	assert.ErrorIs(t, err, ErrBufferUnderflow)
	assert.Equal(t, start, r.Position())
}

func TestWriterReserveHeaderAndFinalize(t *testing.T) {
	w := NewWriter()
	w.ReserveHeader()
	require.NoError(t, w.String("hi"))

	out, err := w.FinalizeMessage(3, 0)
	require.NoError(t, err)

	// PUBLISH-shaped check: type=3 (Publish), flags=0, remaining=4
	// (2-byte length prefix + "hi").
	assert.Equal(t, byte(3<<4), out[0])
	assert.Equal(t, byte(4), out[1])
	assert.Equal(t, []byte("hi"), out[4:6])
}

func TestWriterFloatRoundTrip(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Float64(3.14159))
	r := NewReader(w.Bytes())
	v, err := r.Float64()
	require.NoError(t, err)
	assert.InDelta(t, 3.14159, v, 1e-9)
}
