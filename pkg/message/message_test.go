package message

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	require.Equal(t, 28, Size)
	m := New(1, 2, 3)
	require.Len(t, m.Bytes(), Size)
}

func TestEncode(t *testing.T) {
	m := New(5, 2, 10, 1.0, -2.5, 0.0, 3.14159, 100000.0)
	b := m.Bytes()
	require.Len(t, b, Size)
	require.Equal(t, []byte{5, 2, 10}, b[:3])
	require.Equal(t, byte(0), b[Size-1])
	for i, v := range m.Data {
		require.Equal(t, math.Float32bits(v), binary.LittleEndian.Uint32(b[3+i*4:]), "data[%d]", i)
	}

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, Size, n)
	require.Equal(t, b, buf.Bytes())
}

func TestEncodeTo(t *testing.T) {
	m := New(1, 1, 1)
	require.Equal(t, ErrLength, m.EncodeTo(make([]byte, Size-1)))
	require.Equal(t, ErrLength, m.EncodeTo(make([]byte, Size+1)))
	buf := make([]byte, Size)
	require.NoError(t, m.EncodeTo(buf))
	require.Equal(t, m.Bytes(), buf)
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		msg  Message
	}{
		{"zero", Message{}},
		{"plain", *New(5, 2, 10, 1.0, -2.5, 0.0, 3.14159, 100000.0)},
		{"max ids", Message{SliceID: 255, TypeID: 255, CommandType: 255, ErrorFlags: 255}},
		{"infinities", *New(1, 1, 1, float32(math.Inf(1)), float32(math.Inf(-1)))},
		{"tiny", *New(9, 3, 7, math.SmallestNonzeroFloat32, -math.SmallestNonzeroFloat32)},
		{"huge", *New(9, 3, 7, math.MaxFloat32, -math.MaxFloat32)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.msg.Bytes())
			require.NoError(t, err)
			require.Equal(t, tc.msg, got)
		})
	}
}

func TestRoundTripNaN(t *testing.T) {
	// NaN payloads must survive bit-for-bit, so compare bit patterns
	// instead of float values.
	m := New(1, 2, 3)
	m.Data[0] = float32(math.NaN())
	m.Data[1] = math.Float32frombits(0x7fc00123) // NaN with payload bits
	got, err := Decode(m.Bytes())
	require.NoError(t, err)
	for i := range m.Data {
		require.Equal(t, math.Float32bits(m.Data[i]), math.Float32bits(got.Data[i]), "data[%d]", i)
	}
}

func TestDecodeOffsets(t *testing.T) {
	buf := make([]byte, Size)
	buf[0], buf[1], buf[2] = 7, 4, 9
	binary.LittleEndian.PutUint32(buf[3:], math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(buf[7:], math.Float32bits(-8.25))
	binary.LittleEndian.PutUint32(buf[11:], math.Float32bits(0))
	binary.LittleEndian.PutUint32(buf[15:], math.Float32bits(2048))
	binary.LittleEndian.PutUint32(buf[19:], math.Float32bits(-0.125))
	binary.LittleEndian.PutUint32(buf[23:], math.Float32bits(33))
	buf[27] = 0x81

	m, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, uint8(7), m.SliceID)
	require.Equal(t, uint8(4), m.TypeID)
	require.Equal(t, uint8(9), m.CommandType)
	require.Equal(t, [DataLen]float32{1.5, -8.25, 0, 2048, -0.125, 33}, m.Data)
	require.Equal(t, uint8(0x81), m.ErrorFlags)
}

func TestDecodeBadLength(t *testing.T) {
	for _, l := range []int{0, 1, Size - 1, Size + 1, 2 * Size} {
		m, err := Decode(make([]byte, l))
		require.Equalf(t, ErrLength, err, "length %d", l)
		require.Equal(t, Message{}, m)
	}
}
