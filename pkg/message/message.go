package message

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// DataLen is the number of payload values in every message.
const DataLen = 6

// Size is the exact number of bytes of an encoded message.
const Size = 1 + 1 + 1 + DataLen*4 + 1

// Fails to compile if the field sizes no longer add up to Size.
var _ = [1]struct{}{}[Size-28]

var (
	// ErrLength indicates a buffer is not exactly one encoded message.
	ErrLength = errors.New("bad message length")
)

// Message is one CRUMBS command or telemetry unit. It is a plain value:
// copy it freely, there is no state behind it.
type Message struct {
	SliceID     uint8
	TypeID      uint8
	CommandType uint8
	Data        [DataLen]float32
	ErrorFlags  uint8
}

// New creates a Message addressed to a slice. Extra payload slots
// beyond the given values stay zero.
func New(sliceID, typeID, commandType uint8, data ...float32) *Message {
	m := &Message{SliceID: sliceID, TypeID: typeID, CommandType: commandType}
	copy(m.Data[:], data)
	return m
}

// Bytes returns encoded bytes for sending.
func (m *Message) Bytes() []byte {
	b := make([]byte, Size)
	m.encode(b)
	return b
}

// EncodeTo encodes into buf, which must be exactly Size bytes.
func (m *Message) EncodeTo(buf []byte) error {
	if len(buf) != Size {
		return ErrLength
	}
	m.encode(buf)
	return nil
}

// WriteTo writes encoded bytes.
func (m *Message) WriteTo(w io.Writer) (n int, err error) {
	return w.Write(m.Bytes())
}

func (m *Message) encode(b []byte) {
	b[0], b[1], b[2] = m.SliceID, m.TypeID, m.CommandType
	for i, v := range m.Data {
		binary.LittleEndian.PutUint32(b[3+i*4:], math.Float32bits(v))
	}
	b[Size-1] = m.ErrorFlags
}

// Decode decodes buf into a Message. buf must be exactly Size bytes;
// nothing is decoded from a short or oversized buffer.
func Decode(buf []byte) (Message, error) {
	var m Message
	if len(buf) != Size {
		return m, ErrLength
	}
	m.SliceID, m.TypeID, m.CommandType = buf[0], buf[1], buf[2]
	for i := range m.Data {
		m.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[3+i*4:]))
	}
	m.ErrorFlags = buf[Size-1]
	return m, nil
}
