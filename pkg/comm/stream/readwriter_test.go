package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)

	m1 := message.New(1, 2, 3, 4.5)
	m2 := message.New(6, 7, 8, -9.5)
	require.NoError(t, rw.WritePacket(m1.Bytes()))
	require.NoError(t, rw.WritePacket(m2.Bytes()))
	require.Equal(t, 2*message.Size, buf.Len())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, m1.Bytes(), pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, m2.Bytes(), pkt)

	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestWritePacketSize(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.Equal(t, message.ErrLength, rw.WritePacket(make([]byte, message.Size-1)))
	require.Equal(t, message.ErrLength, rw.WritePacket(make([]byte, message.Size+3)))
	require.Zero(t, buf.Len())
}

func TestReadPacketShortStream(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, message.Size-5))
	rw := New(buf)
	_, err := rw.ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}
