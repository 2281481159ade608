// Package stream adapts a raw byte stream (serial port, socket) into a
// packet transport for CRUMBS messages.
package stream

import (
	"io"

	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

// ReadWriter implements PacketReadWriter over an io.ReadWriter.
// Messages are fixed-size, so no framing bytes are needed: every
// packet is exactly message.Size bytes on the stream.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	pkt := make([]byte, message.Size)
	if _, err := io.ReadFull(p, pkt); err != nil {
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) != message.Size {
		return message.ErrLength
	}
	_, err := p.Write(pkt)
	return err
}
