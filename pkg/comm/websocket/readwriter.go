// Package websocket carries CRUMBS messages over websocket frames, one
// message per binary frame.
package websocket

import (
	"golang.org/x/net/websocket"

	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket endpoint and wraps the connection.
func Dial(url, origin string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) != message.Size {
		return message.ErrLength
	}
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close closes the underlying connection.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}
