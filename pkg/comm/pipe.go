// Package comm moves encoded CRUMBS messages over packet transports.
package comm

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

// MessageHandler is called for every message received on a Pipe.
type MessageHandler interface {
	HandleMessage(context.Context, message.Message)
}

// HandleMessageFunc is func form of MessageHandler.
type HandleMessageFunc func(context.Context, message.Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, m message.Message) {
	f(ctx, m)
}

// Pipe is a bi-directional pipe for CRUMBS messages over a
// PacketReadWriter. Received packets that are not exactly one encoded
// message are dropped; the peer firmware owns framing.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    MessageHandler

	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// Send encodes and writes one message. Sends are serialized so
// concurrent callers never interleave bytes of two messages.
func (p *Pipe) Send(m *message.Message) error {
	pkt := m.Bytes()
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

// Run implements Runnable.
func (p *Pipe) Run(ctx context.Context) error {
	defer p.Close()
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		m, err := message.Decode(pkt)
		if err != nil {
			glog.V(2).Infof("drop packet of %d bytes: %v", len(pkt), err)
			continue
		}
		if h := p.Handler; h != nil {
			h.HandleMessage(ctx, m)
		}
	}
}

// Close implements Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
