package mqtt

import (
	"context"
	"fmt"
	"io"
)

// Topic conventions per slice:
//
//	slice/<id>/cmd  commands addressed to the slice
//	slice/<id>/tm   telemetry and replies from the slice
func cmdTopic(sliceID uint8) string { return fmt.Sprintf("slice/%d/cmd", sliceID) }
func tmTopic(sliceID uint8) string  { return fmt.Sprintf("slice/%d/tm", sliceID) }

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	doneCh   chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 1),
		doneCh:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForController sets topics for the controller end: commands go out,
// telemetry comes back.
func (p *ReadWriter) ForController(sliceID uint8) *ReadWriter {
	return p.WithTopics(tmTopic(sliceID), cmdTopic(sliceID))
}

// ForSlice sets topics for the slice end: commands come in, telemetry
// goes out.
func (p *ReadWriter) ForSlice(sliceID uint8) *ReadWriter {
	return p.WithTopics(cmdTopic(sliceID), tmTopic(sliceID))
}

// ReadPacket implements PacketReader. It returns io.EOF once Run stops,
// after draining packets already queued.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	default:
	}
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable. The packet chan is never closed: a broker
// dispatch can still be in flight when the subscription goes away, so
// shutdown is signaled through doneCh instead.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer close(p.doneCh)
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.doneCh:
	}
}
