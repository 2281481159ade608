package comm

import (
	"context"

	"github.com/golang/glog"
)

// Bridge copies packets between two packet transports in both
// directions, e.g. between a serial port and a message queue. Packets
// are moved as opaque bytes; nothing is decoded or re-framed.
type Bridge struct {
	A, B PacketReadWriter
}

// Run copies packets until either transport fails.
func (b *Bridge) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- pump(b.A, b.B) }()
	go func() { errCh <- pump(b.B, b.A) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func pump(from PacketReader, to PacketWriter) error {
	for {
		pkt, err := from.ReadPacket()
		if err != nil {
			return err
		}
		if err = to.WritePacket(pkt); err != nil {
			return err
		}
		glog.V(3).Infof("bridged %d bytes", len(pkt))
	}
}
