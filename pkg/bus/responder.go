package bus

import (
	"context"

	"github.com/golang/glog"

	"github.com/CameronBrooks11/CRUMBS/pkg/comm"
	"github.com/CameronBrooks11/CRUMBS/pkg/dispatch"
	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

// Responder is the slice end of the bus: it receives commands addressed
// to its slice ID, runs them through a handler, and replies. Every
// command gets exactly one reply; handler failures are reported in the
// reply's error flags.
type Responder struct {
	SliceID uint8
	TypeID  uint8
	Handler dispatch.Handler

	pipe *comm.Pipe
}

// NewResponder creates a Responder over a packet transport.
func NewResponder(rw comm.PacketReadWriter, sliceID, typeID uint8, h dispatch.Handler) *Responder {
	r := &Responder{SliceID: sliceID, TypeID: typeID, Handler: h, pipe: comm.NewPipe(rw)}
	r.pipe.Handler = comm.HandleMessageFunc(r.handleMessage)
	return r
}

// SendTelemetry sends an unsolicited telemetry message from this slice.
func (r *Responder) SendTelemetry(commandType uint8, data ...float32) error {
	m := message.New(r.SliceID, r.TypeID, commandType, data...)
	return r.pipe.Send(m)
}

func (r *Responder) handleMessage(ctx context.Context, m message.Message) {
	if m.SliceID != r.SliceID {
		return
	}
	reply, err := r.Handler.Handle(ctx, m)
	reply.SliceID, reply.TypeID = r.SliceID, r.TypeID
	if err != nil {
		glog.V(1).Infof("command %d failed: %v", m.CommandType, err)
		reply.CommandType = m.CommandType
		switch err.(type) {
		case *dispatch.ErrUnknownType, *dispatch.ErrUnknownCommand:
			reply.ErrorFlags |= FlagUnknownCommand
		default:
			reply.ErrorFlags |= FlagHandlerError
		}
	}
	if sendErr := r.pipe.Send(&reply); sendErr != nil {
		glog.Errorf("reply send failed: %v", sendErr)
	}
}

// Run implements Runnable.
func (r *Responder) Run(ctx context.Context) error {
	return r.pipe.Run(ctx)
}
