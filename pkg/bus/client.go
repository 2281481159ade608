// Package bus provides the two ends of a CRUMBS exchange: a Client
// that sends commands to slices, and a Responder that implements one
// slice.
package bus

import (
	"context"
	"sync"

	"github.com/CameronBrooks11/CRUMBS/pkg/comm"
	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

// Result is the outcome of a command sent with Do.
type Result struct {
	Err   error
	Reply message.Message
}

// Command represents a pending command waiting for its reply.
type Command struct {
	sliceID     uint8
	commandType uint8
	resultCh    chan Result
}

// SliceID returns the slice the command was addressed to.
func (c *Command) SliceID() uint8 {
	return c.sliceID
}

// ResultChan returns the chan to retrieve the result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// Client sends commands to slices and matches telemetry replies.
// The wire carries no sequence numbers; a slice answers its commands in
// order, so a reply goes to the oldest pending command for that slice
// with the reply's commandType. Pending commands skipped by the match
// missed their turn and fail with ErrNoReply.
type Client struct {
	pipe    *comm.Pipe
	eventCh chan message.Message

	pending  map[uint8][]*Command
	pendLock sync.Mutex
}

// NewClient creates a Client over a packet transport.
func NewClient(rw comm.PacketReadWriter) *Client {
	c := &Client{
		pipe:    comm.NewPipe(rw),
		eventCh: make(chan message.Message, 1),
		pending: make(map[uint8][]*Command),
	}
	c.pipe.Handler = c
	return c
}

// EventChan delivers telemetry that matches no pending command.
func (c *Client) EventChan() <-chan message.Message {
	return c.eventCh
}

// DoWith sends a command and expects the result in the provided chan.
func (c *Client) DoWith(m *message.Message, ch chan Result) *Command {
	cmd := &Command{sliceID: m.SliceID, commandType: m.CommandType, resultCh: ch}
	c.pendLock.Lock()
	defer c.pendLock.Unlock()
	if err := c.pipe.Send(m); err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	c.pending[m.SliceID] = append(c.pending[m.SliceID], cmd)
	return cmd
}

// Do sends a command and returns a Command for the result.
func (c *Client) Do(m *message.Message) *Command {
	return c.DoWith(m, make(chan Result, 1))
}

// Cancel gives up on a pending command. It reports whether the command
// was still pending; when it was, the command fails with ErrNoReply and
// a later reply from its slice will not be matched to it.
func (c *Client) Cancel(cmd *Command) bool {
	c.pendLock.Lock()
	defer c.pendLock.Unlock()
	q := c.pending[cmd.sliceID]
	for i, pend := range q {
		if pend != cmd {
			continue
		}
		q = append(q[:i], q[i+1:]...)
		if len(q) == 0 {
			delete(c.pending, cmd.sliceID)
		} else {
			c.pending[cmd.sliceID] = q
		}
		cmd.resultCh <- Result{Err: ErrNoReply}
		return true
	}
	return false
}

// HandleMessage implements comm.MessageHandler. A reply echoes the
// commandType of the command it answers, so the match is the oldest
// pending command with that commandType; older entries it skips over
// get no reply anymore and fail with ErrNoReply.
func (c *Client) HandleMessage(ctx context.Context, m message.Message) {
	c.pendLock.Lock()
	var cmd *Command
	var stale []*Command
	q := c.pending[m.SliceID]
	for i, pend := range q {
		if pend.commandType != m.CommandType {
			continue
		}
		cmd, stale = pend, q[:i]
		q = q[i+1:]
		break
	}
	if cmd == nil && len(q) > 0 {
		// The slice answered with a different commandType than it was
		// sent. Take the oldest command rather than strand it.
		cmd, q = q[0], q[1:]
	}
	if cmd != nil {
		if len(q) == 0 {
			delete(c.pending, m.SliceID)
		} else {
			c.pending[m.SliceID] = q
		}
	}
	c.pendLock.Unlock()
	for _, pend := range stale {
		pend.resultCh <- Result{Err: ErrNoReply}
	}
	if cmd == nil {
		c.eventCh <- m
		return
	}
	res := Result{Reply: m}
	if m.ErrorFlags != 0 {
		res.Err = &SliceError{Flags: m.ErrorFlags}
	}
	cmd.resultCh <- res
}

// Run processes incoming messages until the transport fails. Commands
// still pending at that point fail with the transport error.
func (c *Client) Run(ctx context.Context) error {
	err := c.pipe.Run(ctx)
	c.pendLock.Lock()
	pending := c.pending
	c.pending = make(map[uint8][]*Command)
	c.pendLock.Unlock()
	for _, q := range pending {
		for _, cmd := range q {
			cmd.resultCh <- Result{Err: err}
		}
	}
	return err
}
