package bus

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

type fakeReadWriter struct {
	readCh chan []byte

	lock    sync.Mutex
	written [][]byte
}

func newFakeReadWriter() *fakeReadWriter {
	return &fakeReadWriter{readCh: make(chan []byte, 4)}
}

func (f *fakeReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-f.readCh
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

func (f *fakeReadWriter) WritePacket(pkt []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.written = append(f.written, pkt)
	return nil
}

func (f *fakeReadWriter) sent(t *testing.T) []message.Message {
	f.lock.Lock()
	defer f.lock.Unlock()
	out := make([]message.Message, len(f.written))
	for i, pkt := range f.written {
		m, err := message.Decode(pkt)
		require.NoError(t, err)
		out[i] = m
	}
	return out
}

func waitResult(t *testing.T, cmd *Command) Result {
	select {
	case res := <-cmd.ResultChan():
		return res
	case <-time.After(time.Second):
		t.Fatal("result timeout")
		return Result{}
	}
}

func TestClientDo(t *testing.T) {
	rw := newFakeReadWriter()
	client := NewClient(rw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	cmd := client.Do(message.New(5, 2, 10, 1.5))
	require.Equal(t, uint8(5), cmd.SliceID())
	require.Equal(t, []message.Message{*message.New(5, 2, 10, 1.5)}, rw.sent(t))

	reply := message.New(5, 2, 10, 42)
	rw.readCh <- reply.Bytes()
	res := waitResult(t, cmd)
	require.NoError(t, res.Err)
	require.Equal(t, *reply, res.Reply)
}

func TestClientPerSliceOrdering(t *testing.T) {
	rw := newFakeReadWriter()
	client := NewClient(rw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	cmdA1 := client.Do(message.New(1, 1, 1))
	cmdB := client.Do(message.New(2, 1, 1))
	cmdA2 := client.Do(message.New(1, 1, 2))

	// slice 2 answers first, then slice 1 answers both in order
	rw.readCh <- message.New(2, 1, 1, 20).Bytes()
	rw.readCh <- message.New(1, 1, 1, 11).Bytes()
	rw.readCh <- message.New(1, 1, 2, 12).Bytes()

	require.Equal(t, float32(20), waitResult(t, cmdB).Reply.Data[0])
	require.Equal(t, float32(11), waitResult(t, cmdA1).Reply.Data[0])
	require.Equal(t, float32(12), waitResult(t, cmdA2).Reply.Data[0])
}

func TestClientStaleCommand(t *testing.T) {
	rw := newFakeReadWriter()
	client := NewClient(rw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	// the slice never answers the first command, only the second
	stale := client.Do(message.New(1, 1, 1))
	fresh := client.Do(message.New(1, 1, 2))
	rw.readCh <- message.New(1, 1, 2, 99).Bytes()

	require.Equal(t, ErrNoReply, waitResult(t, stale).Err)
	res := waitResult(t, fresh)
	require.NoError(t, res.Err)
	require.Equal(t, float32(99), res.Reply.Data[0])
}

func TestClientCancel(t *testing.T) {
	rw := newFakeReadWriter()
	client := NewClient(rw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	cmdA := client.Do(message.New(1, 1, 1))
	cmdB := client.Do(message.New(1, 1, 1))
	require.True(t, client.Cancel(cmdA))
	require.Equal(t, ErrNoReply, waitResult(t, cmdA).Err)
	require.False(t, client.Cancel(cmdA))

	// the cancelled command no longer takes the reply
	rw.readCh <- message.New(1, 1, 1, 7).Bytes()
	res := waitResult(t, cmdB)
	require.NoError(t, res.Err)
	require.Equal(t, float32(7), res.Reply.Data[0])
}

func TestClientSliceError(t *testing.T) {
	rw := newFakeReadWriter()
	client := NewClient(rw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	cmd := client.Do(message.New(3, 1, 1))
	reply := message.New(3, 1, 1)
	reply.ErrorFlags = FlagHandlerError
	rw.readCh <- reply.Bytes()

	res := waitResult(t, cmd)
	require.Equal(t, &SliceError{Flags: FlagHandlerError}, res.Err)
	require.Equal(t, *reply, res.Reply)
}

func TestClientEvents(t *testing.T) {
	rw := newFakeReadWriter()
	client := NewClient(rw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	tm := message.New(7, 3, 0, 98.6)
	rw.readCh <- tm.Bytes()
	select {
	case got := <-client.EventChan():
		require.Equal(t, *tm, got)
	case <-time.After(time.Second):
		t.Fatal("event timeout")
	}
}

func TestClientTransportFailure(t *testing.T) {
	rw := newFakeReadWriter()
	client := NewClient(rw)

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	cmd := client.Do(message.New(4, 1, 1))
	close(rw.readCh)

	require.Equal(t, io.EOF, <-done)
	res := waitResult(t, cmd)
	require.Equal(t, io.EOF, res.Err)
}
