// Package dispatch routes decoded CRUMBS messages to handlers by
// module type and command. The meaning of a command is owned entirely
// by the registered handler.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

// Handler interprets one command message and produces the reply.
// Handlers with nothing to report return the zero Message.
type Handler interface {
	Handle(context.Context, message.Message) (message.Message, error)
}

// HandleFunc is func form of Handler.
type HandleFunc func(context.Context, message.Message) (message.Message, error)

// Handle implements Handler.
func (f HandleFunc) Handle(ctx context.Context, m message.Message) (message.Message, error) {
	return f(ctx, m)
}

// ErrUnknownType indicates no handler is registered for a module type.
type ErrUnknownType struct {
	TypeID uint8
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown module type %d", e.TypeID)
}

// ErrUnknownCommand indicates the module type is known but the command
// is not.
type ErrUnknownCommand struct {
	TypeID      uint8
	CommandType uint8
}

// Error implements error.
func (e *ErrUnknownCommand) Error() string {
	return fmt.Sprintf("unknown command %d for module type %d", e.CommandType, e.TypeID)
}

// Mux routes messages to handlers. A handler registered for a
// (typeID, commandType) pair wins over one registered for the typeID
// alone; Default catches everything else.
type Mux struct {
	Default Handler

	lock  sync.RWMutex
	types map[uint8]Handler
	cmds  map[uint16]Handler
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{
		types: make(map[uint8]Handler),
		cmds:  make(map[uint16]Handler),
	}
}

// HandleType registers a handler for all commands of a module type.
func (x *Mux) HandleType(typeID uint8, h Handler) *Mux {
	x.lock.Lock()
	defer x.lock.Unlock()
	x.types[typeID] = h
	return x
}

// HandleCommand registers a handler for one command of a module type.
func (x *Mux) HandleCommand(typeID, commandType uint8, h Handler) *Mux {
	x.lock.Lock()
	defer x.lock.Unlock()
	x.cmds[cmdKey(typeID, commandType)] = h
	if _, ok := x.types[typeID]; !ok {
		// mark the type as known so unmatched commands report
		// ErrUnknownCommand instead of ErrUnknownType
		x.types[typeID] = nil
	}
	return x
}

// Handle implements Handler.
func (x *Mux) Handle(ctx context.Context, m message.Message) (message.Message, error) {
	x.lock.RLock()
	h, ok := x.cmds[cmdKey(m.TypeID, m.CommandType)]
	typeKnown := ok
	if !ok {
		h, typeKnown = x.types[m.TypeID]
	}
	x.lock.RUnlock()
	if h == nil {
		if h = x.Default; h == nil {
			if typeKnown {
				return message.Message{}, &ErrUnknownCommand{TypeID: m.TypeID, CommandType: m.CommandType}
			}
			return message.Message{}, &ErrUnknownType{TypeID: m.TypeID}
		}
	}
	return h.Handle(ctx, m)
}

func cmdKey(typeID, commandType uint8) uint16 {
	return uint16(typeID)<<8 | uint16(commandType)
}
