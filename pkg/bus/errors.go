package bus

import (
	"errors"
	"fmt"
)

// ErrNoReply fails a pending command whose reply never arrived: the
// reply from its slice belonged to a later command, or the caller gave
// up and cancelled it.
var ErrNoReply = errors.New("no reply")

// Error flag bits set in replies produced by Responder. Slices built on
// other firmware may define their own bits; the wire format treats the
// flags as opaque.
const (
	// FlagHandlerError indicates the command handler failed.
	FlagHandlerError uint8 = 1 << 0
	// FlagUnknownCommand indicates the slice does not implement the command.
	FlagUnknownCommand uint8 = 1 << 1
)

// SliceError reports non-zero error flags carried in a reply.
type SliceError struct {
	Flags uint8
}

// Error implements error.
func (e *SliceError) Error() string {
	return fmt.Sprintf("slice error flags %#02x", e.Flags)
}
