// Package message defines the CRUMBS message, the fixed-size unit of
// communication exchanged with slices on the bus.
package message

// A CRUMBS message is always 28 bytes on the wire:
//
//	offset 0      sliceID      target slice
//	offset 1      typeID       module type of the slice
//	offset 2      commandType  action selector, interpreted per typeID
//	offset 3..26  data[0..5]   six IEEE-754 float32 values, little-endian
//	offset 27     errorFlags   status bits
//
// Integer fields are single bytes and floats are encoded little-endian,
// matching the byte order of the microcontrollers the slices run on.
// The meaning of commandType and errorFlags is owned by whoever
// dispatches the message; this package only guarantees the layout.
//
// Producer: controller or slice firmware
// Consumer: the peer on the other end of the bus
