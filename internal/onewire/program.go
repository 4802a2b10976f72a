// internal/onewire/program.go
package onewire

import (
	"fmt"

	"github.com/tamzrod/ibutton-cloner/internal/fault"
)

// ProgramByte writes v LSB first with RW1990 programming slots.
// Each bit is a falling edge held short for a 1 and for a full slot for a 0,
// then the line is released and padded to the fixed programming period.
//
// Polarity: some RW1990 firmware in the field holds the long low for a 1.
// If a programmed tag reads back bit-inverted, swap ProgramShortLow and
// ProgramLongLow through WithTiming rather than changing this loop.
func (b *Bus) ProgramByte(v byte) {
	t := b.timing
	for i := 0; i < 8; i++ {
		low := t.ProgramLongLow
		if v&0x01 != 0 {
			low = t.ProgramShortLow
		}

		b.pin.Low()
		b.clock.Delay(low)
		b.pin.Release()
		if pad := t.ProgramSlot - low; pad > 0 {
			b.clock.Delay(pad)
		}

		v >>= 1
	}
}

// WriteIdentifier programs id onto the single rewritable tag in contact.
//
// The order is fixed:
//
//	reset, skip, 0x33, reset, skip, 0xD5, id[0..7], reset
//
// The leading 0x33 retrieves nothing but the tag must see it before 0xD5.
// Do not reorder or drop any step.
func (b *Bus) WriteIdentifier(id [8]byte) error {
	t := b.timing

	if !b.Reset() {
		return fmt.Errorf("onewire: write: %w", fault.ErrDeviceNotPresent)
	}
	b.Skip()
	b.Write(CmdReadROM)

	b.Reset()
	b.Skip()
	b.Write(CmdProgram)

	for i, v := range id {
		b.clock.Delay(t.ProgramBytePre)
		b.ProgramByte(v)
		b.clock.Delay(t.ProgramBytePost)
		b.tracef("onewire: programmed byte %d = 0x%02X", i, v)
	}

	b.Reset()
	return nil
}

// ReadROM reads the identifier of the single device in contact.
func (b *Bus) ReadROM() ([8]byte, error) {
	var id [8]byte

	if !b.Reset() {
		return id, fmt.Errorf("onewire: read rom: %w", fault.ErrDeviceNotPresent)
	}
	b.Write(CmdReadROM)

	for i := range id {
		id[i] = b.Read()
	}
	return id, nil
}
