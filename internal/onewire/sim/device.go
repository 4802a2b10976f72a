// internal/onewire/sim/device.go
package sim

import (
	"fmt"
	"time"

	"github.com/tamzrod/ibutton-cloner/internal/onewire"
)

// Device emulates one RW1990 tag and the line it sits on.
// It implements onewire.Pin and onewire.Clock on a virtual timeline:
// Delay advances time, Low/Release edges are decoded by duration.
type Device struct {
	now      time.Duration
	driving  bool
	lowAt    time.Duration
	slotTx   bool
	holdLow  time.Duration // device keeps the line low until this instant
	presFrom time.Duration
	presTo   time.Duration

	present bool
	rom     [8]byte
	state   state

	rxByte byte
	rxBits int

	pos   int // bit position for read rom / search / program
	phase int // search: 0 bit, 1 complement, 2 direction

	progBuf [8]byte

	// primedIn is the reset window that saw a 0x33 after skip, -1 if none.
	// Programming is accepted only in the window right after it.
	primedIn int

	// ---- observation ----

	Bricked  bool
	Resets   int
	Searches int
	Programs int

	// Trace is every reset, command byte and programmed byte, in order:
	// "reset", "CC", "33", "program 01", ...
	Trace []string
}

type state int

const (
	stateDone state = iota
	stateROMCommand
	stateFunction
	stateReadROM
	stateSearch
	stateProgram
)

const (
	resetThreshold = 480 * time.Microsecond
	oneThreshold   = 15 * time.Microsecond
	presenceDelay  = 15 * time.Microsecond
	presenceLength = 120 * time.Microsecond
	zeroHold       = 45 * time.Microsecond
)

// NewDevice creates an emulated tag carrying id, in contact with the reader.
func NewDevice(id [8]byte) *Device {
	return &Device{rom: id, present: true, primedIn: -1}
}

// Insert puts the tag in contact.
func (d *Device) Insert() { d.present = true }

// Remove takes the tag out of contact.
func (d *Device) Remove() {
	d.present = false
	d.state = stateDone
	d.holdLow = 0
}

// Present reports whether the tag is in contact.
func (d *Device) Present() bool { return d.present }

// Identifier returns the ROM the tag currently answers with.
func (d *Device) Identifier() [8]byte { return d.rom }

// Now returns the virtual time elapsed on the line.
func (d *Device) Now() time.Duration { return d.now }

// ---- onewire.Clock ----

func (d *Device) Delay(dt time.Duration) {
	if dt > 0 {
		d.now += dt
	}
}

// ---- onewire.Pin ----

func (d *Device) Low() {
	if d.driving {
		return
	}
	d.driving = true
	d.lowAt = d.now

	d.slotTx = d.present && d.transmitting()
	if d.slotTx && !d.txBit() {
		d.holdLow = d.now + zeroHold
	}
}

func (d *Device) Release() {
	if !d.driving {
		return
	}
	d.driving = false
	held := d.now - d.lowAt

	if held >= resetThreshold {
		d.reset()
		return
	}
	if !d.present {
		return
	}
	if d.slotTx {
		d.slotTx = false
		d.advanceTx()
		return
	}
	d.receive(held < oneThreshold)
}

func (d *Device) Read() bool {
	if d.driving {
		return false
	}
	if d.now >= d.presFrom && d.now < d.presTo {
		return false
	}
	if d.now < d.holdLow {
		return false
	}
	return true
}

// ---- protocol ----

func (d *Device) reset() {
	d.Resets++
	d.Trace = append(d.Trace, "reset")
	d.rxByte = 0
	d.rxBits = 0
	d.holdLow = 0
	d.slotTx = false

	if !d.present {
		d.state = stateDone
		return
	}
	d.presFrom = d.now + presenceDelay
	d.presTo = d.presFrom + presenceLength
	d.state = stateROMCommand
}

func (d *Device) romBit(i int) bool {
	return d.rom[i/8]&(1<<uint(i%8)) != 0
}

func (d *Device) transmitting() bool {
	switch d.state {
	case stateReadROM:
		return true
	case stateSearch:
		return d.phase < 2
	}
	return false
}

func (d *Device) txBit() bool {
	bit := d.romBit(d.pos)
	if d.state == stateSearch && d.phase == 1 {
		return !bit
	}
	return bit
}

func (d *Device) advanceTx() {
	switch d.state {
	case stateReadROM:
		d.pos++
		if d.pos == 64 {
			d.state = stateDone
		}
	case stateSearch:
		d.phase++
	}
}

func (d *Device) receive(bit bool) {
	switch d.state {
	case stateROMCommand, stateFunction:
		if bit {
			d.rxByte |= 1 << uint(d.rxBits)
		}
		d.rxBits++
		if d.rxBits == 8 {
			cmd := d.rxByte
			d.rxByte = 0
			d.rxBits = 0
			d.command(cmd)
		}

	case stateSearch:
		// direction chosen by the master; drop out on mismatch
		if bit != d.romBit(d.pos) {
			d.state = stateDone
			return
		}
		d.pos++
		d.phase = 0
		if d.pos == 64 {
			d.state = stateDone
		}

	case stateProgram:
		if bit {
			d.progBuf[d.pos/8] |= 1 << uint(d.pos%8)
		}
		d.pos++
		if d.pos%8 == 0 {
			d.Trace = append(d.Trace, fmt.Sprintf("program %02X", d.progBuf[d.pos/8-1]))
		}
		if d.pos == 64 {
			d.Programs++
			if !d.Bricked {
				d.rom = d.progBuf
			}
			d.primedIn = -1
			d.state = stateDone
		}
	}
}

func (d *Device) command(cmd byte) {
	rom := d.state == stateROMCommand
	d.Trace = append(d.Trace, fmt.Sprintf("%02X", cmd))

	switch {
	case rom && cmd == onewire.CmdSkipROM:
		d.state = stateFunction

	case rom && cmd == onewire.CmdSearchROM:
		d.Searches++
		d.state = stateSearch
		d.pos = 0
		d.phase = 0

	case cmd == onewire.CmdReadROM:
		// only a 0x33 sent as a function command after skip primes the tag
		if !rom {
			d.primedIn = d.Resets
		}
		d.state = stateReadROM
		d.pos = 0

	case !rom && cmd == onewire.CmdProgram:
		if d.primedIn != d.Resets-1 {
			d.Bricked = true
		}
		d.state = stateProgram
		d.pos = 0
		d.progBuf = [8]byte{}

	default:
		d.state = stateDone
	}
}
