// internal/onewire/bus.go
package onewire

import (
	"errors"
	"time"
)

// Logger is the optional trace sink for bus operations.
type Logger interface {
	Printf(format string, v ...any)
}

// Bus is a bit-banged single-wire master.
// It is not safe for concurrent use; the caller owns the line.
type Bus struct {
	pin    Pin
	clock  Clock
	timing Timing
	logger Logger

	// search tree state
	rom                   [8]byte
	lastDiscrepancy       int
	lastFamilyDiscrepancy int
	lastDeviceFlag        bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithTiming replaces the default slot timing.
func WithTiming(t Timing) Option {
	return func(b *Bus) {
		b.timing = t
	}
}

// WithLogger sets a trace logger.
func WithLogger(l Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// New creates a bus master on pin, timed by clock.
func New(pin Pin, clock Clock, opts ...Option) (*Bus, error) {
	if pin == nil {
		return nil, errors.New("onewire: pin required")
	}
	if clock == nil {
		return nil, errors.New("onewire: clock required")
	}

	b := &Bus{
		pin:    pin,
		clock:  clock,
		timing: DefaultTiming(),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.pin.Release()
	return b, nil
}

// Timing returns the slot timing in use.
func (b *Bus) Timing() Timing { return b.timing }

// Reset sends a reset pulse and reports whether any device answered with presence.
func (b *Bus) Reset() bool {
	t := b.timing

	// Wait for the line to float high; a shorted line has no presence.
	b.pin.Release()
	for tries := 125; !b.pin.Read(); tries-- {
		if tries == 0 {
			b.tracef("onewire: line held low, reset aborted")
			return false
		}
		b.clock.Delay(2 * time.Microsecond)
	}

	b.pin.Low()
	b.clock.Delay(t.ResetLow)
	b.pin.Release()
	b.clock.Delay(t.PresenceWait)
	presence := !b.pin.Read()
	b.clock.Delay(t.ResetRecovery)

	return presence
}

// ---- bit level ----

func (b *Bus) writeBit(v bool) {
	t := b.timing
	if v {
		b.pin.Low()
		b.clock.Delay(t.Write1Low)
		b.pin.Release()
		b.clock.Delay(t.Write1High)
		return
	}
	b.pin.Low()
	b.clock.Delay(t.Write0Low)
	b.pin.Release()
	b.clock.Delay(t.Write0High)
}

func (b *Bus) readBit() bool {
	t := b.timing
	b.pin.Low()
	b.clock.Delay(t.ReadLow)
	b.pin.Release()
	b.clock.Delay(t.ReadSample)
	v := b.pin.Read()
	b.clock.Delay(t.ReadRecovery)
	return v
}

// ---- byte level ----

// Write transmits v LSB first using standard write slots.
func (b *Bus) Write(v byte) {
	for i := 0; i < 8; i++ {
		b.writeBit(v&0x01 != 0)
		v >>= 1
	}
}

// Read receives one byte LSB first.
func (b *Bus) Read() byte {
	var v byte
	for i := 0; i < 8; i++ {
		if b.readBit() {
			v |= 1 << uint(i)
		}
	}
	return v
}

// Skip addresses every device on the line at once.
// Only meaningful with exactly one tag in contact.
func (b *Bus) Skip() {
	b.Write(CmdSkipROM)
}

func (b *Bus) tracef(format string, v ...any) {
	if b.logger != nil {
		b.logger.Printf(format, v...)
	}
}
