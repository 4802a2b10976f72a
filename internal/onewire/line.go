// internal/onewire/line.go
package onewire

import "time"

// Pin is one open-drain line with an external pull-up.
// Low drives the line, Release floats it (the pull-up takes it high),
// Read samples the current level (true = high).
type Pin interface {
	Low()
	Release()
	Read() bool
}

// Clock provides the microsecond delays the bus timing is built from.
// Implementations must not return early.
type Clock interface {
	Delay(d time.Duration)
}

// Timing holds every slot duration used on the wire.
// Defaults match a standard-speed 1-Wire device and the RW1990 programming slot.
type Timing struct {
	// ---- reset / presence ----
	ResetLow      time.Duration
	PresenceWait  time.Duration
	ResetRecovery time.Duration

	// ---- standard write slots ----
	Write1Low  time.Duration
	Write1High time.Duration
	Write0Low  time.Duration
	Write0High time.Duration

	// ---- standard read slot ----
	ReadLow      time.Duration
	ReadSample   time.Duration
	ReadRecovery time.Duration

	// ---- RW1990 programming slot ----
	ProgramShortLow time.Duration // 1-bit: early release
	ProgramLongLow  time.Duration // 0-bit: full slot-length low
	ProgramSlot     time.Duration // fixed period per bit, low time included
	ProgramBytePre  time.Duration
	ProgramBytePost time.Duration
}

// DefaultTiming returns the timing the target device family was validated with.
// Changing the programming values risks permanently corrupting a tag.
func DefaultTiming() Timing {
	return Timing{
		ResetLow:      480 * time.Microsecond,
		PresenceWait:  70 * time.Microsecond,
		ResetRecovery: 410 * time.Microsecond,

		Write1Low:  6 * time.Microsecond,
		Write1High: 64 * time.Microsecond,
		Write0Low:  60 * time.Microsecond,
		Write0High: 10 * time.Microsecond,

		ReadLow:      6 * time.Microsecond,
		ReadSample:   9 * time.Microsecond,
		ReadRecovery: 55 * time.Microsecond,

		ProgramShortLow: 1 * time.Microsecond,
		ProgramLongLow:  60 * time.Microsecond,
		ProgramSlot:     10 * time.Millisecond,
		ProgramBytePre:  5 * time.Millisecond,
		ProgramBytePost: 15 * time.Millisecond,
	}
}

// ---- ROM / function commands ----

const (
	CmdReadROM   byte = 0x33
	CmdSkipROM   byte = 0xCC
	CmdSearchROM byte = 0xF0

	// CmdProgram starts an RW1990 identifier write. It must be preceded by a
	// CmdReadROM priming step on the same contact or the tag is destroyed.
	CmdProgram byte = 0xD5
)
