// internal/status/constants.go
package status

// Output vocabulary shared by the dispatcher and every sink.
// These values are fixed and MUST NOT be configurable.

// ---- SIGNALS ----

// Signal is what the bicolor indicator shows.
type Signal uint8

// SignalBusy marks an operation in progress (red on).
const SignalBusy Signal = 0

// SignalSuccess marks a completed operation (green blink).
const SignalSuccess Signal = 1

// SignalFailure marks a failed operation (red blink).
const SignalFailure Signal = 2

func (s Signal) String() string {
	switch s {
	case SignalBusy:
		return "busy"
	case SignalSuccess:
		return "success"
	case SignalFailure:
		return "failure"
	}
	return "unknown"
}

// ---- RENDERING ----

// EmptySlot is printed in place of an identifier for an empty slot.
const EmptySlot = "<EMPTY SLOT>"

// ActiveMarker is appended to the active slot in a dump.
const ActiveMarker = "  <<ACTIVE>>  "

// ShownBytes is how many identifier bytes are rendered outside advanced mode.
// Byte 7 (the checksum) is hidden.
const ShownBytes = 7
