// internal/fault/fault.go
package fault

import "errors"

// Error is a classified failure. Code is stable and is what the
// status sink and logs report; the text is for humans only.
type Error struct {
	code uint16
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the numeric kind of the failure.
func (e *Error) Code() uint16 { return e.code }

// ---- CODES ----

const (
	CodeDeviceNotPresent    uint16 = 1
	CodeSlotEmpty           uint16 = 2
	CodeMalformedPayload    uint16 = 3
	CodeUnsupportedArity    uint16 = 4
	CodeInvalidSlotSelector uint16 = 5
	CodeFraming             uint16 = 6
	CodeNotPermitted        uint16 = 7
	CodeVerifyMismatch      uint16 = 8
	CodeStorage             uint16 = 9
	CodeTimeout             uint16 = 10
)

// ---- KINDS ----

var (
	// ErrDeviceNotPresent means discovery found no tag in contact.
	ErrDeviceNotPresent = &Error{CodeDeviceNotPresent, "device not present"}

	// ErrSlotEmpty means a write-to-device was attempted from an empty slot.
	ErrSlotEmpty = &Error{CodeSlotEmpty, "slot is empty"}

	// ErrMalformedPayload means edit data failed parsing or range checks.
	ErrMalformedPayload = &Error{CodeMalformedPayload, "malformed payload"}

	// ErrUnsupportedArity is the disabled 6-byte family-code autofill path.
	ErrUnsupportedArity = &Error{CodeUnsupportedArity, "unsupported identifier arity"}

	// ErrInvalidSlotSelector means SelectSlot got something other than 0-F.
	ErrInvalidSlotSelector = &Error{CodeInvalidSlotSelector, "invalid slot selector"}

	// ErrFraming means the command channel lost sync. Recovery is a hard reset.
	ErrFraming = &Error{CodeFraming, "command channel framing error"}

	// ErrNotPermitted means the command needs advanced mode (or confirmation).
	ErrNotPermitted = &Error{CodeNotPermitted, "not permitted in current mode"}

	// ErrVerifyMismatch means the read-back after programming differs.
	ErrVerifyMismatch = &Error{CodeVerifyMismatch, "verify after write mismatch"}

	// ErrStorage wraps persistent store I/O failures.
	ErrStorage = &Error{CodeStorage, "storage failure"}

	// ErrTimeout means a blocking wait hit its configured bound.
	ErrTimeout = &Error{CodeTimeout, "wait timed out"}
)

// CodeOf extracts a best-effort code from an error without assuming concrete types.
// nil maps to 0; an unclassified error maps to 0xFFFF.
func CodeOf(err error) uint16 {
	if err == nil {
		return 0
	}

	type coder interface{ Code() uint16 }

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return 0xFFFF
}
