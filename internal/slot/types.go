// internal/slot/types.go
package slot

import (
	"strings"

	"github.com/tamzrod/ibutton-cloner/internal/crc8"
)

// Identifier is an 8-byte tag ROM: family code, 6 payload bytes, CRC8.
type Identifier [8]byte

// Family returns byte 0.
func (id Identifier) Family() byte { return id[0] }

// IsZero reports whether all bytes are zero (an empty slot).
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

// Valid reports whether byte 7 is the CRC8 of bytes 0..6.
func (id Identifier) Valid() bool {
	return crc8.Valid(id[:])
}

// Name is the 8-byte ASCII slot label. 0x00 terminates and pads.
type Name [8]byte

// NoName is what an all-zero name renders as.
const NoName = "<NONAME>"

// MakeName builds a Name from raw input, ending at the first CR or LF.
// Input beyond 8 bytes is dropped.
func MakeName(raw []byte) Name {
	var n Name
	for i := 0; i < len(n) && i < len(raw); i++ {
		c := raw[i]
		if c == '\r' || c == '\n' {
			break
		}
		n[i] = c
	}
	return n
}

// IsZero reports whether the name is unset.
func (n Name) IsZero() bool {
	return n[0] == 0
}

// String renders the name for display: zero bytes show as spaces,
// an unset name shows as NoName.
func (n Name) String() string {
	if n.IsZero() {
		return NoName
	}
	var b strings.Builder
	for _, c := range n {
		if c == 0 {
			c = ' '
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Record is one slot as stored.
type Record struct {
	Slot       uint8
	Identifier Identifier
	Name       Name
	Full       bool
}
