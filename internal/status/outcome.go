// internal/status/outcome.go
package status

import (
	"github.com/tamzrod/ibutton-cloner/internal/command"
	"github.com/tamzrod/ibutton-cloner/internal/slot"
)

// Outcome is exactly what one dispatched command reports.
// It contains no logic and no memory of earlier commands.
type Outcome struct {
	Kind   command.Kind
	Source command.Source

	// Slot is the active slot when the command ran.
	Slot     uint8
	Advanced bool

	OK   bool
	Err  error
	Code uint16

	// Show, Edit: the affected slot.
	Record *slot.Record

	// Dump, WipeAll: every slot in order.
	Records []slot.Record

	// ReadFromDevice, ListDevice, WriteToDevice: the identifier on the wire.
	Identifier *slot.Identifier
	CRCValid   bool

	// Free-form detail (cancellations, mode changes).
	Message string
}
