// internal/status/render.go
package status

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/ibutton-cloner/internal/command"
	"github.com/tamzrod/ibutton-cloner/internal/fault"
	"github.com/tamzrod/ibutton-cloner/internal/slot"
)

var headers = map[command.Kind]string{
	command.Show:           "===SHOW contents of the active slot===",
	command.Edit:           "===EDIT the active slot===",
	command.Clear:          "===CLEAR the active slot===",
	command.Dump:           "===DUMP all slots===",
	command.ReadFromDevice: "===READ FROM tag to the active slot===",
	command.WriteToDevice:  "===WRITE TO tag from the active slot===",
	command.ListDevice:     "===LIST connected tag===",
	command.WaitForDevice:  "===WAIT for tag===",
	command.ToggleAdvanced: "===ADVANCED mode===",
	command.SelectSlot:     "===CHANGE active slot===",
	command.WipeAll:        "===WIPE all slots===",
}

// Render converts an Outcome into console lines.
// No IO. No side effects.
func Render(o Outcome) []string {
	if o.Kind == command.Unrecognized {
		return []string{"[ERROR] Unrecognized input: " + o.Message}
	}

	var lines []string
	if h, ok := headers[o.Kind]; ok {
		lines = append(lines, h)
	}

	if !o.OK {
		lines = append(lines, errorLine(o))
		if o.Message != "" {
			lines = append(lines, "[INFO] "+o.Message)
		}
		return lines
	}

	switch o.Kind {
	case command.Show:
		if o.Record != nil {
			lines = append(lines, "[INFO] "+SlotLine(*o.Record, false, o.Advanced))
		}

	case command.Edit:
		if o.Record != nil {
			lines = append(lines,
				fmt.Sprintf("[SUCCESS] Slot %X saved!", o.Slot),
				"[INFO] "+SlotLine(*o.Record, false, o.Advanced),
			)
		}

	case command.Clear:
		lines = append(lines, fmt.Sprintf("[SUCCESS] Slot %X cleared!", o.Slot))

	case command.Dump:
		lines = append(lines, DumpLines(o.Records, o.Slot, o.Advanced)...)
		lines = append(lines, "[SUCCESS] Done dumping all slots!")

	case command.ReadFromDevice:
		if o.Identifier != nil {
			lines = append(lines, fmt.Sprintf("[SUCCESS] Read %s into slot %X", HexBytes(o.Identifier[:]), o.Slot))
		}

	case command.WriteToDevice:
		lines = append(lines, fmt.Sprintf("[SUCCESS] Slot %X written to the tag.", o.Slot))

	case command.ListDevice:
		if o.Identifier != nil {
			crc := "crc ok"
			if !o.CRCValid {
				crc = "crc mismatch"
			}
			lines = append(lines, fmt.Sprintf("[SUCCESS] Connected tag: %s (%s)", HexBytes(o.Identifier[:]), crc))
		}

	case command.WaitForDevice:
		lines = append(lines, "[SUCCESS] A tag has been detected!")

	case command.ToggleAdvanced:
		if o.Advanced {
			lines = append(lines,
				"[INFO] Slot selection via console ENABLED, selector lines are ignored.",
				"[WARNING] All 8 identifier bytes are now visible and editable.",
			)
		} else {
			lines = append(lines,
				"[INFO] Slot selection via console DISABLED, selector lines are followed.",
			)
		}

	case command.SelectSlot:
		if o.Message == "" {
			lines = append(lines, fmt.Sprintf("[SUCCESS] Active slot changed to: %X", o.Slot))
		}

	case command.WipeAll:
		lines = append(lines, "[SUCCESS] All slots cleared!")
		lines = append(lines, DumpLines(o.Records, o.Slot, o.Advanced)...)
	}

	if o.Message != "" {
		lines = append(lines, "[INFO] "+o.Message)
	}
	return lines
}

func errorLine(o Outcome) string {
	switch {
	case errors.Is(o.Err, fault.ErrSlotEmpty):
		return fmt.Sprintf("[ERROR] No code stored in slot %X yet.", o.Slot)
	case errors.Is(o.Err, fault.ErrDeviceNotPresent):
		return "[ERROR] No tag detected. Check your electrical connections!"
	case o.Err == nil:
		return "[ERROR] Operation failed."
	}
	return fmt.Sprintf("[ERROR] %v (code=%d)", o.Err, o.Code)
}

// SlotLine renders one slot as "<slot> : <name> : <bytes>".
func SlotLine(r slot.Record, active, advanced bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%X : %s : ", r.Slot, r.Name.String())

	if r.Full {
		n := ShownBytes
		if advanced {
			n = len(r.Identifier)
		}
		b.WriteString(HexBytes(r.Identifier[:n]))
	} else {
		b.WriteString(EmptySlot)
	}

	if active {
		b.WriteString(ActiveMarker)
	}
	return b.String()
}

// DumpLines renders every record, marking the active one.
func DumpLines(recs []slot.Record, active uint8, advanced bool) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, SlotLine(r, r.Slot == active, advanced))
	}
	return out
}

// HexBytes renders bytes as "0x01, 0x02, ...".
func HexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("0x%02X", v)
	}
	return strings.Join(parts, ", ")
}
