// internal/command/command.go
package command

// Kind is one decoded command.
type Kind uint8

const (
	None Kind = iota
	Show
	Edit
	Clear
	Dump
	ReadFromDevice
	WriteToDevice
	ListDevice
	WaitForDevice
	ToggleAdvanced
	SelectSlot
	WipeAll
	Unrecognized
)

var kindNames = map[Kind]string{
	None:           "none",
	Show:           "show",
	Edit:           "edit",
	Clear:          "clear",
	Dump:           "dump",
	ReadFromDevice: "read",
	WriteToDevice:  "write",
	ListDevice:     "list",
	WaitForDevice:  "wait",
	ToggleAdvanced: "advanced",
	SelectSlot:     "select",
	WipeAll:        "wipe",
	Unrecognized:   "unrecognized",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Source tells where a request came from.
type Source uint8

const (
	FromChannel Source = iota
	FromButtons
)

func (s Source) String() string {
	if s == FromButtons {
		return "buttons"
	}
	return "channel"
}

// EditPayload is what an Edit carries.
// Identifier nil keeps the stored identifier; its length is the arity.
// Name nil leaves the stored name; an empty non-nil Name clears it.
type EditPayload struct {
	Identifier []byte
	Name       []byte
}

// Request is one resolved action for the dispatcher.
type Request struct {
	Kind   Kind
	Source Source

	Edit EditPayload

	// SelectSlot: the raw selector character (expected 0-9, A-F).
	Selector byte

	// WipeAll: true only when the confirmation sequence matched.
	Confirmed bool

	// Unrecognized: the offending input byte.
	Raw byte
}
