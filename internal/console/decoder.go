// internal/console/decoder.go
package console

import (
	"context"
	"fmt"

	"github.com/tamzrod/ibutton-cloner/internal/command"
	"github.com/tamzrod/ibutton-cloner/internal/fault"
)

// ------------------------------------------------------------
// COMMAND LETTERS
// ------------------------------------------------------------

var letters = map[byte]command.Kind{
	'S': command.Show,
	'E': command.Edit,
	'C': command.Clear,
	'D': command.Dump,
	'R': command.ReadFromDevice,
	'W': command.WriteToDevice,
	'L': command.ListDevice,
	'|': command.WaitForDevice,
	'A': command.ToggleAdvanced,
	'M': command.SelectSlot,
}

// wipeKey completes "W" into the wipe confirmation. Case-sensitive.
const wipeKey = "IPE"

// Decoder turns the raw console byte stream into requests.
// It implements the arbiter's Channel.
type Decoder struct {
	q *Queue

	// selecting is set after "M" then "L": the slot menu stays open.
	selecting bool

	// afterCR is set when a CR terminator was taken and its LF has not
	// arrived yet. That LF is dropped whenever it shows up.
	afterCR bool
}

// NewDecoder decodes bytes from q.
func NewDecoder(q *Queue) *Decoder {
	return &Decoder{q: q}
}

// Pending reports whether undecoded input is waiting. A late LF that
// completes an earlier CR is discarded here and does not count.
func (d *Decoder) Pending() bool {
	if d.afterCR {
		if b, ok := d.q.Peek(); ok && b == '\n' {
			d.q.Get(context.Background())
			d.afterCR = false
		}
	}
	return d.q.Pending()
}

// Drain discards queued input and closes any open submenu.
func (d *Decoder) Drain() int {
	d.selecting = false
	return d.q.Drain()
}

// Next decodes exactly one request. Separators alone decode to command.None.
// A framing violation inside a payload returns fault.ErrFraming.
func (d *Decoder) Next(ctx context.Context) (command.Request, error) {
	if d.selecting {
		return d.slotMenu(ctx)
	}

	for {
		c, err := d.get(ctx)
		if err != nil {
			return command.Request{}, err
		}
		if isSeparator(c) {
			d.eol(c)
			if !d.Pending() {
				return command.Request{Kind: command.None}, nil
			}
			continue
		}

		kind, ok := letters[upper(c)]
		if !ok {
			return command.Request{Kind: command.Unrecognized, Raw: c}, nil
		}
		d.skipEOL()

		switch kind {
		case command.Edit:
			return d.edit(ctx)
		case command.SelectSlot:
			return d.slotMenu(ctx)
		}
		return command.Request{Kind: kind}, nil
	}
}

// edit reads the identifier line and then the name line.
func (d *Decoder) edit(ctx context.Context) (command.Request, error) {
	line, err := d.line(ctx)
	if err != nil {
		return command.Request{}, err
	}
	id, err := ParseHexLine(line)
	if err != nil {
		return command.Request{}, fmt.Errorf("console: edit: %w", err)
	}

	name, err := d.line(ctx)
	if err != nil {
		return command.Request{}, err
	}

	return command.Request{
		Kind: command.Edit,
		Edit: command.EditPayload{Identifier: id, Name: name},
	}, nil
}

// slotMenu reads one selection character after "M".
func (d *Decoder) slotMenu(ctx context.Context) (command.Request, error) {
	d.selecting = false

	var c byte
	for {
		b, err := d.get(ctx)
		if err != nil {
			return command.Request{}, err
		}
		if !isSeparator(b) {
			c = b
			break
		}
		d.eol(b)
	}

	switch upper(c) {
	case 'L':
		d.selecting = true
		return command.Request{Kind: command.Dump}, nil

	case 'W':
		for i := 0; i < len(wipeKey); i++ {
			b, err := d.get(ctx)
			if err != nil {
				return command.Request{}, err
			}
			if b != wipeKey[i] {
				d.q.Drain()
				return command.Request{Kind: command.WipeAll, Confirmed: false}, nil
			}
		}
		return command.Request{Kind: command.WipeAll, Confirmed: true}, nil
	}

	if _, ok := hexVal(c); !ok && upper(c) != 'X' {
		// invalid selection: queued input is discarded like a cancelled wipe
		d.q.Drain()
	}
	return command.Request{Kind: command.SelectSlot, Selector: c}, nil
}

// line reads up to CR or LF; a CR LF pair counts as one terminator.
func (d *Decoder) line(ctx context.Context) ([]byte, error) {
	out := []byte{}
	for {
		c, err := d.get(ctx)
		if err != nil {
			return nil, err
		}
		if c == '\r' || c == '\n' {
			d.eol(c)
			return out, nil
		}
		out = append(out, c)
	}
}

// skipEOL drops one line terminator already queued after a command letter.
func (d *Decoder) skipEOL() {
	if !d.Pending() {
		return
	}
	b, ok := d.q.Peek()
	if !ok || (b != '\r' && b != '\n') {
		return
	}
	d.q.Get(context.Background())
	d.eol(b)
}

// get takes the next byte, dropping the LF half of a split CR LF.
func (d *Decoder) get(ctx context.Context) (byte, error) {
	for {
		c, err := d.q.Get(ctx)
		if err != nil {
			return 0, err
		}
		if d.afterCR {
			d.afterCR = false
			if c == '\n' {
				continue
			}
		}
		return c, nil
	}
}

// eol completes terminator c. After a CR the LF is taken now if queued,
// otherwise it is remembered and dropped when it arrives.
func (d *Decoder) eol(c byte) {
	if c != '\r' {
		return
	}
	if b, ok := d.q.Peek(); ok && b == '\n' {
		d.q.Get(context.Background())
		return
	}
	d.afterCR = true
}

// ------------------------------------------------------------
// HEX PAYLOAD
// ------------------------------------------------------------

// ParseHexLine parses "0x01, 0x02, ..." into bytes. An empty line returns
// nil (keep the stored identifier). Any deviation from the framing is
// fault.ErrFraming; the byte count is not checked here.
func ParseHexLine(line []byte) ([]byte, error) {
	if len(line) == 0 {
		return nil, nil
	}

	var out []byte
	i := 0
	for {
		if i >= len(line) || line[i] != '0' {
			return nil, fmt.Errorf("byte %d: no leading 0: %w", len(out), fault.ErrFraming)
		}
		if i+1 >= len(line) || (line[i+1] != 'x' && line[i+1] != 'X') {
			return nil, fmt.Errorf("byte %d: no x after leading 0: %w", len(out), fault.ErrFraming)
		}
		if i+3 >= len(line) {
			return nil, fmt.Errorf("byte %d: truncated: %w", len(out), fault.ErrFraming)
		}
		hi, ok1 := hexVal(line[i+2])
		lo, ok2 := hexVal(line[i+3])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("byte %d: invalid hex character: %w", len(out), fault.ErrFraming)
		}
		out = append(out, hi<<4|lo)
		i += 4

		if i == len(line) {
			return out, nil
		}
		if line[i] != ',' {
			return nil, fmt.Errorf("byte %d: no comma between values: %w", len(out), fault.ErrFraming)
		}
		if i+1 >= len(line) || line[i+1] != ' ' {
			return nil, fmt.Errorf("byte %d: no space after comma: %w", len(out), fault.ErrFraming)
		}
		i += 2
	}
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func isSeparator(c byte) bool {
	return c == '\r' || c == '\n' || c == ' ' || c == '\t'
}
