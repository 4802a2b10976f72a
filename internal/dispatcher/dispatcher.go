// internal/dispatcher/dispatcher.go
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tamzrod/ibutton-cloner/internal/command"
	"github.com/tamzrod/ibutton-cloner/internal/fault"
	"github.com/tamzrod/ibutton-cloner/internal/slot"
	"github.com/tamzrod/ibutton-cloner/internal/status"
	"github.com/tamzrod/ibutton-cloner/internal/wait"
)

// Bus is the part of the bus engine the dispatcher drives.
type Bus interface {
	Search() ([8]byte, bool)
	ResetSearch()
	WriteIdentifier(id [8]byte) error
	ReadROM() ([8]byte, error)
}

// Sink receives every outcome. Nothing is dropped silently.
type Sink interface {
	Report(o status.Outcome)
	Signal(s status.Signal)
}

// Config is the runtime behaviour the dispatcher needs.
type Config struct {
	// AllowAdvanced permits ToggleAdvanced. Off reproduces the
	// firmware revision without an advanced mode.
	AllowAdvanced bool

	// ValidateCRC rejects discovered identifiers whose byte 7 is not
	// the CRC8 of bytes 0..6. Off keeps the permissive behaviour.
	ValidateCRC bool

	// VerifyAfterWrite reads the ROM back after programming.
	VerifyAfterWrite bool

	// WaitTimeout bounds WaitForDevice. Zero waits forever.
	WaitTimeout time.Duration

	// PollMin and PollMax bound the backoff between discovery attempts.
	PollMin time.Duration
	PollMax time.Duration

	// Sleep is injectable for tests; nil means real time.
	Sleep wait.SleepFunc
}

// Dispatcher executes one command at a time against the slot store and the bus.
type Dispatcher struct {
	cfg     Config
	session *Session
	store   *slot.Store
	bus     Bus
	sink    Sink
}

// New creates a dispatcher with immutable config.
func New(cfg Config, session *Session, store *slot.Store, bus Bus, sink Sink) (*Dispatcher, error) {
	if session == nil {
		return nil, errors.New("dispatcher: session required")
	}
	if store == nil {
		return nil, errors.New("dispatcher: slot store required")
	}
	if bus == nil {
		return nil, errors.New("dispatcher: bus required")
	}
	if sink == nil {
		sink = discard{}
	}
	if cfg.Sleep == nil {
		cfg.Sleep = wait.Sleep
	}
	if cfg.PollMin <= 0 {
		cfg.PollMin = time.Millisecond
	}
	if cfg.PollMax < cfg.PollMin {
		cfg.PollMax = cfg.PollMin
	}
	return &Dispatcher{
		cfg:     cfg,
		session: session,
		store:   store,
		bus:     bus,
		sink:    sink,
	}, nil
}

// Session returns the session this dispatcher mutates.
func (d *Dispatcher) Session() *Session { return d.session }

// HardReset returns the session to its initial state.
func (d *Dispatcher) HardReset() {
	old := d.session.ID
	d.session.HardReset()
	log.Printf("session hard reset (old=%s new=%s)", old, d.session.ID)
}

// Dispatch runs exactly one command and reports its outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req command.Request) status.Outcome {
	// The active slot follows the hardware selector unless overridden.
	d.session.Refresh()

	o := status.Outcome{
		Kind:   req.Kind,
		Source: req.Source,
	}

	var err error
	switch req.Kind {
	case command.Show:
		err = d.show(&o)
	case command.Edit:
		err = d.edit(&o, req.Edit)
	case command.Clear:
		err = d.store.ClearSlot(d.session.Active)
	case command.Dump:
		o.Records, err = d.store.Records()
	case command.ReadFromDevice:
		err = d.readFromDevice(&o)
	case command.WriteToDevice:
		err = d.writeToDevice(&o)
	case command.ListDevice:
		err = d.listDevice(&o)
	case command.WaitForDevice:
		err = d.waitForDevice(ctx)
	case command.ToggleAdvanced:
		err = d.toggleAdvanced()
	case command.SelectSlot:
		err = d.selectSlot(&o, req.Selector)
	case command.WipeAll:
		err = d.wipeAll(&o, req.Confirmed)
	default:
		o.Kind = command.Unrecognized
		o.Message = fmt.Sprintf("%q (0x%02X)", rune(req.Raw), req.Raw)
		err = fault.ErrMalformedPayload
	}

	o.Slot = d.session.Active
	o.Advanced = d.session.Advanced
	o.OK = err == nil
	o.Err = err
	o.Code = fault.CodeOf(err)

	if err != nil {
		log.Printf("command failed (kind=%s source=%s slot=%X session=%s code=%d): %v",
			o.Kind, o.Source, o.Slot, d.session.ID, o.Code, err)
		d.sink.Signal(status.SignalFailure)
	} else {
		d.sink.Signal(status.SignalSuccess)
	}
	d.sink.Report(o)
	return o
}

// ------------------------------------------------------------
// SLOT COMMANDS
// ------------------------------------------------------------

func (d *Dispatcher) show(o *status.Outcome) error {
	rec, err := d.store.Record(d.session.Active)
	if err != nil {
		return err
	}
	if !rec.Full {
		return fmt.Errorf("show slot %X: %w", rec.Slot, fault.ErrSlotEmpty)
	}
	o.Record = &rec
	return nil
}

// edit replaces the identifier and/or name of the active slot. A malformed
// identifier aborts the whole edit, the name included.
func (d *Dispatcher) edit(o *status.Outcome, p command.EditPayload) error {
	s := d.session.Active

	rec, err := d.store.Record(s)
	if err != nil {
		return err
	}

	id := rec.Identifier
	if len(p.Identifier) > 0 {
		arity := len(p.Identifier)
		if arity == slot.IdentifierLen && !d.session.Advanced {
			return fmt.Errorf("edit slot %X: 8 bytes outside advanced mode: %w", s, fault.ErrUnsupportedArity)
		}
		id, err = slot.BuildIdentifier(p.Identifier, arity)
		if err != nil {
			return fmt.Errorf("edit slot %X: %w", s, err)
		}
	}

	name := rec.Name
	if p.Name != nil {
		name = slot.MakeName(p.Name)
	}

	if err := d.store.WriteRecord(s, id, name); err != nil {
		return err
	}

	rec.Identifier = id
	rec.Name = name
	rec.Full = !id.IsZero()
	o.Record = &rec
	return nil
}

func (d *Dispatcher) toggleAdvanced() error {
	if !d.cfg.AllowAdvanced {
		return fmt.Errorf("toggle advanced: disabled by configuration: %w", fault.ErrNotPermitted)
	}
	d.session.SetAdvanced(!d.session.Advanced)
	return nil
}

func (d *Dispatcher) selectSlot(o *status.Outcome, sel byte) error {
	if !d.session.Advanced {
		return fmt.Errorf("select slot: %w", fault.ErrNotPermitted)
	}
	if sel == 'X' || sel == 'x' {
		o.Message = "Slot selection cancelled."
		return nil
	}
	v, ok := hexDigit(sel)
	if !ok {
		return fmt.Errorf("select slot %q: %w", rune(sel), fault.ErrInvalidSlotSelector)
	}
	d.session.Active = v
	return nil
}

func (d *Dispatcher) wipeAll(o *status.Outcome, confirmed bool) error {
	if !d.session.Advanced {
		return fmt.Errorf("wipe all: %w", fault.ErrNotPermitted)
	}
	if !confirmed {
		o.Message = "Wipe cancelled."
		return fmt.Errorf("wipe all: not confirmed: %w", fault.ErrNotPermitted)
	}
	if err := d.store.WipeAll(); err != nil {
		return err
	}
	recs, err := d.store.Records()
	if err != nil {
		return err
	}
	o.Records = recs
	return nil
}

func hexDigit(c byte) (uint8, bool) {
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

// ---- discard sink ----

type discard struct{}

func (discard) Report(status.Outcome) {}
func (discard) Signal(status.Signal)  {}
