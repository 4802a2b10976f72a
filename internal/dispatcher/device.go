// internal/dispatcher/device.go
package dispatcher

import (
	"context"
	"fmt"

	"github.com/jpillora/backoff"

	"github.com/tamzrod/ibutton-cloner/internal/fault"
	"github.com/tamzrod/ibutton-cloner/internal/slot"
	"github.com/tamzrod/ibutton-cloner/internal/status"
	"github.com/tamzrod/ibutton-cloner/internal/wait"
)

// ------------------------------------------------------------
// DEVICE COMMANDS
// ------------------------------------------------------------

// discover tries one search. The search state is always reset afterwards
// or the next search would report nothing for the same tag.
func (d *Dispatcher) discover() (slot.Identifier, error) {
	raw, ok := d.bus.Search()
	d.bus.ResetSearch()
	if !ok {
		return slot.Identifier{}, fault.ErrDeviceNotPresent
	}
	return slot.Identifier(raw), nil
}

// readFromDevice copies the tag in contact into the active slot verbatim.
// The name is untouched.
func (d *Dispatcher) readFromDevice(o *status.Outcome) error {
	s := d.session.Active
	d.sink.Signal(status.SignalBusy)

	id, err := d.discover()
	if err != nil {
		return fmt.Errorf("read into slot %X: %w", s, err)
	}
	o.Identifier = &id
	o.CRCValid = id.Valid()

	if d.cfg.ValidateCRC && !o.CRCValid {
		return fmt.Errorf("read into slot %X: crc mismatch on % X: %w", s, id, fault.ErrMalformedPayload)
	}
	return d.store.StoreIdentifier(s, id)
}

// writeToDevice programs the tag in contact with the active slot.
// An empty slot fails before the bus is touched.
func (d *Dispatcher) writeToDevice(o *status.Outcome) error {
	s := d.session.Active

	id, err := d.store.ReadIdentifier(s)
	if err != nil {
		return err
	}
	if id.IsZero() {
		return fmt.Errorf("write from slot %X: %w", s, fault.ErrSlotEmpty)
	}

	d.sink.Signal(status.SignalBusy)

	if _, err := d.discover(); err != nil {
		return fmt.Errorf("write from slot %X: %w", s, err)
	}

	err = d.bus.WriteIdentifier(id)
	d.bus.ResetSearch()
	if err != nil {
		return fmt.Errorf("write from slot %X: %w", s, err)
	}
	o.Identifier = &id

	if !d.cfg.VerifyAfterWrite {
		return nil
	}
	got, err := d.bus.ReadROM()
	if err != nil {
		return fmt.Errorf("verify slot %X: %w", s, err)
	}
	if slot.Identifier(got) != id {
		return fmt.Errorf("verify slot %X: tag reads % X, want % X: %w", s, got, id, fault.ErrVerifyMismatch)
	}
	return nil
}

// listDevice reports the tag in contact without storing it.
func (d *Dispatcher) listDevice(o *status.Outcome) error {
	id, err := d.discover()
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	o.Identifier = &id
	o.CRCValid = id.Valid()
	return nil
}

// waitForDevice blocks until a tag answers a search, the configured
// timeout passes, or ctx is cancelled.
func (d *Dispatcher) waitForDevice(ctx context.Context) error {
	ctx, cancel := wait.Bound(ctx, d.cfg.WaitTimeout)
	defer cancel()

	b := &backoff.Backoff{
		Min:    d.cfg.PollMin,
		Max:    d.cfg.PollMax,
		Factor: 2,
		Jitter: false,
	}

	err := wait.Until(ctx, d.cfg.Sleep, b.Duration, func() bool {
		_, err := d.discover()
		return err == nil
	})
	return wait.Classify("wait for device", err)
}
