// internal/dispatcher/dispatcher_test.go
package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/ibutton-cloner/internal/command"
	"github.com/tamzrod/ibutton-cloner/internal/crc8"
	"github.com/tamzrod/ibutton-cloner/internal/fault"
	"github.com/tamzrod/ibutton-cloner/internal/slot"
	"github.com/tamzrod/ibutton-cloner/internal/status"
	"github.com/tamzrod/ibutton-cloner/internal/storage"
)

// ---- fakes ----

type countingBus struct {
	present  bool
	id       [8]byte
	searches int
	resets   int
	writes   [][8]byte
	rom      [8]byte
	writeErr error
}

func (b *countingBus) Search() ([8]byte, bool) {
	b.searches++
	return b.id, b.present
}

func (b *countingBus) ResetSearch() { b.resets++ }

func (b *countingBus) WriteIdentifier(id [8]byte) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes = append(b.writes, id)
	b.rom = id
	return nil
}

func (b *countingBus) ReadROM() ([8]byte, error) { return b.rom, nil }

func (b *countingBus) calls() int { return b.searches + b.resets + len(b.writes) }

type fixedSelector [4]bool

func (f *fixedSelector) Lines() [4]bool { return *f }

type recordingSink struct {
	outcomes []status.Outcome
	signals  []status.Signal
}

func (s *recordingSink) Report(o status.Outcome) { s.outcomes = append(s.outcomes, o) }
func (s *recordingSink) Signal(v status.Signal)  { s.signals = append(s.signals, v) }

type fixture struct {
	d     *Dispatcher
	store *slot.Store
	mem   *storage.Memory
	bus   *countingBus
	sel   *fixedSelector
	sink  *recordingSink
}

// selector lines for slot 3: bit0 and bit1 set.
var slot3 = fixedSelector{true, true, false, false}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	mem := storage.NewMemory()
	st, err := slot.New(mem)
	if err != nil {
		t.Fatalf("slot.New err=%v", err)
	}

	f := &fixture{
		store: st,
		mem:   mem,
		bus:   &countingBus{},
		sel:   &fixedSelector{},
		sink:  &recordingSink{},
	}
	if cfg.Sleep == nil {
		cfg.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	}

	f.d, err = New(cfg, NewSession(f.sel, 0), st, f.bus, f.sink)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	return f
}

func (f *fixture) run(k command.Kind) status.Outcome {
	return f.d.Dispatch(context.Background(), command.Request{Kind: k})
}

// ---- tests ----

func TestNew_RequiresDependencies(t *testing.T) {
	st, _ := slot.New(storage.NewMemory())
	s := NewSession(nil, 0)

	if _, err := New(Config{}, nil, st, &countingBus{}, nil); err == nil {
		t.Fatalf("expected error for nil session")
	}
	if _, err := New(Config{}, s, nil, &countingBus{}, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := New(Config{}, s, st, nil, nil); err == nil {
		t.Fatalf("expected error for nil bus")
	}
}

func TestEdit_Slot3ThenShow(t *testing.T) {
	f := newFixture(t, Config{})
	*f.sel = slot3

	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	o := f.d.Dispatch(context.Background(), command.Request{
		Kind: command.Edit,
		Edit: command.EditPayload{Identifier: payload, Name: []byte("GATE\r")},
	})
	if !o.OK {
		t.Fatalf("Edit failed: %v", o.Err)
	}
	if o.Slot != 3 {
		t.Fatalf("expected slot 3, got %X", o.Slot)
	}

	want := slot.Identifier{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, crc8.Checksum(payload)}

	show := f.run(command.Show)
	if !show.OK || show.Record == nil {
		t.Fatalf("Show failed: %v", show.Err)
	}
	if show.Record.Identifier != want {
		t.Fatalf("Show identifier got=% X want=% X", show.Record.Identifier, want)
	}
	if show.Record.Name.String() != "GATE    " {
		t.Fatalf("Show name got=%q", show.Record.Name.String())
	}
}

func TestEdit_MalformedAbortsWholeEdit(t *testing.T) {
	f := newFixture(t, Config{})

	o := f.d.Dispatch(context.Background(), command.Request{
		Kind: command.Edit,
		Edit: command.EditPayload{Identifier: []byte{1, 2, 3}, Name: []byte("NOPE")},
	})
	if o.OK || !errors.Is(o.Err, fault.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", o.Err)
	}
	if f.mem.Writes != 0 {
		t.Fatalf("aborted edit must not write, writes=%d", f.mem.Writes)
	}
}

func TestEdit_ArityRules(t *testing.T) {
	f := newFixture(t, Config{AllowAdvanced: true})
	eight := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	o := f.d.Dispatch(context.Background(), command.Request{
		Kind: command.Edit,
		Edit: command.EditPayload{Identifier: eight},
	})
	if !errors.Is(o.Err, fault.ErrUnsupportedArity) {
		t.Fatalf("8 bytes outside advanced mode: expected ErrUnsupportedArity, got %v", o.Err)
	}

	o = f.d.Dispatch(context.Background(), command.Request{
		Kind: command.Edit,
		Edit: command.EditPayload{Identifier: []byte{1, 2, 3, 4, 5, 6}},
	})
	if !errors.Is(o.Err, fault.ErrUnsupportedArity) {
		t.Fatalf("6 bytes: expected ErrUnsupportedArity, got %v", o.Err)
	}

	f.run(command.ToggleAdvanced)
	o = f.d.Dispatch(context.Background(), command.Request{
		Kind: command.Edit,
		Edit: command.EditPayload{Identifier: eight},
	})
	if !o.OK {
		t.Fatalf("8 bytes in advanced mode failed: %v", o.Err)
	}
	if o.Record.Identifier[7] != 8 {
		t.Fatalf("advanced 8-byte edit must be verbatim, byte7=0x%02X", o.Record.Identifier[7])
	}
}

func TestEdit_EmptyIdentifierRenamesOnly(t *testing.T) {
	f := newFixture(t, Config{})
	id := slot.Identifier{0x01, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x77}
	if err := f.store.StoreIdentifier(0, id); err != nil {
		t.Fatalf("StoreIdentifier err=%v", err)
	}

	o := f.d.Dispatch(context.Background(), command.Request{
		Kind: command.Edit,
		Edit: command.EditPayload{Name: []byte("SHED")},
	})
	if !o.OK {
		t.Fatalf("rename failed: %v", o.Err)
	}

	rec, _ := f.store.Record(0)
	if rec.Identifier != id {
		t.Fatalf("rename changed identifier: % X", rec.Identifier)
	}
	if rec.Name.String() != "SHED    " {
		t.Fatalf("name got=%q", rec.Name.String())
	}
}

func TestShow_EmptySlot(t *testing.T) {
	f := newFixture(t, Config{})

	o := f.run(command.Show)
	if o.OK || !errors.Is(o.Err, fault.ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty, got %v", o.Err)
	}
	if o.Code != fault.CodeSlotEmpty {
		t.Fatalf("expected code %d, got %d", fault.CodeSlotEmpty, o.Code)
	}
}

func TestWriteToDevice_EmptySlotNoBusActivity(t *testing.T) {
	f := newFixture(t, Config{})
	f.bus.present = true

	o := f.run(command.WriteToDevice)
	if o.OK || !errors.Is(o.Err, fault.ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty, got %v", o.Err)
	}
	if f.bus.calls() != 0 {
		t.Fatalf("expected zero bus calls, got %d", f.bus.calls())
	}
	if last := f.sink.signals[len(f.sink.signals)-1]; last != status.SignalFailure {
		t.Fatalf("expected failure signal, got %v", last)
	}
}

func TestWriteToDevice_ProgramsStoredIdentifier(t *testing.T) {
	f := newFixture(t, Config{VerifyAfterWrite: true})
	f.bus.present = true

	id := slot.Identifier{0x01, 1, 2, 3, 4, 5, 6, 0}
	id[7] = crc8.Checksum(id[:7])
	if err := f.store.StoreIdentifier(0, id); err != nil {
		t.Fatalf("StoreIdentifier err=%v", err)
	}

	o := f.run(command.WriteToDevice)
	if !o.OK {
		t.Fatalf("WriteToDevice failed: %v", o.Err)
	}
	if len(f.bus.writes) != 1 || slot.Identifier(f.bus.writes[0]) != id {
		t.Fatalf("bus writes=%v", f.bus.writes)
	}
}

func TestWriteToDevice_NoTag(t *testing.T) {
	f := newFixture(t, Config{})
	if err := f.store.StoreIdentifier(0, slot.Identifier{0x01, 9}); err != nil {
		t.Fatalf("StoreIdentifier err=%v", err)
	}

	o := f.run(command.WriteToDevice)
	if !errors.Is(o.Err, fault.ErrDeviceNotPresent) {
		t.Fatalf("expected ErrDeviceNotPresent, got %v", o.Err)
	}
	if len(f.bus.writes) != 0 {
		t.Fatalf("no tag: nothing must be programmed")
	}
}

func TestReadFromDevice_StoresVerbatimKeepsName(t *testing.T) {
	f := newFixture(t, Config{})
	*f.sel = slot3
	if _, err := f.store.WriteName(3, []byte("KEEP")); err != nil {
		t.Fatalf("WriteName err=%v", err)
	}

	// bogus checksum is stored as-is in permissive mode
	f.bus.present = true
	f.bus.id = [8]byte{0x01, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01, 0x55}

	o := f.run(command.ReadFromDevice)
	if !o.OK {
		t.Fatalf("ReadFromDevice failed: %v", o.Err)
	}

	rec, _ := f.store.Record(3)
	if rec.Identifier != slot.Identifier(f.bus.id) {
		t.Fatalf("stored % X want % X", rec.Identifier, f.bus.id)
	}
	if rec.Name.String() != "KEEP    " {
		t.Fatalf("name changed: %q", rec.Name.String())
	}
	if f.bus.resets != 1 {
		t.Fatalf("search state must be reset after discovery, resets=%d", f.bus.resets)
	}
}

func TestReadFromDevice_ValidateCRCRejects(t *testing.T) {
	f := newFixture(t, Config{ValidateCRC: true})
	f.bus.present = true
	f.bus.id = [8]byte{0x01, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01, 0x55}

	o := f.run(command.ReadFromDevice)
	if !errors.Is(o.Err, fault.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", o.Err)
	}
	if full, _ := f.store.IsFull(0); full {
		t.Fatalf("rejected read must not mutate the slot")
	}
}

func TestReadFromDevice_NoTag(t *testing.T) {
	f := newFixture(t, Config{})

	o := f.run(command.ReadFromDevice)
	if !errors.Is(o.Err, fault.ErrDeviceNotPresent) {
		t.Fatalf("expected ErrDeviceNotPresent, got %v", o.Err)
	}
	if f.mem.Writes != 0 {
		t.Fatalf("failed read must not write, writes=%d", f.mem.Writes)
	}
}

func TestListDevice_DoesNotStore(t *testing.T) {
	f := newFixture(t, Config{})
	f.bus.present = true
	f.bus.id = [8]byte{0x01, 0x9A, 0x3C, 0x55, 0x10, 0x00, 0x00, 0x00}
	f.bus.id[7] = crc8.Checksum(f.bus.id[:7])

	o := f.run(command.ListDevice)
	if !o.OK || o.Identifier == nil || !o.CRCValid {
		t.Fatalf("ListDevice got ok=%v id=%v crc=%v err=%v", o.OK, o.Identifier, o.CRCValid, o.Err)
	}
	if f.mem.Writes != 0 {
		t.Fatalf("ListDevice must not write, writes=%d", f.mem.Writes)
	}
}

func TestWaitForDevice_PollsUntilPresent(t *testing.T) {
	f := newFixture(t, Config{})

	var sleeps int
	f.d.cfg.Sleep = func(ctx context.Context, _ time.Duration) error {
		sleeps++
		if sleeps == 3 {
			f.bus.present = true
		}
		return nil
	}

	o := f.run(command.WaitForDevice)
	if !o.OK {
		t.Fatalf("WaitForDevice failed: %v", o.Err)
	}
	if f.bus.searches != 4 {
		t.Fatalf("expected 4 searches, got %d", f.bus.searches)
	}
}

func TestWaitForDevice_Timeout(t *testing.T) {
	f := newFixture(t, Config{WaitTimeout: 5 * time.Millisecond, PollMin: time.Millisecond})
	f.d.cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		<-ctx.Done()
		return ctx.Err()
	}

	o := f.run(command.WaitForDevice)
	if !errors.Is(o.Err, fault.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", o.Err)
	}
}

func TestToggleAdvanced_DisabledByConfig(t *testing.T) {
	f := newFixture(t, Config{AllowAdvanced: false})

	o := f.run(command.ToggleAdvanced)
	if !errors.Is(o.Err, fault.ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", o.Err)
	}
	if f.d.Session().Advanced {
		t.Fatalf("advanced mode must stay off")
	}
}

func TestSelectSlot_OverridesSelectorUntilToggledOff(t *testing.T) {
	f := newFixture(t, Config{AllowAdvanced: true})
	*f.sel = slot3

	o := f.d.Dispatch(context.Background(), command.Request{Kind: command.SelectSlot, Selector: 'B'})
	if !errors.Is(o.Err, fault.ErrNotPermitted) {
		t.Fatalf("SelectSlot outside advanced mode: expected ErrNotPermitted, got %v", o.Err)
	}

	f.run(command.ToggleAdvanced)
	o = f.d.Dispatch(context.Background(), command.Request{Kind: command.SelectSlot, Selector: 'b'})
	if !o.OK || o.Slot != 0x0B {
		t.Fatalf("SelectSlot got ok=%v slot=%X err=%v", o.OK, o.Slot, o.Err)
	}

	// selector changes are ignored while overridden
	*f.sel = fixedSelector{}
	if o := f.run(command.Show); o.Slot != 0x0B {
		t.Fatalf("override lost, slot=%X", o.Slot)
	}

	// leaving advanced mode resyncs immediately
	f.run(command.ToggleAdvanced)
	if f.d.Session().Active != 0 {
		t.Fatalf("expected resync to selector slot 0, got %X", f.d.Session().Active)
	}
}

func TestSelectSlot_InvalidAndCancel(t *testing.T) {
	f := newFixture(t, Config{AllowAdvanced: true})
	f.run(command.ToggleAdvanced)

	o := f.d.Dispatch(context.Background(), command.Request{Kind: command.SelectSlot, Selector: 'G'})
	if !errors.Is(o.Err, fault.ErrInvalidSlotSelector) {
		t.Fatalf("expected ErrInvalidSlotSelector, got %v", o.Err)
	}

	o = f.d.Dispatch(context.Background(), command.Request{Kind: command.SelectSlot, Selector: 'X'})
	if !o.OK || o.Message == "" {
		t.Fatalf("cancel got ok=%v msg=%q", o.OK, o.Message)
	}
}

func TestWipeAll_RequiresAdvancedAndConfirmation(t *testing.T) {
	f := newFixture(t, Config{AllowAdvanced: true})
	for s := uint8(0); s < slot.Count; s++ {
		if err := f.store.StoreIdentifier(s, slot.Identifier{0x01, s + 1}); err != nil {
			t.Fatalf("StoreIdentifier err=%v", err)
		}
	}

	o := f.d.Dispatch(context.Background(), command.Request{Kind: command.WipeAll, Confirmed: true})
	if !errors.Is(o.Err, fault.ErrNotPermitted) {
		t.Fatalf("wipe outside advanced mode: expected ErrNotPermitted, got %v", o.Err)
	}

	f.run(command.ToggleAdvanced)
	o = f.d.Dispatch(context.Background(), command.Request{Kind: command.WipeAll})
	if o.OK {
		t.Fatalf("unconfirmed wipe must fail")
	}
	if full, _ := f.store.IsFull(5); !full {
		t.Fatalf("unconfirmed wipe touched storage")
	}

	o = f.d.Dispatch(context.Background(), command.Request{Kind: command.WipeAll, Confirmed: true})
	if !o.OK || len(o.Records) != slot.Count {
		t.Fatalf("confirmed wipe got ok=%v records=%d err=%v", o.OK, len(o.Records), o.Err)
	}
	for _, r := range o.Records {
		if r.Full {
			t.Fatalf("slot %X not wiped", r.Slot)
		}
	}
}

func TestDump_AfterWipeRendersEmptySlots(t *testing.T) {
	f := newFixture(t, Config{})
	if err := f.store.WipeAll(); err != nil {
		t.Fatalf("WipeAll err=%v", err)
	}

	o := f.run(command.Dump)
	if !o.OK || len(o.Records) != slot.Count {
		t.Fatalf("Dump got ok=%v records=%d", o.OK, len(o.Records))
	}
	for _, r := range o.Records {
		line := status.SlotLine(r, false, false)
		if line != status.SlotLine(slot.Record{Slot: r.Slot}, false, false) {
			t.Fatalf("unexpected dump line %q", line)
		}
	}
}

func TestClear_FromButtons(t *testing.T) {
	f := newFixture(t, Config{})
	*f.sel = slot3
	if err := f.store.WriteRecord(3, slot.Identifier{0x01, 2}, slot.MakeName([]byte("X"))); err != nil {
		t.Fatalf("WriteRecord err=%v", err)
	}

	o := f.d.Dispatch(context.Background(), command.Request{Kind: command.Clear, Source: command.FromButtons})
	if !o.OK || o.Source != command.FromButtons {
		t.Fatalf("Clear got ok=%v source=%v", o.OK, o.Source)
	}
	rec, _ := f.store.Record(3)
	if rec.Full || !rec.Name.IsZero() {
		t.Fatalf("record not cleared: %+v", rec)
	}
}

func TestUnrecognized_NoStateChange(t *testing.T) {
	f := newFixture(t, Config{})

	o := f.d.Dispatch(context.Background(), command.Request{Kind: command.Unrecognized, Raw: '?'})
	if o.OK || o.Kind != command.Unrecognized || o.Message != "'?' (0x3F)" {
		t.Fatalf("got ok=%v kind=%v msg=%q", o.OK, o.Kind, o.Message)
	}
	if f.mem.Writes != 0 || f.bus.calls() != 0 {
		t.Fatalf("unrecognized input must not touch storage or bus")
	}
	if len(f.sink.outcomes) != 1 {
		t.Fatalf("outcome must be reported, got %d", len(f.sink.outcomes))
	}
}

func TestHardReset_NewSession(t *testing.T) {
	f := newFixture(t, Config{AllowAdvanced: true})
	f.run(command.ToggleAdvanced)
	f.d.Dispatch(context.Background(), command.Request{Kind: command.SelectSlot, Selector: '7'})
	before := f.d.Session().ID

	f.d.HardReset()

	s := f.d.Session()
	if s.Advanced || s.Active != 0 || s.ID == before {
		t.Fatalf("hard reset left state: %+v", s)
	}
}
