// internal/slot/store.go
package slot

import (
	"errors"
	"fmt"

	"github.com/tamzrod/ibutton-cloner/internal/crc8"
	"github.com/tamzrod/ibutton-cloner/internal/fault"
	"github.com/tamzrod/ibutton-cloner/internal/storage"
)

// ---- RECORD GEOMETRY ----

// Count is the number of slots.
const Count = 16

// Stride is the size of one slot region; the base of slot s is s << Shift.
const (
	Shift  = 5
	Stride = 1 << Shift
)

// Offsets inside a slot region. Bytes 16..31 are reserved.
const (
	IdentifierOffset = 0
	IdentifierLen    = 8
	NameOffset       = 8
	NameLen          = 8
	RecordLen        = IdentifierLen + NameLen
)

// Store is the slot bookkeeping layer over a persistent byte store.
// Every multi-byte change is assembled first and committed as one run.
type Store struct {
	bs storage.ByteStore
}

// New creates a slot store on bs.
func New(bs storage.ByteStore) (*Store, error) {
	if bs == nil {
		return nil, errors.New("slot: byte store required")
	}
	return &Store{bs: bs}, nil
}

// Base returns the persistent address of slot s.
func Base(s uint8) uint16 {
	return uint16(s) << Shift
}

func checkSlot(s uint8) error {
	if s >= Count {
		return fmt.Errorf("slot: index %d out of range 0-%d", s, Count-1)
	}
	return nil
}

// IsFull reports whether any identifier byte of slot s is nonzero.
// CRC validity plays no part.
func (st *Store) IsFull(s uint8) (bool, error) {
	id, err := st.ReadIdentifier(s)
	if err != nil {
		return false, err
	}
	return !id.IsZero(), nil
}

// ReadIdentifier returns the 8 identifier bytes of slot s.
func (st *Store) ReadIdentifier(s uint8) (Identifier, error) {
	var id Identifier
	if err := checkSlot(s); err != nil {
		return id, err
	}
	raw, err := storage.ReadRun(st.bs, Base(s)+IdentifierOffset, IdentifierLen)
	if err != nil {
		return id, fmt.Errorf("slot %X: read identifier: %w: %w", s, fault.ErrStorage, err)
	}
	copy(id[:], raw)
	return id, nil
}

// BuildIdentifier applies the arity policy to a user-supplied payload.
// arity is how many bytes the caller supplied and must equal len(payload):
//
//	8  taken verbatim (advanced mode only; the caller enforces the mode)
//	7  bytes 0..6 verbatim, byte 7 recomputed as CRC8
//	6  family-code autofill, disabled: it corrupted valid identifiers
func BuildIdentifier(payload []byte, arity int) (Identifier, error) {
	var id Identifier
	if len(payload) != arity {
		return id, fmt.Errorf("slot: %d bytes supplied for arity %d: %w", len(payload), arity, fault.ErrMalformedPayload)
	}

	switch arity {
	case 8:
		copy(id[:], payload)
	case 7:
		copy(id[:7], payload)
		id[7] = crc8.Checksum(id[:7])
	case 6:
		return id, fmt.Errorf("slot: 6-byte autofill: %w", fault.ErrUnsupportedArity)
	default:
		return id, fmt.Errorf("slot: arity %d: %w", arity, fault.ErrMalformedPayload)
	}
	return id, nil
}

// WriteIdentifier stores a user-supplied identifier under the arity policy
// of BuildIdentifier and returns what was stored.
func (st *Store) WriteIdentifier(s uint8, payload []byte, arity int) (Identifier, error) {
	if err := checkSlot(s); err != nil {
		return Identifier{}, err
	}
	id, err := BuildIdentifier(payload, arity)
	if err != nil {
		return Identifier{}, err
	}
	if err := st.StoreIdentifier(s, id); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// StoreIdentifier writes id verbatim, as read from a device. The name is untouched.
func (st *Store) StoreIdentifier(s uint8, id Identifier) error {
	if err := checkSlot(s); err != nil {
		return err
	}
	if err := storage.WriteRun(st.bs, Base(s)+IdentifierOffset, id[:]); err != nil {
		return fmt.Errorf("slot %X: write identifier: %w: %w", s, fault.ErrStorage, err)
	}
	return nil
}

// ReadName returns the 8 name bytes of slot s.
func (st *Store) ReadName(s uint8) (Name, error) {
	var n Name
	if err := checkSlot(s); err != nil {
		return n, err
	}
	raw, err := storage.ReadRun(st.bs, Base(s)+NameOffset, NameLen)
	if err != nil {
		return n, fmt.Errorf("slot %X: read name: %w: %w", s, fault.ErrStorage, err)
	}
	copy(n[:], raw)
	return n, nil
}

// WriteName stores up to 8 ASCII bytes position by position. A CR or LF ends
// the name; it and every unsupplied position are written as 0x00.
func (st *Store) WriteName(s uint8, name []byte) (Name, error) {
	if err := checkSlot(s); err != nil {
		return Name{}, err
	}
	n := MakeName(name)
	if err := storage.WriteRun(st.bs, Base(s)+NameOffset, n[:]); err != nil {
		return Name{}, fmt.Errorf("slot %X: write name: %w: %w", s, fault.ErrStorage, err)
	}
	return n, nil
}

// WriteRecord commits identifier and name of slot s in one run.
func (st *Store) WriteRecord(s uint8, id Identifier, n Name) error {
	if err := checkSlot(s); err != nil {
		return err
	}
	var rec [RecordLen]byte
	copy(rec[IdentifierOffset:], id[:])
	copy(rec[NameOffset:], n[:])
	if err := storage.WriteRun(st.bs, Base(s), rec[:]); err != nil {
		return fmt.Errorf("slot %X: write record: %w: %w", s, fault.ErrStorage, err)
	}
	return nil
}

// ClearSlot zeroes the identifier and name of slot s.
func (st *Store) ClearSlot(s uint8) error {
	if err := checkSlot(s); err != nil {
		return err
	}
	var zero [RecordLen]byte
	if err := storage.WriteRun(st.bs, Base(s), zero[:]); err != nil {
		return fmt.Errorf("slot %X: clear: %w: %w", s, fault.ErrStorage, err)
	}
	return nil
}

// WipeAll clears every slot. It stops at the first storage failure.
func (st *Store) WipeAll() error {
	for s := uint8(0); s < Count; s++ {
		if err := st.ClearSlot(s); err != nil {
			return err
		}
	}
	return nil
}

// Record returns the full view of slot s.
func (st *Store) Record(s uint8) (Record, error) {
	id, err := st.ReadIdentifier(s)
	if err != nil {
		return Record{}, err
	}
	n, err := st.ReadName(s)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Slot:       s,
		Identifier: id,
		Name:       n,
		Full:       !id.IsZero(),
	}, nil
}

// Records returns every slot in order.
func (st *Store) Records() ([]Record, error) {
	out := make([]Record, 0, Count)
	for s := uint8(0); s < Count; s++ {
		r, err := st.Record(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
