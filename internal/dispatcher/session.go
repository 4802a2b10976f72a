// internal/dispatcher/session.go
package dispatcher

import (
	"github.com/google/uuid"
)

// Selector is the 4-line hardware slot switch, LSB first.
type Selector interface {
	Lines() [4]bool
}

// Session is all mutable state shared by the arbiter and the dispatcher.
// Exactly one exists per running loop.
type Session struct {
	// ID changes on every hard reset so logs can tell sessions apart.
	ID uuid.UUID

	// Active is the slot every slot-scoped command acts on.
	Active uint8

	// Advanced enables software slot selection and full 8-byte editing.
	Advanced bool

	sel     Selector
	initial uint8
}

// NewSession creates a session. sel may be nil, in which case the active
// slot stays at initial until changed in advanced mode.
func NewSession(sel Selector, initial uint8) *Session {
	s := &Session{sel: sel, initial: initial & 0x0F}
	s.HardReset()
	return s
}

// Refresh recomputes Active from the selector lines.
// It does nothing while advanced mode is engaged.
func (s *Session) Refresh() {
	if s.Advanced || s.sel == nil {
		return
	}
	var v uint8
	for i, on := range s.sel.Lines() {
		if on {
			v |= 1 << i
		}
	}
	s.Active = v
}

// SetAdvanced switches override mode. Leaving it resyncs with the selector.
func (s *Session) SetAdvanced(on bool) {
	s.Advanced = on
	if !on {
		s.Refresh()
	}
}

// HardReset returns the session to its initial state under a new ID.
func (s *Session) HardReset() {
	s.ID = uuid.New()
	s.Advanced = false
	s.Active = s.initial
	s.Refresh()
}
