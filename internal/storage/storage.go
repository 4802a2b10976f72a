// internal/storage/storage.go
package storage

import (
	"fmt"
	"sync"
)

// Size is the addressable span of the persistent store: 16 slots of 32 bytes.
const Size = 1024

// ByteStore is an addressable persistent byte store, durable across power loss.
type ByteStore interface {
	Read(addr uint16) (byte, error)
	Write(addr uint16, b byte) error
}

// BatchWriter is implemented by stores that can commit a contiguous run of
// bytes in one operation. The slot store prefers it when available.
type BatchWriter interface {
	WriteBytes(addr uint16, data []byte) error
}

// Closer is implemented by stores holding a connection or file.
type Closer interface {
	Close() error
}

// CheckRange validates that [addr, addr+n) lies inside the store.
func CheckRange(addr uint16, n int) error {
	if n < 0 || int(addr)+n > Size {
		return fmt.Errorf("storage: range %d+%d outside %d-byte store", addr, n, Size)
	}
	return nil
}

// WriteRun commits data at addr, as one batch when the store supports it.
func WriteRun(s ByteStore, addr uint16, data []byte) error {
	if err := CheckRange(addr, len(data)); err != nil {
		return err
	}
	if bw, ok := s.(BatchWriter); ok {
		return bw.WriteBytes(addr, data)
	}
	for i, b := range data {
		if err := s.Write(addr+uint16(i), b); err != nil {
			return err
		}
	}
	return nil
}

// ReadRun reads n bytes starting at addr.
func ReadRun(s ByteStore, addr uint16, n int) ([]byte, error) {
	if err := CheckRange(addr, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i := range out {
		b, err := s.Read(addr + uint16(i))
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// ---- in-memory store ----

// Memory is a volatile ByteStore. It starts zeroed like a wiped EEPROM.
type Memory struct {
	mu     sync.Mutex
	data   [Size]byte
	Writes int
}

// NewMemory returns a zeroed in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Read(addr uint16) (byte, error) {
	if err := CheckRange(addr, 1); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[addr], nil
}

func (m *Memory) Write(addr uint16, b byte) error {
	if err := CheckRange(addr, 1); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[addr] = b
	m.Writes++
	return nil
}

func (m *Memory) WriteBytes(addr uint16, data []byte) error {
	if err := CheckRange(addr, len(data)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[addr:], data)
	m.Writes++
	return nil
}
