// internal/storage/file/file.go
package file

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/tamzrod/ibutton-cloner/internal/storage"
)

// Store is an EEPROM image kept in a regular file.
// Every write is synced before it returns.
type Store struct {
	mu   sync.Mutex
	f    *os.File
	data [storage.Size]byte
}

// Open opens (or creates) the image at path. A new or short file is
// zero-extended to the full store size.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file store: path required")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("file store: open: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("file store: stat: %w", err)
	}
	if st.Size() < storage.Size {
		if err := f.Truncate(storage.Size); err != nil {
			f.Close()
			return nil, fmt.Errorf("file store: extend: %w", err)
		}
	}

	s := &Store{f: f}
	if _, err := f.ReadAt(s.data[:], 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("file store: load: %w", err)
	}
	return s, nil
}

// Close closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *Store) Read(addr uint16) (byte, error) {
	if err := storage.CheckRange(addr, 1); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[addr], nil
}

func (s *Store) Write(addr uint16, b byte) error {
	return s.WriteBytes(addr, []byte{b})
}

// WriteBytes commits data at addr with one write and one sync.
func (s *Store) WriteBytes(addr uint16, data []byte) error {
	if err := storage.CheckRange(addr, len(data)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return errors.New("file store: closed")
	}
	if _, err := s.f.WriteAt(data, int64(addr)); err != nil {
		return fmt.Errorf("file store: write addr=%d: %w", addr, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("file store: sync: %w", err)
	}

	copy(s.data[addr:], data)
	return nil
}
