// internal/storage/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/ibutton-cloner/internal/storage"
)

// Store keeps the EEPROM image in holding registers of a remote Modbus TCP device,
// one byte per register (low byte), starting at Base.
// It serializes requests on a single connection.
type Store struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	base    uint16
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
	Base     uint16
}

// maxWriteQty is the Modbus limit for one Write Multiple Registers request.
const maxWriteQty = 123

// Dial connects to the endpoint.
func Dial(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus store: endpoint required")
	}
	if int(cfg.Base)+storage.Size > 0x10000 {
		return nil, fmt.Errorf("modbus store: base %d overflows the register space", cfg.Base)
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus store: connect: %w", err)
	}

	return &Store{
		handler: h,
		client:  modbus.NewClient(h),
		base:    cfg.Base,
	}, nil
}

// New wraps an existing client (no connection lifecycle).
func New(client modbus.Client, base uint16) *Store {
	return &Store{client: client, base: base}
}

// Close closes the TCP connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler == nil {
		return nil
	}
	return s.handler.Close()
}

func (s *Store) Read(addr uint16) (byte, error) {
	if err := storage.CheckRange(addr, 1); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.client.ReadHoldingRegisters(s.base+addr, 1)
	if err != nil {
		return 0, fmt.Errorf("modbus store: read addr=%d: %w", addr, err)
	}
	if len(raw) != 2 {
		return 0, fmt.Errorf("modbus store: read addr=%d: payload %d bytes, want 2", addr, len(raw))
	}
	// register is big-endian; the byte lives in the low half
	return raw[1], nil
}

func (s *Store) Write(addr uint16, b byte) error {
	return s.WriteBytes(addr, []byte{b})
}

// WriteBytes commits data with Write Multiple Registers.
// A slot record (16 bytes) always fits in one request.
func (s *Store) WriteBytes(addr uint16, data []byte) error {
	if err := storage.CheckRange(addr, len(data)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for off := 0; off < len(data); off += maxWriteQty {
		end := off + maxWriteQty
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		_, err := s.client.WriteMultipleRegisters(
			s.base+addr+uint16(off),
			uint16(len(chunk)),
			packRegisters(chunk),
		)
		if err != nil {
			return fmt.Errorf("modbus store: write addr=%d qty=%d: %w", addr+uint16(off), len(chunk), err)
		}
	}
	return nil
}

// packRegisters widens each byte to one big-endian register.
func packRegisters(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, b := range data {
		out[2*i] = 0
		out[2*i+1] = b
	}
	return out
}
