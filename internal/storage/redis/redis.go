// internal/storage/redis/redis.go
package redis

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyburd/redigo/redis"

	"github.com/tamzrod/ibutton-cloner/internal/storage"
)

// Store keeps the EEPROM image in one Redis string.
// GETRANGE/SETRANGE give byte addressing; SETRANGE zero-pads a short value.
type Store struct {
	mu   sync.Mutex
	conn redis.Conn
	key  string
}

// Config is minimal connection config.
type Config struct {
	Endpoint string
	Key      string
	Timeout  time.Duration
}

// Dial connects to Redis and prepares the image key.
func Dial(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("redis store: endpoint required")
	}

	conn, err := redis.Dial("tcp", cfg.Endpoint,
		redis.DialConnectTimeout(cfg.Timeout),
		redis.DialReadTimeout(cfg.Timeout),
		redis.DialWriteTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis store: dial: %w", err)
	}

	s, err := New(conn, cfg.Key)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection. The key is zero-extended to the store size.
func New(conn redis.Conn, key string) (*Store, error) {
	if key == "" {
		return nil, errors.New("redis store: key required")
	}

	n, err := redis.Int(conn.Do("STRLEN", key))
	if err != nil {
		return nil, fmt.Errorf("redis store: strlen: %w", err)
	}
	if n < storage.Size {
		if _, err := conn.Do("SETRANGE", key, storage.Size-1, []byte{0}); err != nil {
			return nil, fmt.Errorf("redis store: extend: %w", err)
		}
	}

	return &Store{conn: conn, key: key}, nil
}

// Close closes the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *Store) Read(addr uint16) (byte, error) {
	if err := storage.CheckRange(addr, 1); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := redis.Bytes(s.conn.Do("GETRANGE", s.key, int(addr), int(addr)))
	if err != nil {
		return 0, fmt.Errorf("redis store: getrange addr=%d: %w", addr, err)
	}
	if len(b) != 1 {
		return 0, fmt.Errorf("redis store: short read at addr=%d", addr)
	}
	return b[0], nil
}

func (s *Store) Write(addr uint16, b byte) error {
	return s.WriteBytes(addr, []byte{b})
}

// WriteBytes commits data with a single SETRANGE, which Redis applies atomically.
func (s *Store) WriteBytes(addr uint16, data []byte) error {
	if err := storage.CheckRange(addr, len(data)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Do("SETRANGE", s.key, int(addr), data); err != nil {
		return fmt.Errorf("redis store: setrange addr=%d: %w", addr, err)
	}
	return nil
}
