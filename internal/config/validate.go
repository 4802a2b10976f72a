// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/ibutton-cloner/internal/console"
	"github.com/tamzrod/ibutton-cloner/internal/storage"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// CLONER TIMING
	// ------------------------------------------------------------

	c := cfg.Cloner
	for name, v := range map[string]int{
		"wait_timeout_ms":    c.WaitTimeoutMs,
		"release_timeout_ms": c.ReleaseTimeoutMs,
		"debounce_ms":        c.DebounceMs,
		"idle_ms":            c.IdleMs,
		"poll_min_ms":        c.PollMinMs,
		"poll_max_ms":        c.PollMaxMs,
	} {
		if v < 0 {
			return fmt.Errorf("cloner: %s must be >= 0, got %d", name, v)
		}
	}

	// ------------------------------------------------------------
	// STORAGE
	// ------------------------------------------------------------

	s := cfg.Storage
	switch s.Kind {
	case "", "memory":
	case "file":
		if s.Path == "" {
			return fmt.Errorf("storage: kind file requires path")
		}
	case "redis", "modbus":
		if s.Endpoint == "" {
			return fmt.Errorf("storage: kind %s requires endpoint", s.Kind)
		}
	default:
		return fmt.Errorf("storage: unknown kind %q", s.Kind)
	}
	if s.TimeoutMs < 0 {
		return fmt.Errorf("storage: timeout_ms must be >= 0, got %d", s.TimeoutMs)
	}
	if s.Kind == "modbus" && int(s.Base)+storage.Size > 0x10000 {
		return fmt.Errorf("storage: base %d leaves no room for %d registers (max %d)", s.Base, storage.Size, 0x10000-storage.Size)
	}

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	b := cfg.Bus
	switch b.Driver {
	case "", "sim":
		if b.SimIdentifier != "" {
			if _, err := b.Identifier(); err != nil {
				return err
			}
		}
	case "periph":
		if b.Pin == "" {
			return fmt.Errorf("bus: driver periph requires pin")
		}
	default:
		return fmt.Errorf("bus: unknown driver %q", b.Driver)
	}

	// ------------------------------------------------------------
	// INPUTS
	// ------------------------------------------------------------

	in := cfg.Inputs
	switch in.Driver {
	case "", "none":
	case "periph":
		if b.Driver != "periph" {
			return fmt.Errorf("inputs: driver periph requires bus driver periph")
		}
		if (in.ReadButton == "") != (in.WriteButton == "") {
			return fmt.Errorf("inputs: read_button and write_button must be set together")
		}
		set := 0
		for _, p := range in.Selector {
			if p != "" {
				set++
			}
		}
		if set != 0 && set != len(in.Selector) {
			return fmt.Errorf("inputs: selector needs all 4 lines, got %d", set)
		}
		if (in.LEDRed == "") != (in.LEDGreen == "") {
			return fmt.Errorf("inputs: led_red and led_green must be set together")
		}
	default:
		return fmt.Errorf("inputs: unknown driver %q", in.Driver)
	}
	if in.FixedSlot > 15 {
		return fmt.Errorf("inputs: fixed_slot must be 0-15, got %d", in.FixedSlot)
	}
	if in.BlinkCycles < 0 || in.BlinkMs < 0 {
		return fmt.Errorf("inputs: blink_cycles and blink_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// CONSOLE
	// ------------------------------------------------------------

	con := cfg.Console
	switch con.Kind {
	case "", console.KindStdin, console.KindNone:
	case console.KindTTY, console.KindSerial:
		if con.Device == "" {
			return fmt.Errorf("console: kind %s requires device", con.Kind)
		}
	default:
		return fmt.Errorf("console: unknown kind %q", con.Kind)
	}
	if con.Baud < 0 {
		return fmt.Errorf("console: baud must be >= 0, got %d", con.Baud)
	}

	// something must be able to issue commands
	if in.Driver != "periph" && con.Kind == console.KindNone {
		return fmt.Errorf("config: no input source (console none and no periph inputs)")
	}

	return nil
}

// Identifier parses the emulated tag identifier ("0x01, 0x02, ...", 8 bytes).
func (b BusConfig) Identifier() ([8]byte, error) {
	var id [8]byte
	raw, err := console.ParseHexLine([]byte(b.SimIdentifier))
	if err != nil {
		return id, fmt.Errorf("bus: sim_identifier: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("bus: sim_identifier needs 8 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
