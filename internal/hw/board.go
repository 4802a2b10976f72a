// internal/hw/board.go
package hw

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pins names the GPIO lines by their periph registry names ("GPIO4", ...).
// Empty names mean the part is not fitted.
type Pins struct {
	Bus      string
	Read     string
	Write    string
	Selector [4]string
	Red      string
	Green    string

	BlinkCycles int
	BlinkPeriod time.Duration
}

// Board is every fitted part. Nil fields are not fitted.
type Board struct {
	Line     *Line
	Buttons  *Buttons
	Selector *Selector
	LED      *LED
}

// Open initialises the host drivers and claims the named pins.
func Open(p Pins) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hw: host init: %w", err)
	}
	return build(p, gpioreg.ByName)
}

// build wires the board from a pin lookup.
func build(p Pins, byName func(string) gpio.PinIO) (*Board, error) {
	lookup := func(role, name string) (gpio.PinIO, error) {
		pin := byName(name)
		if pin == nil {
			return nil, fmt.Errorf("hw: %s pin %q not found", role, name)
		}
		return pin, nil
	}

	var b Board

	if p.Bus == "" {
		return nil, errors.New("hw: bus pin required")
	}
	pin, err := lookup("bus", p.Bus)
	if err != nil {
		return nil, err
	}
	b.Line = NewLine(pin)
	b.Line.Release()

	if p.Read != "" && p.Write != "" {
		r, err := lookup("read button", p.Read)
		if err != nil {
			return nil, err
		}
		w, err := lookup("write button", p.Write)
		if err != nil {
			return nil, err
		}
		if b.Buttons, err = NewButtons(r, w); err != nil {
			return nil, fmt.Errorf("hw: buttons: %w", err)
		}
	}

	if p.Selector[0] != "" {
		var lines [4]gpio.PinIO
		for i, name := range p.Selector {
			if lines[i], err = lookup(fmt.Sprintf("selector %d", i), name); err != nil {
				return nil, err
			}
		}
		if b.Selector, err = NewSelector(lines); err != nil {
			return nil, fmt.Errorf("hw: selector: %w", err)
		}
	}

	if p.Red != "" && p.Green != "" {
		r, err := lookup("red led", p.Red)
		if err != nil {
			return nil, err
		}
		g, err := lookup("green led", p.Green)
		if err != nil {
			return nil, err
		}
		if b.LED, err = NewLED(r, g, p.BlinkCycles, p.BlinkPeriod); err != nil {
			return nil, fmt.Errorf("hw: led: %w", err)
		}
	}

	return &b, nil
}
