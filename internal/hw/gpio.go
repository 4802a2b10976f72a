// internal/hw/gpio.go
package hw

import (
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/tamzrod/ibutton-cloner/internal/status"
)

// ------------------------------------------------------------
// BUS LINE
// ------------------------------------------------------------

// Line drives the 1-Wire data line as open drain: output low to pull,
// input with pull-up to release.
type Line struct {
	p    gpio.PinIO
	errs faultLog
}

// NewLine wraps p.
func NewLine(p gpio.PinIO) *Line { return &Line{p: p} }

func (l *Line) Low()         { l.errs.check(l.p, "out", l.p.Out(gpio.Low)) }
func (l *Line) Release()     { l.errs.check(l.p, "in", l.p.In(gpio.PullUp, gpio.NoEdge)) }
func (l *Line) Read() bool   { return l.p.Read() == gpio.High }
func (l *Line) Name() string { return l.p.Name() }

// faultLog reports the first GPIO error of a part. Slot timing has no
// error path; later failures show up as failed bus operations.
type faultLog struct {
	logged bool
}

func (f *faultLog) check(p gpio.PinIO, op string, err error) {
	if err == nil || f.logged {
		return
	}
	f.logged = true
	log.Printf("hw: gpio %s failed (pin=%s): %v", op, p.Name(), err)
}

// BusyClock delays precisely enough for slot timing. Short delays spin;
// the scheduler is too coarse below a millisecond.
type BusyClock struct{}

func (BusyClock) Delay(d time.Duration) {
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}

// ------------------------------------------------------------
// BUTTONS AND SELECTOR
// ------------------------------------------------------------

// Buttons are momentary switches to ground on pulled-up inputs.
type Buttons struct {
	read, write gpio.PinIO
}

// NewButtons configures both pins as pulled-up inputs.
func NewButtons(read, write gpio.PinIO) (*Buttons, error) {
	for _, p := range []gpio.PinIO{read, write} {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, err
		}
	}
	return &Buttons{read: read, write: write}, nil
}

func (b *Buttons) ReadHeld() bool  { return b.read.Read() == gpio.Low }
func (b *Buttons) WriteHeld() bool { return b.write.Read() == gpio.Low }

// Selector is the 4-line slot switch on pulled-up inputs, LSB first.
// An open line reads high and counts as 1.
type Selector struct {
	lines [4]gpio.PinIO
}

// NewSelector configures the four pins as pulled-up inputs.
func NewSelector(lines [4]gpio.PinIO) (*Selector, error) {
	for _, p := range lines {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, err
		}
	}
	return &Selector{lines: lines}, nil
}

func (s *Selector) Lines() [4]bool {
	var out [4]bool
	for i, p := range s.lines {
		out[i] = p.Read() == gpio.High
	}
	return out
}

// ------------------------------------------------------------
// STATUS LED
// ------------------------------------------------------------

// LED is the bicolor indicator. Blinks block the loop for
// Cycles * Period, as the single-threaded loop expects.
type LED struct {
	red, green gpio.PinIO
	cycles     int
	period     time.Duration
	sleep      func(time.Duration)
	errs       faultLog
}

// NewLED creates the indicator with both colours off.
func NewLED(red, green gpio.PinIO, cycles int, period time.Duration) (*LED, error) {
	for _, p := range []gpio.PinIO{red, green} {
		if err := p.Out(gpio.Low); err != nil {
			return nil, err
		}
	}
	return &LED{red: red, green: green, cycles: cycles, period: period, sleep: time.Sleep}, nil
}

// Signal shows s: busy lights red, success blinks green, failure blinks red.
func (l *LED) Signal(s status.Signal) {
	switch s {
	case status.SignalBusy:
		l.errs.check(l.red, "out", l.red.Out(gpio.High))
	case status.SignalSuccess:
		l.errs.check(l.red, "out", l.red.Out(gpio.Low))
		l.blink(l.green)
	case status.SignalFailure:
		l.blink(l.red)
	}
}

func (l *LED) blink(p gpio.PinIO) {
	for i := 0; i < l.cycles; i++ {
		l.errs.check(p, "out", p.Out(gpio.High))
		l.sleep(l.period / 2)
		l.errs.check(p, "out", p.Out(gpio.Low))
		l.sleep(l.period / 2)
	}
}
