// cmd/cloner/sink.go
package main

import (
	"github.com/tamzrod/ibutton-cloner/internal/hw"
	"github.com/tamzrod/ibutton-cloner/internal/status"
)

// outcomeSink is one place outcomes and signals go.
type outcomeSink interface {
	Report(o status.Outcome)
	Signal(s status.Signal)
}

// multiSink fans out to every fitted sink in order.
type multiSink []outcomeSink

func (m multiSink) Report(o status.Outcome) {
	for _, s := range m {
		s.Report(o)
	}
}

func (m multiSink) Signal(v status.Signal) {
	for _, s := range m {
		s.Signal(v)
	}
}

// ledSink drives the indicator; it has no text output.
type ledSink struct {
	led *hw.LED
}

func (l ledSink) Report(status.Outcome)  {}
func (l ledSink) Signal(v status.Signal) { l.led.Signal(v) }
