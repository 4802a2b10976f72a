// internal/console/port.go
package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goburrow/serial"
	"github.com/mattn/go-isatty"
	"github.com/pkg/term"
)

// Kinds of console port.
const (
	KindStdin  = "stdin"
	KindTTY    = "tty"
	KindSerial = "serial"
	KindNone   = "none"
)

// serialReadTimeout lets the reader goroutine notice a closed port.
const serialReadTimeout = 100 * time.Millisecond

// Options selects and configures the console port.
type Options struct {
	Kind   string
	Device string
	Baud   int
}

// Port is an open console: input, output and how to talk to it.
type Port struct {
	In  io.Reader
	Out io.Writer

	// EOL is the line ending the far side expects.
	EOL string

	// Interactive is false for piped batch input; the menu is suppressed.
	Interactive bool

	close func() error
}

// Close releases the port.
func (p *Port) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// Open opens the console described by opts.
func Open(opts Options) (*Port, error) {
	switch opts.Kind {
	case KindStdin, "":
		fd := os.Stdin.Fd()
		return &Port{
			In:          os.Stdin,
			Out:         os.Stdout,
			EOL:         "\n",
			Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		}, nil

	case KindTTY:
		t, err := term.Open(opts.Device, term.Speed(opts.Baud), term.RawMode)
		if err != nil {
			return nil, fmt.Errorf("console: open tty %s: %w", opts.Device, err)
		}
		return &Port{
			In:          t,
			Out:         t,
			EOL:         "\r\n",
			Interactive: true,
			close: func() error {
				_ = t.Restore()
				return t.Close()
			},
		}, nil

	case KindSerial:
		p, err := serial.Open(&serial.Config{
			Address:  opts.Device,
			BaudRate: opts.Baud,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
			Timeout:  serialReadTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("console: open serial %s: %w", opts.Device, err)
		}
		return &Port{
			In:          serialReader{p},
			Out:         p,
			EOL:         "\r\n",
			Interactive: true,
			close:       p.Close,
		}, nil
	}
	return nil, fmt.Errorf("console: unknown kind %q", opts.Kind)
}

// serialReader hides read timeouts: an idle line is not an error.
type serialReader struct {
	p serial.Port
}

func (r serialReader) Read(b []byte) (int, error) {
	n, err := r.p.Read(b)
	if errors.Is(err, serial.ErrTimeout) {
		return n, nil
	}
	return n, err
}
