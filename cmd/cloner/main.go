// cmd/cloner/main.go
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/ibutton-cloner/internal/arbiter"
	"github.com/tamzrod/ibutton-cloner/internal/config"
	"github.com/tamzrod/ibutton-cloner/internal/console"
	"github.com/tamzrod/ibutton-cloner/internal/crc8"
	"github.com/tamzrod/ibutton-cloner/internal/dispatcher"
	"github.com/tamzrod/ibutton-cloner/internal/fault"
	"github.com/tamzrod/ibutton-cloner/internal/hw"
	"github.com/tamzrod/ibutton-cloner/internal/onewire"
	"github.com/tamzrod/ibutton-cloner/internal/onewire/sim"
	"github.com/tamzrod/ibutton-cloner/internal/slot"
	"github.com/tamzrod/ibutton-cloner/internal/storage"
	filestore "github.com/tamzrod/ibutton-cloner/internal/storage/file"
	modbusstore "github.com/tamzrod/ibutton-cloner/internal/storage/modbus"
	redisstore "github.com/tamzrod/ibutton-cloner/internal/storage/redis"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: cloner <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Persistent slot store
	// --------------------

	bs, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatalf("storage open failed (kind=%s): code=%d err=%v", cfg.Storage.Kind, fault.CodeOf(err), err)
	}
	defer closeStore()

	store, err := slot.New(bs)
	if err != nil {
		log.Fatalf("slot store failed: %v", err)
	}

	// --------------------
	// Hardware + bus
	// --------------------

	var board *hw.Board
	if cfg.Bus.Driver == "periph" {
		board, err = hw.Open(pinsFor(cfg))
		if err != nil {
			log.Fatalf("hardware init failed (bus_pin=%s): %v", cfg.Bus.Pin, err)
		}
	}

	bus, err := openBus(cfg.Bus, board)
	if err != nil {
		log.Fatalf("bus init failed (driver=%s): %v", cfg.Bus.Driver, err)
	}

	// --------------------
	// Inputs
	// --------------------

	var (
		selector dispatcher.Selector
		buttons  arbiter.Buttons
		channel  arbiter.Channel
		sinks    multiSink
	)

	if board != nil {
		if board.Selector != nil {
			selector = board.Selector
		}
		if board.Buttons != nil {
			buttons = board.Buttons
		}
		if board.LED != nil {
			sinks = append(sinks, ledSink{board.LED})
		}
	}

	var printer *console.Printer
	if cfg.Console.Kind != console.KindNone {
		port, err := console.Open(console.Options{
			Kind:   cfg.Console.Kind,
			Device: cfg.Console.Device,
			Baud:   cfg.Console.Baud,
		})
		if err != nil {
			log.Fatalf("console open failed: %v", err)
		}
		defer port.Close()

		printer = console.NewPrinter(port.Out, port.EOL, port.Interactive)
		sinks = append(sinks, printer)

		q := console.NewQueue(port.In)
		if buttons == nil {
			// console is the only input: end of input ends the process
			channel = endOfInput{console.NewDecoder(q), q}
		} else {
			channel = console.NewDecoder(q)
		}
	}

	// --------------------
	// Session + dispatcher + arbiter
	// --------------------

	session := dispatcher.NewSession(selector, cfg.Inputs.FixedSlot)

	d, err := dispatcher.New(dispatcher.Config{
		AllowAdvanced:    cfg.Cloner.AdvancedMode,
		ValidateCRC:      cfg.Cloner.ValidateCRC,
		VerifyAfterWrite: cfg.Cloner.VerifyAfterWrite,
		WaitTimeout:      ms(cfg.Cloner.WaitTimeoutMs),
		PollMin:          ms(cfg.Cloner.PollMinMs),
		PollMax:          ms(cfg.Cloner.PollMaxMs),
	}, session, store, bus, sinks)
	if err != nil {
		log.Fatalf("dispatcher build failed: %v", err)
	}

	a, err := arbiter.New(arbiter.Config{
		Debounce:       ms(cfg.Cloner.DebounceMs),
		Idle:           ms(cfg.Cloner.IdleMs),
		ReleaseTimeout: ms(cfg.Cloner.ReleaseTimeoutMs),
	}, channel, buttons, sinks)
	if err != nil {
		log.Fatalf("arbiter build failed: %v", err)
	}

	hooks := arbiter.Hooks{}
	if printer != nil {
		hooks.Drained = func() { printer.Menu(session.Advanced) }
		hooks.Reset = func(dropped int) {
			printer.Dropped(dropped)
			printer.Menu(session.Advanced)
		}
		printer.Menu(session.Advanced)
	}

	log.Printf("cloner started (session=%s storage=%s bus=%s console=%s advanced_allowed=%v)",
		session.ID, cfg.Storage.Kind, cfg.Bus.Driver, cfg.Console.Kind, cfg.Cloner.AdvancedMode)

	// --------------------
	// Single cooperative loop
	// --------------------

	err = a.Run(ctx, d, hooks)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		log.Fatalf("loop stopped (session=%s): code=%d err=%v", session.ID, fault.CodeOf(err), err)
	}
	log.Printf("cloner stopped (session=%s)", session.ID)
}

// openStore opens the configured byte store and returns its closer.
func openStore(c config.StorageConfig) (storage.ByteStore, func(), error) {
	noop := func() {}
	timeout := ms(c.TimeoutMs)

	switch c.Kind {
	case "file":
		s, err := filestore.Open(c.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, closer(s), nil

	case "redis":
		s, err := redisstore.Dial(redisstore.Config{Endpoint: c.Endpoint, Key: c.Key, Timeout: timeout})
		if err != nil {
			return nil, noop, err
		}
		return s, closer(s), nil

	case "modbus":
		s, err := modbusstore.Dial(modbusstore.Config{
			Endpoint: c.Endpoint,
			UnitID:   c.UnitID,
			Timeout:  timeout,
			Base:     c.Base,
		})
		if err != nil {
			return nil, noop, err
		}
		return s, closer(s), nil
	}

	log.Printf("storage kind memory: slots are lost on exit")
	return storage.NewMemory(), noop, nil
}

// pinsFor names the pins to claim. Input parts are claimed only when
// the periph input driver is selected.
func pinsFor(cfg *config.Config) hw.Pins {
	p := hw.Pins{Bus: cfg.Bus.Pin}
	if cfg.Inputs.Driver != "periph" {
		return p
	}

	in := cfg.Inputs
	p.Read, p.Write = in.ReadButton, in.WriteButton
	p.Selector = in.Selector
	p.Red, p.Green = in.LEDRed, in.LEDGreen
	p.BlinkCycles = in.BlinkCycles
	p.BlinkPeriod = ms(in.BlinkMs)
	return p
}

// openBus builds the bus engine on real GPIO or on an emulated tag.
func openBus(c config.BusConfig, board *hw.Board) (*onewire.Bus, error) {
	var opts []onewire.Option
	if c.Trace {
		opts = append(opts, onewire.WithLogger(log.Default()))
	}

	if c.Driver == "periph" {
		return onewire.New(board.Line, hw.BusyClock{}, opts...)
	}

	id := simDefault
	id[7] = crc8.Checksum(id[:7])
	if c.SimIdentifier != "" {
		var err error
		if id, err = c.Identifier(); err != nil {
			return nil, err
		}
	}
	dev := sim.NewDevice(id)
	log.Printf("bus driver sim: emulated tag present (id=% X)", id)
	return onewire.New(dev, dev, opts...)
}

// endOfInput reports a finished console as pending so the next decode
// returns io.EOF instead of idling forever.
type endOfInput struct {
	*console.Decoder
	q *console.Queue
}

func (e endOfInput) Pending() bool {
	if e.Decoder.Pending() {
		return true
	}
	select {
	case <-e.q.Done():
		return true
	default:
		return false
	}
}

// simDefault is the emulated tag when none is configured. Byte 7 is
// filled with the checksum at startup.
var simDefault = [8]byte{0x01, 0x5A, 0x3C, 0x11, 0x00, 0x00, 0x00}

func closer(c storage.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Printf("storage close failed: %v", err)
		}
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
