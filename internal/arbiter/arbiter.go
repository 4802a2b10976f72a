// internal/arbiter/arbiter.go
package arbiter

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/ibutton-cloner/internal/command"
	"github.com/tamzrod/ibutton-cloner/internal/status"
	"github.com/tamzrod/ibutton-cloner/internal/wait"
)

// ComboRounds is how many debounce rounds both buttons must stay held
// before the record-clear fires.
const ComboRounds = 3

// Channel is a decoded command source. Pending never blocks.
type Channel interface {
	Pending() bool
	Next(ctx context.Context) (command.Request, error)
	Drain() int
}

// Buttons samples the two momentary buttons. true means held.
type Buttons interface {
	ReadHeld() bool
	WriteHeld() bool
}

// Signaler shows progress of the button combo.
type Signaler interface {
	Signal(s status.Signal)
}

// Config is the minimal runtime config the arbiter needs.
type Config struct {
	// Debounce is the length of one combo round.
	Debounce time.Duration

	// Idle is the pause of a cycle with no input.
	Idle time.Duration

	// ReleasePoll is the sampling period while waiting for release.
	ReleasePoll time.Duration

	// ReleaseTimeout bounds WaitRelease. Zero waits forever.
	ReleaseTimeout time.Duration

	// Sleep is injectable for tests; nil means real time.
	Sleep wait.SleepFunc
}

// Arbiter turns sampled inputs into at most one request per cycle.
type Arbiter struct {
	cfg Config
	ch  Channel
	btn Buttons
	sig Signaler
}

// New creates an arbiter. ch and btn may be nil when that input is not fitted,
// but not both.
func New(cfg Config, ch Channel, btn Buttons, sig Signaler) (*Arbiter, error) {
	if ch == nil && btn == nil {
		return nil, errors.New("arbiter: at least one input source required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Idle <= 0 {
		cfg.Idle = time.Millisecond
	}
	if cfg.ReleasePoll <= 0 {
		cfg.ReleasePoll = time.Millisecond
	}
	if cfg.Sleep == nil {
		cfg.Sleep = wait.Sleep
	}
	return &Arbiter{cfg: cfg, ch: ch, btn: btn, sig: sig}, nil
}

// PollOnce performs exactly one arbitration cycle.
// ok is false when the cycle produced nothing.
func (a *Arbiter) PollOnce(ctx context.Context) (req command.Request, ok bool, err error) {
	// Channel input wins over button state this cycle.
	if a.ch != nil && a.ch.Pending() {
		req, err = a.ch.Next(ctx)
		if err != nil {
			return command.Request{}, false, err
		}
		if req.Kind == command.None {
			// only separators were queued
			return command.Request{}, false, nil
		}
		req.Source = command.FromChannel
		return req, true, nil
	}

	if a.btn != nil {
		read, write := a.btn.ReadHeld(), a.btn.WriteHeld()

		switch {
		case read && write:
			fired, err := a.combo(ctx)
			if err != nil || !fired {
				return command.Request{}, false, err
			}
			return command.Request{Kind: command.Clear, Source: command.FromButtons}, true, nil

		case read:
			return command.Request{Kind: command.ReadFromDevice, Source: command.FromButtons}, true, nil

		case write:
			return command.Request{Kind: command.WriteToDevice, Source: command.FromButtons}, true, nil
		}
	}

	return command.Request{}, false, a.cfg.Sleep(ctx, a.cfg.Idle)
}

// combo confirms both buttons stay held for ComboRounds debounce rounds.
// Releasing either one aborts.
func (a *Arbiter) combo(ctx context.Context) (bool, error) {
	for i := 0; i < ComboRounds; i++ {
		a.signal(status.SignalBusy)
		if err := a.cfg.Sleep(ctx, a.cfg.Debounce); err != nil {
			return false, err
		}
		if !a.btn.ReadHeld() || !a.btn.WriteHeld() {
			return false, nil
		}
	}
	return true, nil
}

// WaitRelease blocks until both buttons are released.
func (a *Arbiter) WaitRelease(ctx context.Context) error {
	if a.btn == nil {
		return nil
	}

	ctx, cancel := wait.Bound(ctx, a.cfg.ReleaseTimeout)
	defer cancel()

	err := wait.Until(ctx, a.cfg.Sleep,
		func() time.Duration { return a.cfg.ReleasePoll },
		func() bool { return !a.btn.ReadHeld() && !a.btn.WriteHeld() },
	)
	return wait.Classify("wait for release", err)
}

func (a *Arbiter) signal(s status.Signal) {
	if a.sig != nil {
		a.sig.Signal(s)
	}
}
