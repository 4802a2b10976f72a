// internal/arbiter/runner.go
package arbiter

import (
	"context"
	"errors"
	"log"

	"github.com/tamzrod/ibutton-cloner/internal/command"
	"github.com/tamzrod/ibutton-cloner/internal/fault"
	"github.com/tamzrod/ibutton-cloner/internal/status"
)

// Dispatcher executes one request and can return the session to a clean slate.
type Dispatcher interface {
	Dispatch(ctx context.Context, req command.Request) status.Outcome
	HardReset()
}

// Hooks are optional callbacks around the loop.
type Hooks struct {
	// Drained runs after a channel request when no further input is queued.
	Drained func()

	// Reset runs after a framing error has reset the session.
	Reset func(dropped int)
}

// Run is the single cooperative loop. One request per cycle. No overlap.
// It returns nil when ctx is cancelled.
func (a *Arbiter) Run(ctx context.Context, d Dispatcher, h Hooks) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		req, ok, err := a.PollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, fault.ErrFraming) {
				a.recover(d, h, err)
				continue
			}
			return err
		}
		if !ok {
			continue
		}

		d.Dispatch(ctx, req)

		switch req.Source {
		case command.FromButtons:
			// one gesture, one action
			if err := a.WaitRelease(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("button release wait failed (kind=%s): %v", req.Kind, err)
			}

		case command.FromChannel:
			if h.Drained != nil && !a.ch.Pending() {
				h.Drained()
			}
		}
	}
}

// recover replaces a process restart: the session goes back to its initial
// state and every queued byte is discarded.
func (a *Arbiter) recover(d Dispatcher, h Hooks, cause error) {
	d.HardReset()

	dropped := 0
	if a.ch != nil {
		dropped = a.ch.Drain()
	}
	log.Printf("command channel desync, session reset (dropped=%d): %v", dropped, cause)

	if h.Reset != nil {
		h.Reset(dropped)
	}
}
