// internal/console/queue.go
package console

import (
	"context"
	"io"
)

// QueueSize is how many unread bytes the queue holds before the reader blocks.
const QueueSize = 4096

// Queue buffers a byte stream so the loop can ask whether input is
// waiting without blocking. One reader goroutine fills it; the loop is
// the only consumer.
type Queue struct {
	in   chan byte
	done chan struct{}
	err  error
	back []byte
}

// NewQueue starts reading r in the background until it fails.
func NewQueue(r io.Reader) *Queue {
	q := &Queue{
		in:   make(chan byte, QueueSize),
		done: make(chan struct{}),
	}
	go q.fill(r)
	return q
}

func (q *Queue) fill(r io.Reader) {
	defer close(q.done)

	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			q.in <- b
		}
		if err != nil {
			q.err = err
			return
		}
	}
}

// Done is closed once the underlying reader has failed or hit EOF.
func (q *Queue) Done() <-chan struct{} { return q.done }

// Pending reports whether a byte can be taken without blocking.
func (q *Queue) Pending() bool {
	return len(q.back) > 0 || len(q.in) > 0
}

// Get returns the next byte, blocking until one arrives, the reader ends,
// or ctx is done.
func (q *Queue) Get(ctx context.Context) (byte, error) {
	if n := len(q.back); n > 0 {
		b := q.back[n-1]
		q.back = q.back[:n-1]
		return b, nil
	}

	select {
	case b := <-q.in:
		return b, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-q.done:
		select {
		case b := <-q.in:
			return b, nil
		default:
		}
		if q.err == nil {
			return 0, io.EOF
		}
		return 0, q.err
	}
}

// Peek returns the next byte only if one is already queued.
func (q *Queue) Peek() (byte, bool) {
	if n := len(q.back); n > 0 {
		return q.back[n-1], true
	}
	select {
	case b := <-q.in:
		q.back = append(q.back, b)
		return b, true
	default:
		return 0, false
	}
}

// Drain discards everything queued and returns how many bytes were dropped.
func (q *Queue) Drain() int {
	n := len(q.back)
	q.back = q.back[:0]
	for {
		select {
		case <-q.in:
			n++
		default:
			return n
		}
	}
}
