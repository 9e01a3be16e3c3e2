package journal

import (
	"errors"
	"sync"
)

// DefaultBacklog is the number of records Async buffers before it starts
// rejecting new ones.
const DefaultBacklog = 1024

var (
	ErrBacklogFull = errors.New("journal: backlog full")
	ErrClosed      = errors.New("journal: closed")
)

type asyncOp struct {
	pos     *PositionRecord
	eq      *EquitySnapshot
	flushed chan struct{}
}

// Async hands records to a background writer so callers never wait on the
// underlying journal. Records are written in the order they were accepted.
// Write errors from the underlying journal go to the error callback.
type Async struct {
	next    Journal
	onError func(record string, err error)

	mu     sync.RWMutex
	closed bool
	ops    chan asyncOp
	done   chan struct{}
}

// NewAsync starts the writer goroutine. A backlog <= 0 uses DefaultBacklog.
func NewAsync(next Journal, backlog int, onError func(record string, err error)) *Async {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if onError == nil {
		onError = func(string, error) {}
	}
	a := &Async{
		next:    next,
		onError: onError,
		ops:     make(chan asyncOp, backlog),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for op := range a.ops {
		switch {
		case op.flushed != nil:
			close(op.flushed)
		case op.pos != nil:
			if err := a.next.RecordPosition(*op.pos); err != nil {
				a.onError("position", err)
			}
		case op.eq != nil:
			if err := a.next.RecordEquity(*op.eq); err != nil {
				a.onError("equity", err)
			}
		}
	}
}

// RecordPosition queues r. It fails only when the backlog is full or the
// journal is closed.
func (a *Async) RecordPosition(r PositionRecord) error {
	return a.enqueue(asyncOp{pos: &r})
}

// RecordEquity queues e.
func (a *Async) RecordEquity(e EquitySnapshot) error {
	return a.enqueue(asyncOp{eq: &e})
}

func (a *Async) enqueue(op asyncOp) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.ops <- op:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Flush waits until every record queued before the call has been written.
func (a *Async) Flush() {
	ch := make(chan struct{})

	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return
	}
	a.ops <- asyncOp{flushed: ch}
	a.mu.RUnlock()

	<-ch
}

// Close drains the backlog and closes the underlying journal.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ops)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
