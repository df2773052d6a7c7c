// Package gate serializes command injection so that the lines of one
// logical command unit reach the printer contiguously.
package gate

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/log"
)

// LineSender is the transport a sequence writes to.
type LineSender interface {
	SendLine(line string) error
}

// Observer is told about every finished sequence.
type Observer interface {
	SequenceDone(name string, lines int, err error)
}

// Gate is a FIFO mutex. Waiters are woken in arrival order, and a holder
// releases it on every exit path of Do.
type Gate struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}

	logger   *log.Logger
	observer Observer
}

// New returns an unlocked gate.
func New(logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.GetLogger("gate")
	}
	return &Gate{logger: logger}
}

// SetObserver installs o; nil removes it.
func (g *Gate) SetObserver(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observer = o
}

// Lock blocks until the gate is acquired or ctx is done.
func (g *Gate) Lock(ctx context.Context) error {
	g.mu.Lock()
	if !g.held {
		g.held = true
		g.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	g.waiters = append(g.waiters, ch)
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	g.mu.Lock()
	for i, w := range g.waiters {
		if w == ch {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			g.mu.Unlock()
			return ctx.Err()
		}
	}
	g.mu.Unlock()
	// Ownership was handed to us while cancelling; pass it on.
	g.Unlock()
	return ctx.Err()
}

// Unlock releases the gate to the oldest waiter, if any.
func (g *Gate) Unlock() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.waiters) > 0 {
		ch := g.waiters[0]
		g.waiters = g.waiters[1:]
		close(ch)
		return
	}
	g.held = false
}

// Held reports whether some sequence currently owns the gate.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Waiting returns the number of blocked acquirers.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// Do acquires the gate, runs fn with a Sequence writing to w, and releases
// the gate when fn returns or panics.
func (g *Gate) Do(ctx context.Context, name string, w LineSender, fn func(*Sequence) error) error {
	if err := g.Lock(ctx); err != nil {
		return err
	}
	seq := &Sequence{ID: uuid.NewString(), Name: name, w: w, logger: g.logger}
	defer func() {
		g.Unlock()
		g.mu.Lock()
		o := g.observer
		g.mu.Unlock()
		if o != nil {
			o.SequenceDone(name, seq.written, seq.err)
		}
	}()

	err := fn(seq)
	if err == nil {
		err = seq.err
	}
	if err != nil {
		g.logger.WithFields(log.Fields{
			"sequence": seq.ID,
			"name":     name,
			"written":  seq.written,
		}).WithError(err).Warn("sequence aborted")
		seq.err = err
		return err
	}
	g.logger.WithFields(log.Fields{"sequence": seq.ID, "name": name, "lines": seq.written}).Debug("sequence done")
	return nil
}

// Sequence is the handle a gated unit writes through. After the first
// failed write every further Send returns the same error.
type Sequence struct {
	ID   string
	Name string

	w       LineSender
	logger  *log.Logger
	written int
	err     error
}

// Send writes one line.
func (s *Sequence) Send(line string) error {
	if s.err != nil {
		return s.err
	}
	if err := s.w.SendLine(line); err != nil {
		s.err = errors.SequenceInterrupted(s.ID, line, s.written, err)
		return s.err
	}
	s.written++
	s.logger.WithFields(log.Fields{"sequence": s.ID, "line": line}).Debug("sent")
	return nil
}

// SendAll writes lines in order and stops at the first failure.
func (s *Sequence) SendAll(lines ...string) error {
	for _, l := range lines {
		if err := s.Send(l); err != nil {
			return err
		}
	}
	return nil
}

// Written is the number of lines that reached the transport.
func (s *Sequence) Written() int {
	return s.written
}
