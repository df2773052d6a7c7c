// Package machinetest provides an in-memory machine.Connection for tests.
package machinetest

import (
	"errors"
	"sync"
	"time"

	"printpanel-go/pkg/machine"
)

// ErrWriteFailed is returned by SendLine when a failure is injected.
var ErrWriteFailed = errors.New("machinetest: write failed")

// Conn records sent lines and serves a settable snapshot.
type Conn struct {
	mu     sync.Mutex
	snap   machine.Snapshot
	lines  []string
	failAt int
	subs   []chan machine.Event

	// OnSend, if set, runs for every line before it is recorded.
	OnSend func(line string, snap *machine.Snapshot)
}

// New returns a connected fake with a 200x200x100 profile.
func New() *Conn {
	c := &Conn{}
	c.snap.Connected = true
	c.snap.SpeedFactor = 100
	c.snap.Profile = machine.Profile{
		TravelFeedRate: 4800,
		MaxZFeedRate:   100,
		Limits:         [3]float64{200, 200, 100},
		HasHeatedBed:   true,
	}
	c.snap.HasHeatedBed = true
	return c
}

// Snapshot implements machine.Connection.
func (c *Conn) Snapshot() machine.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Update mutates the snapshot under the lock.
func (c *Conn) Update(fn func(s *machine.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.snap)
}

// SendLine implements machine.Connection.
func (c *Conn) SendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.lines)+1 == c.failAt {
		c.failAt = 0
		return ErrWriteFailed
	}
	if c.OnSend != nil {
		c.OnSend(line, &c.snap)
	}
	c.lines = append(c.lines, line)
	return nil
}

// FailAt makes the n-th line sent overall (1-based) fail once.
func (c *Conn) FailAt(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAt = n
}

// Lines returns everything sent so far.
func (c *Conn) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// Reset forgets the recorded lines.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Subscribe implements machine.Connection.
func (c *Conn) Subscribe() (<-chan machine.Event, func()) {
	ch := make(chan machine.Event, 16)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s == ch {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

// Emit delivers an event to every subscriber.
func (c *Conn) Emit(kind machine.EventKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		s <- machine.Event{Kind: kind, At: time.Now()}
	}
}
