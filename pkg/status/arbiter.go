// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package status

import (
	"sync"
	"time"

	"printpanel-go/pkg/log"
	"printpanel-go/pkg/machine"
)

// Listener is called after every transition, outside the arbiter's lock.
type Listener func(prev, next Entry)

// Arbiter owns the current status entry. It is safe for concurrent use.
type Arbiter struct {
	mu        sync.Mutex
	entry     Entry
	rules     []Rule
	now       func() time.Time
	logger    *log.Logger
	listeners []Listener
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) { a.now = now }
}

// WithDecay sets how long transient statuses stay visible.
func WithDecay(d time.Duration) Option {
	return func(a *Arbiter) { a.rules = Rules(d) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Arbiter) { a.logger = l }
}

// NewArbiter starts in Disconnected, entered now.
func NewArbiter(opts ...Option) *Arbiter {
	a := &Arbiter{
		rules:  Rules(DefaultDecay),
		now:    time.Now,
		logger: log.GetLogger("status"),
	}
	for _, o := range opts {
		o(a)
	}
	a.entry = Entry{Status: Disconnected, EnteredAt: a.now().Unix()}
	return a
}

// Subscribe registers l for transitions.
func (a *Arbiter) Subscribe(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Current returns the current entry.
func (a *Arbiter) Current() Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entry
}

// Evaluate runs the rule chain against sig and returns the resulting entry.
func (a *Arbiter) Evaluate(sig machine.Signals) Entry {
	a.mu.Lock()
	prev, next, rule := a.evaluateLocked(sig)
	listeners := a.listeners
	a.mu.Unlock()

	a.publish(listeners, prev, next, rule)
	return next
}

// Notify handles an event pushed by the connection or the job runner.
// MotorStopped, JobKilled and JobFinished propose the matching status; the
// chain then runs against that proposal so higher priority rules still
// apply. The entry is only replaced when the resulting status differs.
func (a *Arbiter) Notify(kind machine.EventKind, sig machine.Signals) Entry {
	a.mu.Lock()
	prev := a.entry
	now := a.now().Unix()
	rule := kind.String()

	candidate := prev
	if s, ok := eventStatus(kind); ok && s != prev.Status {
		candidate = Entry{Status: s, EnteredAt: now}
	}
	s, evalRule := Next(a.rules, Input{
		Signals:  sig,
		Previous: candidate.Status,
		Dwell:    candidate.Dwell(now),
	})
	next := candidate
	if s != candidate.Status {
		next = Entry{Status: s, EnteredAt: now}
		rule = evalRule
	}
	if next.Status == prev.Status {
		next = prev
	}
	a.entry = next
	listeners := a.listeners
	a.mu.Unlock()

	a.publish(listeners, prev, next, rule)
	return next
}

func eventStatus(kind machine.EventKind) (Status, bool) {
	switch kind {
	case machine.EventMotorStopped:
		return MotorStopped, true
	case machine.EventJobKilled:
		return JobKilled, true
	case machine.EventJobFinished:
		return JobFinished, true
	}
	return 0, false
}

func (a *Arbiter) evaluateLocked(sig machine.Signals) (prev, next Entry, rule string) {
	prev = a.entry
	now := a.now().Unix()
	s, rule := Next(a.rules, Input{
		Signals:  sig,
		Previous: prev.Status,
		Dwell:    prev.Dwell(now),
	})
	if s != prev.Status {
		a.entry = Entry{Status: s, EnteredAt: now}
	}
	return prev, a.entry, rule
}

func (a *Arbiter) publish(listeners []Listener, prev, next Entry, rule string) {
	if prev == next {
		return
	}
	a.logger.WithFields(log.Fields{
		"from": prev.Status.String(),
		"to":   next.Status.String(),
		"rule": rule,
	}).Info("status changed")
	for _, l := range listeners {
		l(prev, next)
	}
}

// Caption renders the current status against sig.
func (a *Arbiter) Caption(sig machine.Signals) string {
	return Caption(a.Current().Status, sig)
}
