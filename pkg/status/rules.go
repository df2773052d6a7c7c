// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package status

import (
	"time"

	"printpanel-go/pkg/machine"
)

const (
	// HeatingFloor is the measured temperature above which a heater can be
	// reported as heating.
	HeatingFloor = 15.0

	// HeatingBand is how far below target a heater must be to count as heating.
	HeatingBand = 5.0

	// DefaultDecay is how long a transient status stays visible.
	DefaultDecay = 30 * time.Second
)

// Input is everything a rule may look at.
type Input struct {
	Signals  machine.Signals
	Previous Status
	Dwell    int64
}

// Rule is one step of the priority chain. Apply returns matched=false to
// fall through to the next rule; a matching rule decides the next status,
// which may be the previous one.
type Rule struct {
	Name  string
	Apply func(in Input) (next Status, matched bool)
}

func extruderHeating(s machine.Signals) bool {
	return s.ExtruderMeasured > HeatingFloor && s.ExtruderTarget-s.ExtruderMeasured >= HeatingBand
}

func bedHeating(s machine.Signals) bool {
	return s.HasHeatedBed && s.BedMeasured > HeatingFloor && s.BedTarget-s.BedMeasured >= HeatingBand
}

// Rules returns the priority chain, first match wins. decay is the dwell
// after which MotorStopped, JobKilled and JobFinished fall back to Idle.
func Rules(decay time.Duration) []Rule {
	decaySeconds := int64(decay / time.Second)
	return []Rule{
		{"disconnected", func(in Input) (Status, bool) {
			return Disconnected, !in.Signals.Connected
		}},
		{"heating_extruder", func(in Input) (Status, bool) {
			return HeatingExtruder, extruderHeating(in.Signals)
		}},
		{"heating_bed", func(in Input) (Status, bool) {
			return HeatingBed, bedHeating(in.Signals)
		}},
		{"heating_done", func(in Input) (Status, bool) {
			return Idle, in.Previous == HeatingBed || in.Previous == HeatingExtruder
		}},
		{"paused", func(in Input) (Status, bool) {
			return JobPaused, in.Signals.Paused && in.Previous != JobPaused
		}},
		{"resumed", func(in Input) (Status, bool) {
			return Idle, in.Previous == JobPaused && !in.Signals.Paused
		}},
		{"idle", func(in Input) (Status, bool) {
			return Idle, in.Previous == Idle && in.Dwell > 0
		}},
		{"decay", func(in Input) (Status, bool) {
			if !in.Previous.Transient() {
				return in.Previous, false
			}
			if in.Dwell >= decaySeconds {
				return Idle, true
			}
			return in.Previous, true
		}},
		{"reconnected", func(in Input) (Status, bool) {
			return Idle, in.Previous == Disconnected && in.Signals.Connected
		}},
	}
}

// Next runs the chain over in and returns the resulting status and the
// name of the rule that decided it ("hold" when none matched).
func Next(rules []Rule, in Input) (Status, string) {
	for _, r := range rules {
		if next, ok := r.Apply(in); ok {
			return next, r.Name
		}
	}
	return in.Previous, "hold"
}
