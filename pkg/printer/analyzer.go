// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package printer

import (
	"regexp"
	"strings"

	"printpanel-go/pkg/gcode"
	"printpanel-go/pkg/machine"
)

// State is what the analyzer has learned from sent commands and firmware
// responses.
type State struct {
	Relative         bool
	Axes             [3]machine.AxisState
	Extruder         float64
	ExtruderTarget   float64
	ExtruderMeasured float64
	BedTarget        float64
	BedMeasured      float64
	FanOn            bool
	FanValue         int
	PowerOn          bool
	SpeedFactor      int
}

// Analyzer tracks machine state from the command stream. It is not safe
// for concurrent use; Printer serializes access.
type Analyzer struct {
	st State
}

// NewAnalyzer starts in absolute mode with nothing homed.
func NewAnalyzer() *Analyzer {
	return &Analyzer{st: State{SpeedFactor: 100, PowerOn: true}}
}

// State returns a copy of the tracked state.
func (a *Analyzer) State() State {
	return a.st
}

var axisLetters = [3]string{"X", "Y", "Z"}

// Apply updates the state for a line that was sent to the printer.
func (a *Analyzer) Apply(line string) {
	cmd := gcode.Parse(line)
	if cmd == nil {
		return
	}
	switch cmd.Name {
	case "G90":
		a.st.Relative = false
	case "G91":
		a.st.Relative = true
	case "G0", "G1":
		for i, l := range axisLetters {
			if v, ok := cmd.Float(l); ok {
				if a.st.Relative {
					a.st.Axes[i].Position += v
				} else {
					a.st.Axes[i].Position = v
				}
			}
		}
		if v, ok := cmd.Float("E"); ok {
			if a.st.Relative {
				a.st.Extruder += v
			} else {
				a.st.Extruder = v
			}
		}
	case "G28":
		all := !cmd.Has("X") && !cmd.Has("Y") && !cmd.Has("Z")
		for i, l := range axisLetters {
			if all || cmd.Has(l) {
				a.st.Axes[i] = machine.AxisState{Position: 0, Homed: true}
			}
		}
	case "G92":
		for i, l := range axisLetters {
			if v, ok := cmd.Float(l); ok {
				a.st.Axes[i].Position = v
			}
		}
		if v, ok := cmd.Float("E"); ok {
			a.st.Extruder = v
		}
	case "M104", "M109":
		if v, ok := cmd.Float("S"); ok {
			a.st.ExtruderTarget = v
		}
	case "M140", "M190":
		if v, ok := cmd.Float("S"); ok {
			a.st.BedTarget = v
		}
	case "M106":
		a.st.FanOn = true
		a.st.FanValue = 255
		if v, ok := cmd.Float("S"); ok {
			a.st.FanValue = int(v)
		}
	case "M107":
		a.st.FanOn = false
	case "M80":
		a.st.PowerOn = true
	case "M81":
		a.st.PowerOn = false
	case "M84", "M18":
		for i := range a.st.Axes {
			a.st.Axes[i].Homed = false
		}
	case "M220":
		if v, ok := cmd.Float("S"); ok {
			a.st.SpeedFactor = int(v)
		}
	}
}

var reTemp = regexp.MustCompile(`\b([TB])\d?:\s*(-?\d+(?:\.\d+)?)(?:\s*/\s*(-?\d+(?:\.\d+)?))?`)

// ApplyResponse picks temperatures out of a firmware reply such as
// "ok T:201.5 /210.0 B:59.8 /60.0". It reports whether anything changed.
func (a *Analyzer) ApplyResponse(line string) bool {
	if !strings.Contains(line, ":") {
		return false
	}
	changed := false
	seen := map[string]bool{}
	for _, m := range reTemp.FindAllStringSubmatch(line, -1) {
		// Multi-extruder replies list T then T0, T1; the first one is the
		// active extruder.
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		measured, err := gcode.ParseFloat(m[2])
		if err != nil {
			continue
		}
		target, hasTarget := 0.0, false
		if m[3] != "" {
			if v, err := gcode.ParseFloat(m[3]); err == nil {
				target, hasTarget = v, true
			}
		}
		switch m[1] {
		case "T":
			a.st.ExtruderMeasured = measured
			if hasTarget {
				a.st.ExtruderTarget = target
			}
		case "B":
			a.st.BedMeasured = measured
			if hasTarget {
				a.st.BedTarget = target
			}
		}
		changed = true
	}
	return changed
}

// SetMeasured overrides the measured temperatures; used by the simulator.
func (a *Analyzer) SetMeasured(extruder, bed float64) {
	a.st.ExtruderMeasured = extruder
	a.st.BedMeasured = bed
}
