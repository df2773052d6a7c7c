// Line builders for the commands the panel emits
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"strconv"
	"strings"

	"printpanel-go/pkg/machine"
)

// Debug level bits understood by M111.
const (
	DebugEcho   = 1
	DebugInfo   = 2
	DebugErrors = 4
	DebugDryRun = 8
)

const (
	CmdAbsolute  = "G90"
	CmdRelative  = "G91"
	CmdFanOff    = "M107"
	CmdPowerOn   = "M80"
	CmdPowerOff  = "M81"
	CmdMotorsOff = "M84"
)

// Move is a relative-or-absolute single-axis G1 with feed rate.
func Move(axis machine.Axis, distance, feed float64) string {
	return "G1 " + axis.String() + Format(distance) + " F" + Format(feed)
}

// Extrude moves the extruder by amount (negative retracts) at speed.
func Extrude(amount, speed float64) string {
	return "G1 E" + Format(amount) + " F" + Format(speed)
}

// Home emits G28 for the given axes, or for all axes when none are given.
func Home(axes ...machine.Axis) string {
	if len(axes) == 0 {
		axes = machine.Axes[:]
	}
	var sb strings.Builder
	sb.WriteString("G28")
	for _, a := range axes {
		sb.WriteString(" ")
		sb.WriteString(a.String())
		sb.WriteString("0")
	}
	return sb.String()
}

// ExtruderTemp sets the extruder target; 0 turns the heater off.
func ExtruderTemp(target float64) string {
	return "M104 S" + Format(target)
}

// BedTemp sets the heated bed target; 0 turns the heater off.
func BedTemp(target float64) string {
	return "M140 S" + Format(target)
}

// FanOn sets the part fan PWM value (0..255).
func FanOn(value int) string {
	return "M106 S" + strconv.Itoa(clampInt(value, 0, 255))
}

// SpeedFactor sets the feed rate multiplier in percent.
func SpeedFactor(percent int) string {
	return "M220 S" + strconv.Itoa(percent)
}

// DebugLevel sets the firmware debug bits.
func DebugLevel(mask int) string {
	return "M111 S" + strconv.Itoa(mask)
}

// DebugMask builds an M111 mask from the individual flags.
func DebugMask(echo, info, errors, dryRun bool) int {
	mask := 0
	if echo {
		mask |= DebugEcho
	}
	if info {
		mask |= DebugInfo
	}
	if errors {
		mask |= DebugErrors
	}
	if dryRun {
		mask |= DebugDryRun
	}
	return mask
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
