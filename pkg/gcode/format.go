// Canonical numeric formatting for emitted G-code
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"math"
	"strconv"
	"strings"
)

// Precision is the number of fractional digits kept in emitted numbers.
const Precision = 3

// Format renders v with a '.' decimal point, at most Precision fractional
// digits and no trailing zeros. Values that round to zero render as "0".
// Every emitter uses this so that what the analyzer parses back matches
// what was sent.
func Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	s := strconv.FormatFloat(v, 'f', Precision, 64)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// Round returns v as it will read back after Format.
func Round(v float64) float64 {
	f, _ := strconv.ParseFloat(Format(v), 64)
	return f
}

// ParseFloat parses a number in the canonical format. It is the inverse
// of Format and is locale independent.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
