// Minimal G-code line parser used to track what was sent to the printer
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"regexp"
	"strings"
)

var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// Command is one parsed line. Args maps the upper-case parameter letter
// to its raw value text; flags without a value map to "".
type Command struct {
	Name string
	Args map[string]string
	Raw  string
}

// Parse splits a line into a command name and its parameters. It returns
// nil for blank and comment-only lines.
func Parse(line string) *Command {
	ln := line
	if idx := strings.IndexByte(ln, ';'); idx >= 0 {
		ln = ln[:idx]
	}
	ln = strings.TrimSpace(reParenComment.ReplaceAllString(ln, " "))
	fields := strings.Fields(ln)
	if len(fields) == 0 {
		return nil
	}

	// Line numbers and checksums are transport framing.
	if n := strings.ToUpper(fields[0]); strings.HasPrefix(n, "N") && len(fields) > 1 {
		fields = fields[1:]
	}
	if idx := strings.IndexByte(fields[len(fields)-1], '*'); idx >= 0 {
		fields[len(fields)-1] = fields[len(fields)-1][:idx]
	}

	cmd := &Command{
		Name: strings.ToUpper(fields[0]),
		Args: map[string]string{},
		Raw:  line,
	}
	for _, f := range fields[1:] {
		if f == "" {
			continue
		}
		k := strings.ToUpper(f[:1])
		cmd.Args[k] = strings.TrimSpace(f[1:])
	}
	return cmd
}

// Has reports whether parameter key is present.
func (c *Command) Has(key string) bool {
	_, ok := c.Args[key]
	return ok
}

// Float returns parameter key as a number. ok is false when the parameter
// is missing or does not parse.
func (c *Command) Float(key string) (v float64, ok bool) {
	s, present := c.Args[key]
	if !present || s == "" {
		return 0, false
	}
	v, err := ParseFloat(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Is reports whether the command name equals name (case-insensitive).
func (c *Command) Is(name string) bool {
	return c != nil && strings.EqualFold(c.Name, name)
}
