// Package jog turns operator jog requests into bounded relative moves.
package jog

import (
	"context"
	"fmt"
	"strings"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/gate"
	"printpanel-go/pkg/gcode"
	"printpanel-go/pkg/log"
	"printpanel-go/pkg/machine"
)

// Request is one jog action.
type Request struct {
	Axis     machine.Axis
	Distance float64
}

// Result describes what a jog did.
type Result struct {
	Axis      machine.Axis `json:"axis"`
	Requested float64      `json:"requested"`
	Distance  float64      `json:"distance"`
	Clamped   bool         `json:"clamped"`
	Skipped   bool         `json:"skipped"`
	Reason    string       `json:"reason,omitempty"`
	Lines     []string     `json:"lines,omitempty"`
}

// Observer is told about every planned jog.
type Observer interface {
	Jogged(r Result)
}

// Clamp bounds distance so that position+distance stays within [0, limit].
// Unhomed axes are not clamped.
func Clamp(position, distance, limit float64, homed bool) float64 {
	if !homed {
		return distance
	}
	if position+distance > limit {
		distance = limit - position
	}
	if position+distance < 0 {
		distance = -position
	}
	return distance
}

// Plan computes the clamped move and the lines that perform it. A move
// that rounds to zero has no lines.
func Plan(snap machine.Snapshot, req Request) Result {
	st := snap.Axis(req.Axis)
	d := Clamp(st.Position, req.Distance, snap.Profile.Limit(req.Axis), st.Homed)
	d = gcode.Round(d)

	r := Result{
		Axis:      req.Axis,
		Requested: req.Distance,
		Distance:  d,
		Clamped:   d != gcode.Round(req.Distance),
	}
	if d == 0 {
		r.Skipped = true
		r.Reason = "zero distance"
		return r
	}
	r.Lines = []string{
		gcode.CmdRelative,
		gcode.Move(req.Axis, d, snap.Profile.FeedRate(req.Axis)),
		gcode.CmdAbsolute,
	}
	return r
}

// Planner emits jogs through the injection gate.
type Planner struct {
	conn     machine.Connection
	gate     *gate.Gate
	logger   *log.Logger
	observer Observer
}

// NewPlanner creates a planner writing to conn under g.
func NewPlanner(conn machine.Connection, g *gate.Gate, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.GetLogger("jog")
	}
	return &Planner{conn: conn, gate: g, logger: logger}
}

// SetObserver installs o.
func (p *Planner) SetObserver(o Observer) {
	p.observer = o
}

// Jog moves req.Axis by req.Distance. Zero moves and jogs while
// disconnected are skipped without error. The position is read after the
// gate is held so that back-to-back jogs see each other's moves.
func (p *Planner) Jog(ctx context.Context, req Request) (Result, error) {
	if !req.Axis.Valid() {
		return Result{Axis: req.Axis, Skipped: true, Reason: "invalid axis"}, errors.InvalidAxis(req.Axis.String())
	}
	if req.Distance == 0 {
		return Result{Axis: req.Axis, Skipped: true, Reason: "zero distance"}, nil
	}
	if !p.conn.Snapshot().Connected {
		r := Result{Axis: req.Axis, Requested: req.Distance, Skipped: true, Reason: "not connected"}
		p.logger.WithField("axis", req.Axis.String()).Debug("jog dropped, not connected")
		return r, nil
	}

	var res Result
	err := p.gate.Do(ctx, "jog", p.conn, func(seq *gate.Sequence) error {
		res = Plan(p.conn.Snapshot(), req)
		if res.Skipped {
			return nil
		}
		return seq.SendAll(res.Lines...)
	})
	if err != nil {
		return res, err
	}

	entry := p.logger.WithFields(log.Fields{
		"axis":      req.Axis.String(),
		"requested": req.Distance,
		"distance":  res.Distance,
	})
	if res.Clamped {
		entry.Info("jog clamped to travel limit")
	} else {
		entry.Debug("jog")
	}
	if p.observer != nil {
		p.observer.Jogged(res)
	}
	return res, nil
}

// DistanceLabel renders a preset distance for display; zero renders empty.
func DistanceLabel(d float64) string {
	if gcode.Round(d) == 0 {
		return ""
	}
	return gcode.Format(d) + " mm"
}

// ParsePresets parses a ';'-separated list of jog distances such as
// "0.1;1;10;50;100".
func ParsePresets(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := gcode.ParseFloat(part)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid jog distance %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
