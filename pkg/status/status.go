// Package status reduces the printer signals to the one status shown to
// the operator.
package status

import (
	"fmt"

	"printpanel-go/pkg/machine"
)

// Status is the printer status shown to the operator.
type Status int

const (
	Disconnected Status = iota
	Idle
	HeatingExtruder
	HeatingBed
	MotorStopped
	JobPaused
	JobKilled
	JobFinished
)

var statusNames = map[Status]string{
	Disconnected:    "disconnected",
	Idle:            "idle",
	HeatingExtruder: "heating_extruder",
	HeatingBed:      "heating_bed",
	MotorStopped:    "motor_stopped",
	JobPaused:       "job_paused",
	JobKilled:       "job_killed",
	JobFinished:     "job_finished",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transient reports whether s is entered only by an explicit event and
// decays back to Idle.
func (s Status) Transient() bool {
	return s == MotorStopped || s == JobKilled || s == JobFinished
}

// All lists every status in declaration order.
func All() []Status {
	return []Status{Disconnected, Idle, HeatingExtruder, HeatingBed, MotorStopped, JobPaused, JobKilled, JobFinished}
}

// Caption renders the label for s. Only Idle depends on the signals.
func Caption(s Status, sig machine.Signals) string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case HeatingExtruder:
		return "Heating extruder"
	case HeatingBed:
		return "Heating bed"
	case MotorStopped:
		return "Motors stopped"
	case JobPaused:
		return "Print job paused"
	case JobKilled:
		return "Print job killed"
	case JobFinished:
		return "Print job finished"
	}
	if sig.JobMode == machine.JobPrinting {
		if sig.Uploading {
			return "Uploading…"
		}
		return "Printing job ETA " + sig.ETA
	}
	return "Idle"
}

// Entry is the current status and when it was entered, in epoch seconds.
type Entry struct {
	Status    Status `json:"status"`
	EnteredAt int64  `json:"entered_at"`
}

// Dwell returns the seconds spent in the entry at time now.
func (e Entry) Dwell(now int64) int64 {
	return now - e.EnteredAt
}
