// Package machine defines the read-only view of the printer that the
// panel core consumes, and the connection contract behind it.
package machine

import (
	"fmt"
	"strings"
	"time"
)

// Axis identifies one of the three linear axes.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// Axes lists X, Y, Z in order.
var Axes = [3]Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Valid reports whether a is one of X, Y, Z.
func (a Axis) Valid() bool {
	return a >= X && a <= Z
}

// ParseAxis accepts "x", "Y", ...
func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return X, nil
	case "Y":
		return Y, nil
	case "Z":
		return Z, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// JobMode is the state of the print job runner.
type JobMode int

const (
	JobNone JobMode = iota
	JobPrinting
)

func (m JobMode) String() string {
	if m == JobPrinting {
		return "printing"
	}
	return "none"
}

func (m JobMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Firmware is the firmware flavour reported by the printer.
type Firmware int

const (
	FirmwareOther Firmware = iota
	FirmwareMarlin
	FirmwareRepetier
)

func (f Firmware) String() string {
	switch f {
	case FirmwareMarlin:
		return "marlin"
	case FirmwareRepetier:
		return "repetier"
	}
	return "other"
}

func (f Firmware) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// ParseFirmware maps a config string to a Firmware; unknown names are FirmwareOther.
func ParseFirmware(s string) Firmware {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "marlin":
		return FirmwareMarlin
	case "repetier":
		return FirmwareRepetier
	}
	return FirmwareOther
}

// SupportsSpeedFactor reports whether M220 is understood.
func (f Firmware) SupportsSpeedFactor() bool {
	return f == FirmwareMarlin || f == FirmwareRepetier
}

// Signals is the subset of machine state that drives status arbitration.
type Signals struct {
	Connected        bool    `json:"connected"`
	Paused           bool    `json:"paused"`
	ExtruderMeasured float64 `json:"extruder_measured"`
	ExtruderTarget   float64 `json:"extruder_target"`
	HasHeatedBed     bool    `json:"has_heated_bed"`
	BedMeasured      float64 `json:"bed_measured"`
	BedTarget        float64 `json:"bed_target"`
	JobMode          JobMode `json:"job_mode"`
	Uploading        bool    `json:"uploading"`
	ETA              string  `json:"eta"`
}

// AxisState is the tracked position of one axis.
type AxisState struct {
	Position float64 `json:"position"`
	Homed    bool    `json:"homed"`
}

// Profile holds the per-printer motion settings.
type Profile struct {
	TravelFeedRate float64    `json:"travel_feed_rate"`
	MaxZFeedRate   float64    `json:"max_z_feed_rate"`
	Limits         [3]float64 `json:"limits"`
	HasHeatedBed   bool       `json:"has_heated_bed"`
}

// Limit returns the travel limit of axis a. Travel runs from 0 to the limit.
func (p Profile) Limit(a Axis) float64 {
	return p.Limits[a]
}

// FeedRate returns the feed rate used to jog axis a.
func (p Profile) FeedRate(a Axis) float64 {
	if a == Z {
		return p.MaxZFeedRate
	}
	return p.TravelFeedRate
}

// Snapshot is a consistent copy of everything the panel reads from the
// connection in one go.
type Snapshot struct {
	Signals
	Axes        [3]AxisState `json:"axes"`
	Relative    bool         `json:"relative"`
	FanOn       bool         `json:"fan_on"`
	FanValue    int          `json:"fan_value"`
	PowerOn     bool         `json:"power_on"`
	SpeedFactor int          `json:"speed_factor"`
	Firmware    Firmware     `json:"firmware"`
	Profile     Profile      `json:"profile"`
}

// Axis returns the state of axis a.
func (s Snapshot) Axis(a Axis) AxisState {
	return s.Axes[a]
}

// EventKind enumerates the notifications pushed by a Connection.
type EventKind int

const (
	EventConnectionChanged EventKind = iota
	EventJobPausedChanged
	EventJobKilled
	EventJobFinished
	EventMotorStopped
)

func (k EventKind) String() string {
	switch k {
	case EventConnectionChanged:
		return "connection_changed"
	case EventJobPausedChanged:
		return "job_paused_changed"
	case EventJobKilled:
		return "job_killed"
	case EventJobFinished:
		return "job_finished"
	case EventMotorStopped:
		return "motor_stopped"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a single notification from the connection.
type Event struct {
	Kind EventKind
	At   time.Time
}

// Connection is the printer link owned outside the panel core. The core
// only reads snapshots, sends lines and listens to events.
type Connection interface {
	Snapshot() Snapshot
	SendLine(line string) error
	Subscribe() (<-chan Event, func())
}
