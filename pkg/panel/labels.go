package panel

import (
	"fmt"
	"strconv"

	"printpanel-go/pkg/jog"
	"printpanel-go/pkg/machine"
)

// AxisLabel is the rendered position of one axis.
type AxisLabel struct {
	Axis  string `json:"axis"`
	Text  string `json:"text"`
	Homed bool   `json:"homed"`
}

// PositionLabels renders "X=12.34" style labels for every axis.
func PositionLabels(snap machine.Snapshot) []AxisLabel {
	out := make([]AxisLabel, 0, len(machine.Axes))
	for _, a := range machine.Axes {
		st := snap.Axis(a)
		out = append(out, AxisLabel{
			Axis:  a.String(),
			Text:  a.String() + "=" + strconv.FormatFloat(st.Position, 'f', 2, 64),
			Homed: st.Homed,
		})
	}
	return out
}

// FanOutputLabel renders a PWM value as a percentage, e.g. "Output 50.2%".
func FanOutputLabel(value int) string {
	return fmt.Sprintf("Output %.1f%%", 100*float64(value)/255)
}

// PresetLabels renders jog preset buttons.
func PresetLabels(presets []float64) []string {
	out := make([]string, len(presets))
	for i, d := range presets {
		out[i] = jog.DistanceLabel(d)
	}
	return out
}
