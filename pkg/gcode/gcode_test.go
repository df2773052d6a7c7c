package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printpanel-go/pkg/machine"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{5, "5"},
		{-5, "-5"},
		{0.1, "0.1"},
		{150, "150"},
		{4800, "4800"},
		{100 - 95.3, "4.7"},
		{1.23456, "1.235"},
		{-0.0001, "0"},
		{0, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%v)", tt.in)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, v := range []float64{0.1, 12.5, -3.75, 199.999, 4.700000000000003} {
		back, err := ParseFloat(Format(v))
		require.NoError(t, err)
		assert.Equal(t, Round(v), back)
		assert.Equal(t, Format(v), Format(back))
	}
}

func TestBuilders(t *testing.T) {
	assert.Equal(t, "G1 X5 F4800", Move(machine.X, 5, 4800))
	assert.Equal(t, "G1 Z-0.1 F100", Move(machine.Z, -0.1, 100))
	assert.Equal(t, "G1 E-2.5 F300", Extrude(-2.5, 300))
	assert.Equal(t, "G28 X0", Home(machine.X))
	assert.Equal(t, "G28 X0 Y0 Z0", Home())
	assert.Equal(t, "M104 S210", ExtruderTemp(210))
	assert.Equal(t, "M140 S0", BedTemp(0))
	assert.Equal(t, "M106 S255", FanOn(300))
	assert.Equal(t, "M220 S120", SpeedFactor(120))
	assert.Equal(t, "M111 S6", DebugLevel(DebugMask(false, true, true, false)))
	assert.Equal(t, 15, DebugMask(true, true, true, true))
}

func TestParse(t *testing.T) {
	cmd := Parse("g1 x10.5 Y-2 F4800 ; travel")
	require.NotNil(t, cmd)
	assert.Equal(t, "G1", cmd.Name)
	x, ok := cmd.Float("X")
	assert.True(t, ok)
	assert.Equal(t, 10.5, x)
	_, ok = cmd.Float("Z")
	assert.False(t, ok)
	assert.True(t, cmd.Is("G1"))

	home := Parse("G28 X0 Y")
	require.NotNil(t, home)
	assert.True(t, home.Has("X"))
	assert.True(t, home.Has("Y"))
	assert.False(t, home.Has("Z"))

	framed := Parse("N12 M104 S200*91")
	require.NotNil(t, framed)
	assert.Equal(t, "M104", framed.Name)
	s, ok := framed.Float("S")
	assert.True(t, ok)
	assert.Equal(t, 200.0, s)

	assert.Nil(t, Parse("   "))
	assert.Nil(t, Parse("; only a comment"))
	assert.Nil(t, Parse("(paren comment)"))
}
