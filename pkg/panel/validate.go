package panel

import (
	"math"
	"strconv"
	"strings"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/gcode"
)

// Messages shown next to a rejected numeric field.
const (
	MsgNotNumber   = "Not a number."
	MsgNotPositive = "Positive number required."
	MsgNotInteger  = "Not an integer."
)

// ParseFloat parses an operator-entered decimal.
func ParseFloat(field, text string) (float64, *errors.HostError) {
	v, err := gcode.ParseFloat(strings.TrimSpace(text))
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.InvalidNumericInput(field, text, MsgNotNumber)
	}
	return v, nil
}

// ParsePositiveFloat parses a decimal that must be greater than zero.
func ParsePositiveFloat(field, text string) (float64, *errors.HostError) {
	v, herr := ParseFloat(field, text)
	if herr != nil {
		return 0, herr
	}
	if v <= 0 {
		return 0, errors.InvalidNumericInput(field, text, MsgNotPositive)
	}
	return v, nil
}

// ParseInt parses an operator-entered integer.
func ParseInt(field, text string) (int, *errors.HostError) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, errors.InvalidNumericInput(field, text, MsgNotInteger)
	}
	return v, nil
}
