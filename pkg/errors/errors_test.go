// Error taxonomy tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostErrorFormatting(t *testing.T) {
	err := InvalidNumericInput("extrude_speed", "fast", "Not a number.")
	assert.Equal(t, "[INVALID_NUMERIC_INPUT:extrude_speed] Not a number.", err.Error())

	wrapped := SequenceInterrupted("abc", "G1 X5 F4800", 1, io.ErrClosedPipe)
	assert.Contains(t, wrapped.Error(), "SEQUENCE_INTERRUPTED")
	assert.Contains(t, wrapped.Error(), io.ErrClosedPipe.Error())
	assert.Equal(t, 1, wrapped.Context["written"])
}

func TestIsThroughWrapping(t *testing.T) {
	base := TransportUnavailable("jog")
	wrapped := fmt.Errorf("panel: %w", base)

	assert.True(t, Is(wrapped, ErrTransportUnavailable))
	assert.False(t, Is(wrapped, ErrSequenceInterrupted))
	assert.False(t, Is(nil, ErrTransportUnavailable))
	assert.True(t, stderrors.Is(wrapped, New(ErrTransportUnavailable, "")))
	assert.Equal(t, ErrTransportUnavailable, CodeOf(wrapped))
}

func TestUnwrap(t *testing.T) {
	err := SequenceInterrupted("id", "G90", 2, io.EOF)
	assert.True(t, stderrors.Is(err, io.EOF))
}

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	assert.NoError(t, fe.Err())

	fe.Add(nil)
	fe.Add(InvalidNumericInput("amount", "x", "Not a number."))
	fe.Add(InvalidNumericInput("speed", "-1", "Positive number required."))

	err := fe.Err()
	assert.Error(t, err)
	assert.True(t, Is(err, ErrInvalidNumericInput))
	assert.True(t, stderrors.Is(err, New(ErrInvalidNumericInput, "")))
	assert.Equal(t, map[string]string{
		"amount": "Not a number.",
		"speed":  "Positive number required.",
	}, fe.Messages())
	assert.Equal(t, "[INVALID_NUMERIC_INPUT] amount: Not a number.; speed: Positive number required.", err.Error())
}

func TestInvalidAxis(t *testing.T) {
	err := InvalidAxis("Axis(7)")
	assert.Equal(t, ErrInvalidAxis, CodeOf(err))
	assert.Equal(t, "axis", err.Field)
}

func TestIsConfig(t *testing.T) {
	assert.True(t, IsConfig(ConfigValidationError("printer.travel_feed_rate", "must be positive")))
	assert.True(t, IsConfig(ConfigLoadError("panel.yaml", io.EOF)))
	assert.False(t, IsConfig(EmptyCommand("G")))
}
