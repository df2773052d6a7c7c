// Unified error handling for the print panel
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigLoad       ErrorCode = "CONFIG_LOAD"

	// Command injection errors
	ErrTransportUnavailable ErrorCode = "TRANSPORT_UNAVAILABLE"
	ErrSequenceInterrupted  ErrorCode = "SEQUENCE_INTERRUPTED"
	ErrEmptyCommand         ErrorCode = "EMPTY_COMMAND"
	ErrUnsupportedFirmware  ErrorCode = "UNSUPPORTED_FIRMWARE"
	ErrControlDisabled      ErrorCode = "CONTROL_DISABLED"

	// Operator input errors
	ErrInvalidNumericInput ErrorCode = "INVALID_NUMERIC_INPUT"
	ErrBadRequest          ErrorCode = "BAD_REQUEST"
	ErrInvalidAxis         ErrorCode = "INVALID_AXIS"

	// Transport errors
	ErrSerialOpen ErrorCode = "SERIAL_OPEN"
	ErrSerialIO   ErrorCode = "SERIAL_IO"
)

// HostError is the unified error type for the panel
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Field is the operator input field or config option (if applicable)
	Field string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *HostError) Error() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(string(e.Code))
	if e.Field != "" {
		sb.WriteString(":")
		sb.WriteString(e.Field)
	}
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a HostError with the same code, so that
// stdlib errors.Is works against sentinel values built with New.
func (e *HostError) Is(target error) bool {
	t, ok := target.(*HostError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// SetField sets the input field or option name
func (e *HostError) SetField(field string) *HostError {
	e.Field = field
	return e
}

// SetContext adds additional context
func (e *HostError) SetContext(key string, value interface{}) *HostError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
	}
}

// Injection errors

// TransportUnavailable reports that op could not run because the printer
// connection is down.
func TransportUnavailable(op string) *HostError {
	return New(ErrTransportUnavailable, fmt.Sprintf("%s: printer not connected", op)).
		SetContext("operation", op)
}

// SequenceInterrupted reports a write failure partway through a multi-line
// sequence. written is the number of lines that reached the transport.
func SequenceInterrupted(seqID, line string, written int, err error) *HostError {
	return Wrap(err, ErrSequenceInterrupted, fmt.Sprintf("sequence %s interrupted at %q", seqID, line)).
		SetContext("sequence", seqID).
		SetContext("written", written)
}

// EmptyCommand rejects a manual command that is too short to send.
func EmptyCommand(text string) *HostError {
	return New(ErrEmptyCommand, fmt.Sprintf("command %q too short", text))
}

// UnsupportedFirmware rejects a command the connected firmware does not implement.
func UnsupportedFirmware(command, firmware string) *HostError {
	return New(ErrUnsupportedFirmware, fmt.Sprintf("%s not supported by %s firmware", command, firmware))
}

// ControlDisabled rejects a control that has been turned off in configuration.
func ControlDisabled(control string) *HostError {
	return New(ErrControlDisabled, fmt.Sprintf("%s control disabled", control))
}

// InvalidAxis rejects a jog or home request for an axis the printer does not have.
func InvalidAxis(axis string) *HostError {
	return New(ErrInvalidAxis, fmt.Sprintf("unknown axis %s", axis)).SetField("axis")
}

// InvalidNumericInput reports an operator field whose text does not parse.
func InvalidNumericInput(field, value, reason string) *HostError {
	return New(ErrInvalidNumericInput, reason).
		SetField(field).
		SetContext("value", value)
}

// Config errors

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(option string, reason string) *HostError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s': %s", option, reason)).
		SetField(option)
}

// ConfigLoadError wraps a failure to read the configuration file
func ConfigLoadError(path string, err error) *HostError {
	return Wrap(err, ErrConfigLoad, fmt.Sprintf("failed to load %s", path)).
		SetContext("config_path", path)
}

// FieldErrors collects per-field validation failures. A nil or empty
// FieldErrors means every field parsed.
type FieldErrors map[string]*HostError

// Add records err for its field; nil errors are ignored.
func (fe FieldErrors) Add(err *HostError) {
	if err == nil {
		return
	}
	fe[err.Field] = err
}

// Err returns fe as an error, or nil when empty.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Messages returns field -> message, for rendering next to inputs.
func (fe FieldErrors) Messages() map[string]string {
	out := make(map[string]string, len(fe))
	for k, v := range fe {
		out[k] = v.Message
	}
	return out
}

// Error implements the error interface
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k].Message))
	}
	return fmt.Sprintf("[%s] %s", ErrInvalidNumericInput, strings.Join(parts, "; "))
}

// Is matches ErrInvalidNumericInput so callers can treat a FieldErrors
// like any single validation failure.
func (fe FieldErrors) Is(target error) bool {
	t, ok := target.(*HostError)
	return ok && t.Code == ErrInvalidNumericInput
}

// Is checks if error matches given error code, looking through wrapped errors
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var fe FieldErrors
	if stderrors.As(err, &fe) {
		return code == ErrInvalidNumericInput
	}
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first HostError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var fe FieldErrors
	if stderrors.As(err, &fe) {
		return ErrInvalidNumericInput
	}
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code
	}
	return ""
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigLoad)
}
