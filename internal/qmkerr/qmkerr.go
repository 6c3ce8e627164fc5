// Package qmkerr defines the structured error codes surfaced across the
// microkernel, matching the wire shape `{code, message, data}` of §6/§7.
package qmkerr

import "fmt"

// Code identifies a class of failure. Codes are stable across releases
// and are the only thing callers should switch on.
type Code string

const (
	ParseError                  Code = "ParseError"
	IncludeCycle                Code = "IncludeCycle"
	IncludeMissing              Code = "IncludeMissing"
	FormulaError                Code = "FormulaError"
	ProfileUnknownFamily        Code = "ProfileUnknownFamily"
	CapabilityDenied            Code = "CapabilityDenied"
	QuotaExceeded               Code = "QuotaExceeded"
	IdTaken                     Code = "IdTaken"
	IdNotLive                   Code = "IdNotLive"
	GraphCyclic                 Code = "GraphCyclic"
	DuplicateNodeId             Code = "DuplicateNodeId"
	UnknownOpcode               Code = "UnknownOpcode"
	EventNotProduced            Code = "EventNotProduced"
	EventDoubleAssigned         Code = "EventDoubleAssigned"
	GuardMalformed              Code = "GuardMalformed"
	MeasurementArity            Code = "MeasurementArity"
	UncomputationInvalidSegment Code = "UncomputationInvalidSegment"
	CheckpointNotFound          Code = "CheckpointNotFound"
	MigrationCannotProceed      Code = "MigrationCannotProceed"
)

// Error is the structured error type every component returns. It
// implements error, Is, and carries an optional data payload for the
// wire form.
type Error struct {
	Code    Code
	Message string
	Data    map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is matches on Code only, so callers can write
// `errors.Is(err, qmkerr.New(qmkerr.IdTaken, ""))`.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New constructs an Error with no extra data.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Withf attaches a data payload to a new Error.
func Withf(code Code, data map[string]any, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Data: data}
}

// Wrap attaches a code to an existing error, preserving it for errors.Is/As.
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Wrapped: err}
}

// Sentinel returns a zero-message Error usable as an errors.Is target.
func Sentinel(code Code) *Error { return &Error{Code: code} }
