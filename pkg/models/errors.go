package models

import "fmt"

// ErrUnknownTicker is returned when a requested ticker has no rows in the input.
type ErrUnknownTicker struct {
	Ticker string
}

func (e *ErrUnknownTicker) Error() string {
	return fmt.Sprintf("unknown ticker %q: no matching rows", e.Ticker)
}

// ErrEmptyInput is returned when an operation receives no usable input at all.
type ErrEmptyInput struct {
	What string
}

func (e *ErrEmptyInput) Error() string {
	return fmt.Sprintf("empty input: %s", e.What)
}

// ErrInvalidParameter is returned when a numeric model parameter is out of domain.
type ErrInvalidParameter struct {
	Param  string
	Value  float64
	Reason string
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Param, e.Value, e.Reason)
}

// ErrInvalidRequest is returned when a request field fails validation.
type ErrInvalidRequest struct {
	Field  string
	Reason string
}

func (e *ErrInvalidRequest) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrBadPeriod is returned when a statement period date cannot be parsed.
type ErrBadPeriod struct {
	Ticker string
	Raw    string
}

func (e *ErrBadPeriod) Error() string {
	return fmt.Sprintf("unparseable period %q for ticker %q", e.Raw, e.Ticker)
}
