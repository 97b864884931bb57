// Package errs defines the error kinds surfaced by the lending rules engine.
package errs

import (
	"errors"
	"fmt"
)

// Machine-readable error codes returned to API callers.
const (
	CodeValidation    = "VALIDATION"
	CodeLimitExceeded = "LIMIT_EXCEEDED"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
)

// ValidationError reports missing or inconsistent input. It is always returned before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Code() string { return CodeValidation }

// Validation builds a ValidationError for field.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// LimitExceededError is returned when a patron has no borrowing slots left.
type LimitExceededError struct {
	Current        int `json:"current"`
	Max            int `json:"max"`
	Requested      int `json:"requested"`
	AvailableSlots int `json:"available_slots"`
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("borrowing limit exceeded: %d of %d in use, %d requested, %d available",
		e.Current, e.Max, e.Requested, e.AvailableSlots)
}

func (e *LimitExceededError) Code() string { return CodeLimitExceeded }

// NewLimitExceeded fills AvailableSlots from current and max.
func NewLimitExceeded(current, max, requested int) *LimitExceededError {
	slots := max - current
	if slots < 0 {
		slots = 0
	}
	return &LimitExceededError{Current: current, Max: max, Requested: requested, AvailableSlots: slots}
}

// NotFoundError reports a missing borrowing, copy, book or patron.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

func (e *NotFoundError) Code() string { return CodeNotFound }

func NotFound(resource string, key any) error {
	return &NotFoundError{Resource: resource, Key: fmt.Sprint(key)}
}

// ConflictError reports a state transition that is not allowed from the current state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Code() string { return CodeConflict }

func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// AsLimit extracts a LimitExceededError from err.
func AsLimit(err error) (*LimitExceededError, bool) {
	var target *LimitExceededError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Code returns the machine-readable code for err, or "" for unclassified errors.
func Code(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
