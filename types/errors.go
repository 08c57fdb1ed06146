package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")

	// ErrQuotaExceeded is a normal outcome, not a system failure: the caller
	// is expected to turn it into a subscribe hint.
	ErrQuotaExceeded = errors.New("interpretation quota exceeded")

	// ErrInterpreterUnavailable covers every transport or 5xx failure of the
	// interpretation engine. Callers must not need to distinguish further.
	ErrInterpreterUnavailable = errors.New("interpretation service unavailable")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects malformed input before any persistence.
type ValidationError struct {
	Fields []FieldError `json:"detail"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// InterpretationRejectedError is the engine's structured 422 mapped to a short
// user-facing message. Unlike ErrInterpreterUnavailable the request itself was
// understood and refused.
type InterpretationRejectedError struct {
	Message string
}

func (e *InterpretationRejectedError) Error() string {
	return "interpretation rejected: " + e.Message
}
