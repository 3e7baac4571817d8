package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"scan2cal/calendar-app/internal/extraction"
	"scan2cal/calendar-app/internal/repository"
)

// --- Error Definitions ---
var (
	// ErrUnauthorized is returned when no authenticated principal is present.
	// It is checked before any persistence is touched.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound covers both "absent" and "owned by someone else".
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by a save whose expected version is stale.
	ErrConflict = errors.New("calendar was modified concurrently")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// orNil lets callers collect problems and return a nil error when there were none.
func (v *ValidationError) orNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// InfrastructureError marks a failure of storage, database or another
// dependency. It is surfaced as-is and never retried by the services.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

func infraErr(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// fromRepo translates repository sentinels into service errors and wraps
// anything else as an infrastructure failure.
func fromRepo(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	default:
		return infraErr(op, err)
	}
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case extraction.IsInvalidModelOutput(err):
		return "invalid_model_output"
	case errors.Is(err, extraction.ErrModelUnavailable):
		return "model_unavailable"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var iErr *InfrastructureError
	if errors.As(err, &iErr) {
		return "infrastructure"
	}
	return "unexpected"
}
