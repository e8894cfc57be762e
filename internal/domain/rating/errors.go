package rating

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for rating errors.
var (
	// ErrInvalidRating indicates a rating with a missing or out-of-range dimension.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrUnknownDimension indicates a dimension name that matches no criterion.
	ErrUnknownDimension = errors.New("unknown dimension")
)

// Problem kinds reported in a FieldError.
const (
	ProblemMissing    = "missing"
	ProblemOutOfRange = "out of range"
	ProblemUnknown    = "unknown dimension"
	ProblemDuplicate  = "duplicate dimension"
)

// FieldError describes one rejected dimension of a candidate rating.
type FieldError struct {
	// Field is the dimension name, or the raw key when it matched no dimension.
	Field string `json:"field"`

	// Value is the rejected score (0 when missing).
	Value int `json:"value"`

	// Problem is one of the Problem* constants.
	Problem string `json:"problem"`
}

// ValidationError collects every problem found in a candidate rating.
// It unwraps to ErrInvalidRating.
type ValidationError struct {
	Problems []FieldError
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Problem == ProblemOutOfRange {
			parts = append(parts, fmt.Sprintf("%s=%d %s", p.Field, p.Value, p.Problem))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", p.Field, p.Problem))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRating, strings.Join(parts, ", "))
}

// Unwrap returns ErrInvalidRating so callers can match with errors.Is.
func (e *ValidationError) Unwrap() error { return ErrInvalidRating }

func (e *ValidationError) add(field string, value int, problem string) {
	e.Problems = append(e.Problems, FieldError{Field: field, Value: value, Problem: problem})
}

func (e *ValidationError) hasProblems() bool { return len(e.Problems) > 0 }
