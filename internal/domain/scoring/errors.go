package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrConfig        = errors.New("scoring config error")
	ErrInvalidRubric = errors.New("invalid rubric")
	ErrOutOfRange    = errors.New("value out of range")
	ErrUnknownField  = errors.New("unknown field")
	// ErrUngraded marks a candidate no evaluator has scored yet. It is a state, not a failure.
	ErrUngraded = errors.New("not yet evaluated")
)

// ConfigError reports an empty or malformed bracket or rubric table.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "scoring config error: " + e.Msg }

// Unwrap lets errors.Is match ErrConfig.
func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// Violation is one failed rubric check.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidRubricError lists every violated field of a rubric, not just the first.
type InvalidRubricError struct {
	Key        string
	Violations []Violation
}

func (e *InvalidRubricError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	if e.Key != "" {
		return fmt.Sprintf("invalid rubric %q: %s", e.Key, strings.Join(parts, "; "))
	}
	return "invalid rubric: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrInvalidRubric.
func (e *InvalidRubricError) Unwrap() error { return ErrInvalidRubric }

// OutOfRangeError reports a candidate or evaluator input outside its declared bounds.
type OutOfRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
	// MinExclusive is set when Min itself is not an accepted value.
	MinExclusive bool
}

func (e *OutOfRangeError) Error() string {
	lower := "["
	if e.MinExclusive {
		lower = "("
	}
	return fmt.Sprintf("%s: value %g outside %s%g, %g]", e.Field, e.Value, lower, e.Min, e.Max)
}

// Unwrap lets errors.Is match ErrOutOfRange.
func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }
