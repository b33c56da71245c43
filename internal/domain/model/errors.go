package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds for selection-board state errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrRoundClosed  = errors.New("round is closed")
	// ErrRubricLocked is returned when replacing the rubric of a round that already holds scores.
	ErrRubricLocked = errors.New("rubric is locked")
)

// RoundClosedError names the round and the rejected operation.
type RoundClosedError struct {
	RoundID string
	Op      string
}

func (e *RoundClosedError) Error() string {
	return fmt.Sprintf("round %s is closed: %s rejected", e.RoundID, e.Op)
}

// Unwrap lets errors.Is match ErrRoundClosed.
func (e *RoundClosedError) Unwrap() error { return ErrRoundClosed }

// NotFoundf wraps ErrNotFound with a description of what was missing.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
