package api

import (
	"errors"
	"net/http"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidLimit = errors.New("invalid limit")
)

// Error tags an error with the handler operation that produced it and,
// optionally, the kind it should be reported as.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Kind != nil:
		return e.Kind.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap tags err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrRoundClosed):
		return http.StatusConflict, "round_closed"
	case errors.Is(err, model.ErrRubricLocked):
		return http.StatusConflict, "rubric_locked"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, scoring.ErrInvalidRubric):
		return http.StatusUnprocessableEntity, "invalid_rubric"
	case errors.Is(err, scoring.ErrOutOfRange):
		return http.StatusUnprocessableEntity, "out_of_range"
	case errors.Is(err, scoring.ErrUnknownField):
		return http.StatusUnprocessableEntity, "unknown_field"
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "invalid_input"
	case errors.Is(err, scoring.ErrConfig):
		return http.StatusUnprocessableEntity, "config_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
