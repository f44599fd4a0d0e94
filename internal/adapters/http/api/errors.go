package api

import (
	"errors"
	"net/http"

	service "github.com/okian/pmr/internal/app"
	"github.com/okian/pmr/internal/domain/model"
	"github.com/okian/pmr/internal/domain/rating"
	"github.com/okian/pmr/internal/domain/rules"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
)

// opError records the operation that failed, the kind of failure and the
// underlying cause. Either kind or err may be nil.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	msg := e.op
	if e.kind != nil {
		msg += ": " + e.kind.Error()
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *opError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// NewKind returns an error of the given kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// WrapKind classifies err as kind and attributes it to op.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// Wrap attributes err to op without classifying it.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// classify maps errors from the layers below to an API kind.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidMatch),
		errors.Is(err, rules.ErrInvalidScore),
		errors.Is(err, rating.ErrInvalidParams),
		errors.Is(err, rating.ErrUndecidedMatch):
		return WrapKind(op, ErrBadRequest, err)
	case errors.Is(err, service.ErrBackpressure):
		return WrapKind(op, ErrBackpressure, err)
	case errors.Is(err, service.ErrNotFound):
		return WrapKind(op, ErrNotFound, err)
	case errors.Is(err, service.ErrNotStarted):
		return WrapKind(op, ErrUnavailable, err)
	default:
		return Wrap(op, err)
	}
}

// statusFor returns the HTTP status and error code for err.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
