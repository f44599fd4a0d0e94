package rating

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidParams  = errors.New("invalid rating params")
	ErrUndecidedMatch = errors.New("match has no winner")
)
