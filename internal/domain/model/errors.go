package model

import "errors"

// ErrInvalidMatch is returned when a match does not name four distinct players.
var ErrInvalidMatch = errors.New("invalid match")
