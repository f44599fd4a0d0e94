package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("player not found")
	ErrInvalidLimit    = errors.New("invalid limit")
	ErrDuplicatePlayer = errors.New("player listed twice in one transaction")
)
