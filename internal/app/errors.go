package service

import (
	"errors"

	"github.com/okian/pmr/internal/adapters/repository"
)

// Sentinel errors returned by the service.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("match queue is full")
	ErrNotFound     = repository.ErrNotFound
)
