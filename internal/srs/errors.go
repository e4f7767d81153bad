package srs

import (
	"errors"

	"github.com/thebtf/recall/internal/algorithm"
	"github.com/thebtf/recall/internal/db"
)

var (
	// ErrNotFound is returned when a path or item index does not refer to a live entry.
	ErrNotFound = errors.New("srs: not found")
	// ErrAlreadyTracked is returned when tracking a path that is already tracked.
	ErrAlreadyTracked = errors.New("srs: already tracked")
	// ErrDegraded is returned by saves after Load found stored data it could
	// not decode. Reset clears it.
	ErrDegraded = errors.New("srs: stored data unreadable, saving disabled until reset")
	// ErrPersistence wraps storage adapter failures.
	ErrPersistence = db.ErrPersistence
	// ErrInvalidOutcome is returned when an outcome label is not offered by the active algorithm.
	ErrInvalidOutcome = algorithm.ErrInvalidOutcome
)
