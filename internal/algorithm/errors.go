package algorithm

import "errors"

// Sentinel errors for the algorithm package.
// Use errors.Is to check: errors.Is(err, algorithm.ErrInvalidOutcome)
var (
	ErrInvalidOutcome   = errors.New("algorithm: invalid outcome")
	ErrInvalidSettings  = errors.New("algorithm: invalid settings")
	ErrUnknownAlgorithm = errors.New("algorithm: unknown algorithm")
	ErrCorruptState     = errors.New("algorithm: corrupt item state")
)
