package contracts

import "errors"

var (
	// ErrDataUnavailable: provider transport, rate-limit or missing-instrument failure
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidThreshold: screening configuration rejected before any fetch
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrCacheCorruption: a persisted cache entry could not be decoded
	ErrCacheCorruption = errors.New("cache corruption")

	// ErrNoBatch: no persisted batch for the requested tag
	ErrNoBatch = errors.New("no screening batch found")
)
