package shm

import "errors"

var (
	// ErrLayoutMismatch is returned when a mapping does not carry the expected control block.
	ErrLayoutMismatch = errors.New("shared region layout mismatch")
	// ErrCapacityMismatch is returned when the region's ring capacity differs from the configured one.
	ErrCapacityMismatch = errors.New("ring capacity mismatch")
	// ErrInvalidCapacity is returned for a zero or oversized ring capacity.
	ErrInvalidCapacity = errors.New("invalid ring capacity")
	// ErrMisaligned is returned when the region does not start on an 8 byte boundary.
	ErrMisaligned = errors.New("shared region is not 8-byte aligned")
	// ErrNotInitialized is returned when producing into a region Initialize has not published.
	ErrNotInitialized = errors.New("shared region not initialized")
	// ErrAborted wraps the cause when the producer had to abort a transfer.
	ErrAborted = errors.New("transfer aborted")
)
