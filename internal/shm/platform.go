// Package shm contains platform-specific helpers for mapping the named shared
// memory region used by a transfer.
package shm

import (
	"errors"
	"strings"
)

const namePrefix = "shmbench_"

var (
	// ErrNoSpace is returned when the shared memory filesystem cannot hold a new region.
	ErrNoSpace = errors.New("share memory had not left space")
	// ErrInvalidName is returned for empty region names or names containing a path separator.
	ErrInvalidName = errors.New("invalid region name")
	// ErrSizeMismatch is returned when an existing region does not have the expected size.
	ErrSizeMismatch = errors.New("region size mismatch")
)

// MappedRegion represents a memory-mapped shared region.
type MappedRegion struct {
	Addr []byte
	Name string
	Path string
	// Owner is set for the side that created the region and is responsible
	// for removing it.
	Owner bool

	key   string
	unmap func() error
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	Name string
	// Size is mandatory when creating. When attaching, zero means "use the
	// size of the existing object" and any other value must match it.
	Size   int
	Create bool
}

// NormalizeName strips the POSIX style leading slash and validates the rest.
func NormalizeName(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return name, nil
}

// Function implementations are provided in platform-specific files
// (platform_linux.go, platform_other.go).
