//go:build !linux

package shm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
)

// Path returns the backing path of the named region.
func Path(name string) string {
	return filepath.Join(os.TempDir(), namePrefix+name)
}

// MapRegion maps or creates a shared memory region backed by a file in the
// temporary directory (non-Linux implementation).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := NormalizeName(opts.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, opts.Name)
	}
	path := Path(name)

	var f *os.File
	if opts.Create {
		if opts.Size <= 0 {
			return nil, fmt.Errorf("create %s: invalid size %d", path, opts.Size)
		}
		if f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600); err != nil {
			return nil, err
		}
		if err = f.Truncate(int64(opts.Size)); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
	} else {
		if f, err = os.OpenFile(path, os.O_RDWR, 0); err != nil {
			return nil, err
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() == 0 || (opts.Size != 0 && int64(opts.Size) != info.Size()) {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s is %d bytes, expected %d", ErrSizeMismatch, path, info.Size(), opts.Size)
		}
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		if opts.Create {
			_ = os.Remove(path)
		}
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	region := &MappedRegion{
		Addr:  m,
		Name:  name,
		Path:  path,
		Owner: opts.Create,
		unmap: func() error {
			return errors.Join(m.Unmap(), f.Close())
		},
	}
	register(region)
	return region, nil
}

func canCreateOnDevShm(size uint64, path string) bool {
	return true
}
