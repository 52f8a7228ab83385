//go:build linux

package shm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"
)

const devShm = "/dev/shm"

// Path returns the backing path of the named region.
func Path(name string) string {
	if isDevShmAvailable() {
		return filepath.Join(devShm, namePrefix+name)
	}
	return filepath.Join(os.TempDir(), namePrefix+name)
}

// MapRegion maps or creates a shared memory region (Linux implementation).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := NormalizeName(opts.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, opts.Name)
	}
	path := Path(name)

	flags := unix.O_RDWR | unix.O_CLOEXEC
	if opts.Create {
		if opts.Size <= 0 {
			return nil, fmt.Errorf("create %s: invalid size %d", path, opts.Size)
		}
		if !canCreateOnDevShm(uint64(opts.Size), path) {
			return nil, fmt.Errorf("%w: path:%s, size:%d", ErrNoSpace, path, opts.Size)
		}
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(path, flags, 0600)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	// The mapping stays valid once the descriptor is closed.
	defer func() { _ = unix.Close(fd) }()

	size := opts.Size
	if opts.Create {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Unlink(path)
			return nil, fmt.Errorf("ftruncate %s: %w", path, err)
		}
	} else {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			return nil, fmt.Errorf("fstat %s: %w", path, err)
		}
		switch {
		case size == 0:
			size = int(st.Size)
		case int64(size) != st.Size:
			return nil, fmt.Errorf("%w: %s is %d bytes, expected %d", ErrSizeMismatch, path, st.Size, size)
		}
		if size == 0 {
			return nil, fmt.Errorf("%w: %s is empty", ErrSizeMismatch, path)
		}
	}

	addr, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		if opts.Create {
			_ = unix.Unlink(path)
		}
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	region := &MappedRegion{
		Addr:  addr,
		Name:  name,
		Path:  path,
		Owner: opts.Create,
		unmap: func() error { return unix.Munmap(addr) },
	}
	register(region)
	return region, nil
}

// canCreateOnDevShm reports whether /dev/shm has room for size more bytes.
// Paths outside /dev/shm are always accepted.
func canCreateOnDevShm(size uint64, path string) bool {
	if !strings.HasPrefix(path, devShm) {
		return true
	}
	stat, err := disk.Usage(devShm)
	if err != nil {
		return true
	}
	return stat.Free >= size
}

func isDevShmAvailable() bool {
	info, err := os.Stat(devShm)
	if err != nil {
		return false
	}
	return info.IsDir()
}
