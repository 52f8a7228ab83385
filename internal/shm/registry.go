package shm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// regions tracks every mapping of this process so that CloseAll can tear
// them down from a signal handler. A process may map the same name twice,
// so entries are keyed by mapping rather than by path.
var (
	regions  = cmap.New[*MappedRegion]()
	mappings atomic.Uint64
)

func register(region *MappedRegion) {
	region.key = strconv.FormatUint(mappings.Add(1), 10)
	regions.Set(region.key, region)
}

// UnmapRegion unmaps the region. It is safe to call more than once and
// concurrently with CloseAll; only the first caller unmaps.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if _, ok := regions.Pop(region.key); !ok {
		return nil
	}
	unmap := region.unmap
	region.unmap = nil
	region.Addr = nil
	if unmap == nil {
		return nil
	}
	if err := unmap(); err != nil {
		return fmt.Errorf("munmap %s: %w", region.Path, err)
	}
	return nil
}

// RemoveRegion removes the region's name. Mappings that are still open stay valid.
func RemoveRegion(region *MappedRegion) error {
	if err := os.Remove(region.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", region.Path, err)
	}
	return nil
}

// RenameRegion moves the region to a new name. It refuses to replace a
// region that already exists under that name.
func RenameRegion(region *MappedRegion, newName string) error {
	name, err := NormalizeName(newName)
	if err != nil {
		return fmt.Errorf("%w: %q", err, newName)
	}
	path := Path(name)
	if _, err := os.Stat(path); err == nil {
		return &os.PathError{Op: "rename", Path: path, Err: fs.ErrExist}
	}
	if err := os.Rename(region.Path, path); err != nil {
		return err
	}
	region.Name = name
	region.Path = path
	return nil
}

// Exists reports whether a region with the given name is present.
func Exists(name string) bool {
	name, err := NormalizeName(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(Path(name))
	return err == nil
}

// OpenRegions returns the number of mappings currently held by this process.
func OpenRegions() int {
	return regions.Count()
}

// CloseAll unmaps every open region and removes the ones this process owns.
func CloseAll(ctx context.Context) error {
	var errs []error
	for _, key := range regions.Keys() {
		region, ok := regions.Get(key)
		if !ok {
			continue
		}
		if err := UnmapRegion(ctx, region); err != nil {
			errs = append(errs, err)
		}
		if region.Owner {
			if err := RemoveRegion(region); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
