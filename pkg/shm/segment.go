package shm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	internalshm "github.com/srediag/shmbench/internal/shm"
)

const (
	attachInitialInterval = 10 * time.Millisecond
	attachMaxInterval     = 100 * time.Millisecond
)

// Segment is a Region backed by a named shared memory mapping.
type Segment struct {
	*Region
	mapping   *internalshm.MappedRegion
	closeOnce sync.Once
	closeErr  error
}

// Create maps a new named region of cfg.Capacity bytes and initializes it
// for a transfer of totalBytes bytes. The region is laid out under a private
// staging name and only renamed to cfg.Name once initialized, so an
// attaching consumer never sees a half-built control block.
//
// Create fails with an error matching fs.ErrExist if the name is taken.
func Create(ctx context.Context, cfg Config, totalBytes uint64) (*Segment, error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	name, err := internalshm.NormalizeName(cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, cfg.Name)
	}
	if internalshm.Exists(name) {
		return nil, fmt.Errorf("create %s: %w", name, fs.ErrExist)
	}

	staging := fmt.Sprintf("%s.init-%d", name, os.Getpid())
	m, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		Name:   staging,
		Size:   RegionSize(cfg.Capacity),
		Create: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	discard := func() {
		if err := internalshm.RemoveRegion(m); err != nil {
			segmentLogger.warnf("remove %s: %v", m.Path, err)
		}
		if err := internalshm.UnmapRegion(ctx, m); err != nil {
			segmentLogger.warnf("%v", err)
		}
	}

	r, err := NewRegion(m.Addr, cfg.Capacity)
	if err != nil {
		discard()
		return nil, err
	}
	Initialize(r, totalBytes)
	if err := internalshm.RenameRegion(m, name); err != nil {
		discard()
		return nil, fmt.Errorf("publish %s: %w", name, err)
	}
	segmentLogger.infof("created region %s capacity:%d total:%d", m.Path, cfg.Capacity, totalBytes)
	return &Segment{Region: r, mapping: m}, nil
}

// Attach maps the region named by cfg.Name. While the name does not exist
// yet, Attach retries with backoff for up to wait; a non-positive wait tries
// once. A non-zero cfg.Capacity must match the region's capacity.
func Attach(ctx context.Context, cfg Config, wait time.Duration) (*Segment, error) {
	var b backoff.BackOff = &backoff.StopBackOff{}
	if wait > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = attachInitialInterval
		eb.MaxInterval = attachMaxInterval
		eb.MaxElapsedTime = wait
		b = eb
	}

	var seg *Segment
	attempt := 0
	op := func() error {
		attempt++
		m, err := internalshm.MapRegion(ctx, internalshm.MapOptions{Name: cfg.Name})
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				segmentLogger.tracef("attach %s attempt %d: not there yet", cfg.Name, attempt)
				return err
			}
			return backoff.Permanent(err)
		}
		r, err := AttachRegion(m.Addr, cfg.Capacity)
		if err != nil {
			if uerr := internalshm.UnmapRegion(ctx, m); uerr != nil {
				segmentLogger.warnf("%v", uerr)
			}
			return backoff.Permanent(err)
		}
		seg = &Segment{Region: r, mapping: m}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("attach %s: %w", cfg.Name, err)
	}
	segmentLogger.infof("attached region %s capacity:%d after %d attempts", seg.mapping.Path, seg.capacity, attempt)
	return seg, nil
}

// Name returns the region name without prefix.
func (s *Segment) Name() string { return s.mapping.Name }

// Path returns the backing file of the region.
func (s *Segment) Path() string { return s.mapping.Path }

// Owner reports whether this side created the region.
func (s *Segment) Owner() bool { return s.mapping.Owner }

// Close unmaps the region and, on the creating side, removes its name. The
// Region must not be used afterwards. Close is idempotent.
func (s *Segment) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.mapping.Owner {
			if err := internalshm.RemoveRegion(s.mapping); err != nil {
				segmentLogger.warnf("%v", err)
				errs = append(errs, err)
			}
		}
		if err := internalshm.UnmapRegion(context.Background(), s.mapping); err != nil {
			errs = append(errs, err)
		}
		s.closeErr = errors.Join(errs...)
		segmentLogger.debugf("closed region %s", s.mapping.Path)
	})
	return s.closeErr
}
