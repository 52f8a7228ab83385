package shm

import (
	"context"
	"runtime"
	"time"
)

const (
	spinLimit  = 128
	yieldLimit = 1024
	sleepStep  = 50 * time.Microsecond
)

// spinWait backs off a polling loop: pure spinning first, then yielding the
// processor, then short sleeps. The context is only consulted once the busy
// phase is over.
type spinWait struct {
	ctx   context.Context
	n     int
	total uint64
}

func newSpinWait(ctx context.Context) spinWait {
	return spinWait{ctx: ctx}
}

func (s *spinWait) wait() error {
	s.n++
	s.total++
	switch {
	case s.n <= spinLimit:
		return nil
	case s.n <= yieldLimit:
		runtime.Gosched()
	default:
		time.Sleep(sleepStep)
	}
	return s.ctx.Err()
}

// reset is called after progress.
func (s *spinWait) reset() {
	s.n = 0
}
