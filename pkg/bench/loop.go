package bench

import (
	"context"
	"errors"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"github.com/srediag/shmbench/pkg/shm"
)

// LoopOptions describes one in-process transfer.
type LoopOptions struct {
	Capacity uint64
	Total    uint64
	MaxChunk uint64
	Pattern  Pattern
	// Checkpoint, if set, receives the producer checkpoints.
	Checkpoint shm.CheckpointFunc
}

// LoopResult is the outcome of a loopback transfer.
type LoopResult struct {
	Producer shm.ProducerStats
	Consumer shm.Result
	Report   Report
	// Mismatch is the offset of the first byte that differs from the
	// pattern, or -1.
	Mismatch int
}

// Runner runs producer and consumer pairs over heap regions on a shared
// goroutine pool.
type Runner struct {
	pool *ants.Pool
}

// NewRunner returns a runner able to run `pairs` transfers concurrently.
func NewRunner(pairs int) (*Runner, error) {
	if pairs < 1 {
		pairs = 1
	}
	pool, err := ants.NewPool(2*pairs, ants.WithPreAlloc(true))
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Runner{pool: pool}, nil
}

// Release stops the pool's workers.
func (r *Runner) Release() {
	r.pool.Release()
}

// Run performs one transfer. The producer and the consumer each take a pool
// worker; Run blocks until both returned.
func (r *Runner) Run(ctx context.Context, opts LoopOptions) (LoopResult, error) {
	region, err := shm.NewHeapRegion(opts.Capacity)
	if err != nil {
		return LoopResult{}, err
	}
	shm.Initialize(region, opts.Total)

	cfg := shm.Config{MaxChunk: opts.MaxChunk, Checkpoint: opts.Checkpoint}
	producer := shm.NewProducer(region, cfg)
	consumer := shm.NewConsumer(region, cfg)

	type produced struct {
		stats shm.ProducerStats
		err   error
	}
	type consumed struct {
		res shm.Result
		err error
	}
	pc := make(chan produced, 1)
	cc := make(chan consumed, 1)

	if err := r.pool.Submit(func() {
		res, err := consumer.Run(ctx)
		cc <- consumed{res, err}
	}); err != nil {
		return LoopResult{}, fmt.Errorf("submit consumer: %w", err)
	}
	if err := r.pool.Submit(func() {
		stats, err := producer.Run(ctx, NewSource(opts.Pattern))
		pc <- produced{stats, err}
	}); err != nil {
		// The consumer is already waiting on the region.
		producer.Abort()
		<-cc
		return LoopResult{}, fmt.Errorf("submit producer: %w", err)
	}

	p, c := <-pc, <-cc
	out := LoopResult{
		Producer: p.stats,
		Consumer: c.res,
		Report:   NewReport(c.res),
		Mismatch: Verify(opts.Pattern, c.res.Data, 0),
	}
	return out, errors.Join(p.err, c.err)
}
