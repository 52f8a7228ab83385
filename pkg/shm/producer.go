package shm

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ProducerStats describes a finished producer run.
type ProducerStats struct {
	Total    uint64
	Produced uint64
	State    ProducerState
	Elapsed  time.Duration
	// Spins counts polling iterations that found the ring full or, after
	// done, not yet drained.
	Spins uint64
}

// Producer fills the ring of an initialized region. Exactly one Producer may
// run per region.
type Producer struct {
	region *Region
	cfg    Config
	tel    *telemetry
}

// NewProducer returns a producer for r. Only MaxChunk, Checkpoint, Meter and
// Tracer of cfg are used.
func NewProducer(r *Region, cfg Config) *Producer {
	return &Producer{region: r, cfg: cfg, tel: newTelemetry(cfg)}
}

// Abort asks the transfer to stop early. It may be called from any
// goroutine. It returns false when the producer already reached a terminal
// state.
func (p *Producer) Abort() bool {
	return p.region.finishProducer(ProducerAborted)
}

// Run copies the transfer from src into the ring until the announced total
// has been produced, signals done, and then waits for the consumer to drain
// the ring.
//
// If Abort is called, Run returns with State set to ProducerAborted and no
// error. A source error or a cancelled ctx also aborts the transfer; the
// returned error then wraps both ErrAborted and the cause. A ctx cancelled
// during the final drain wait only ends the wait.
func (p *Producer) Run(ctx context.Context, src io.Reader) (stats ProducerStats, err error) {
	r := p.region
	if !r.Published() {
		return stats, ErrNotInitialized
	}
	ctx, span := p.tel.start(ctx, roleProducer)
	start := time.Now()
	spin := newSpinWait(ctx)
	defer func() {
		stats.Elapsed = time.Since(start)
		stats.Spins = spin.total
		p.tel.end(ctx, span, roleProducer, stats.State.String(), stats.Produced, stats.Spins, err)
		internalLogger.debugf("producer finished state:%s produced:%d/%d elapsed:%s spins:%d",
			stats.State, stats.Produced, stats.Total, stats.Elapsed, stats.Spins)
	}()

	total := r.TotalBytes()
	capacity := r.capacity
	maxChunk := p.cfg.MaxChunk
	if maxChunk == 0 || maxChunk > capacity {
		maxChunk = capacity
	}
	stats.Total = total
	cp := newCheckpointer(p.cfg.Checkpoint, total)

	write := r.WritePosition()
	for write < total {
		if s := r.ProducerState(); s != ProducerRunning {
			stats.Produced, stats.State = write, s
			return stats, nil
		}
		read := r.ReadPosition()
		var used uint64
		if read < write {
			used = write - read
		}
		if used >= capacity {
			if err := spin.wait(); err != nil {
				return p.abort(stats, write, err)
			}
			continue
		}
		spin.reset()

		// A single copy never crosses the physical end of the ring; the
		// next iteration starts again at offset zero.
		off := write % capacity
		chunk := min(capacity-used, total-write, capacity-off, maxChunk)
		if _, err := io.ReadFull(src, r.buf[off:off+chunk]); err != nil {
			return p.abort(stats, write, fmt.Errorf("read source: %w", err))
		}
		write += chunk
		r.storeWritePosition(write)
		cp.advance(write)
	}
	cp.finish(write)
	stats.Produced = write

	if !r.finishProducer(ProducerDone) {
		stats.State = r.ProducerState()
		return stats, nil
	}
	stats.State = ProducerDone

	// The region must outlive the consumer's last copy.
	spin.reset()
	for r.ReadPosition() < total && !r.ConsumerState().Terminal() {
		if err := spin.wait(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (p *Producer) abort(stats ProducerStats, produced uint64, cause error) (ProducerStats, error) {
	p.region.finishProducer(ProducerAborted)
	stats.Produced = produced
	stats.State = p.region.ProducerState()
	return stats, fmt.Errorf("%w: %w", ErrAborted, cause)
}
