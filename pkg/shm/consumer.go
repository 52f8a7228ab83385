package shm

import (
	"context"
	"os"
	"time"
)

// Result is the outcome of a consumer run.
type Result struct {
	Total    uint64
	Consumed uint64
	State    ConsumerState
	// Data holds the consumed bytes, Data[:Consumed].
	Data    []byte
	Elapsed time.Duration
	Spins   uint64
}

// Aborted reports whether the producer aborted the transfer.
func (r Result) Aborted() bool { return r.State == ConsumerAborted }

// Complete reports whether every announced byte was received.
func (r Result) Complete() bool { return r.State == ConsumerDone && r.Consumed == r.Total }

// Consumer drains the ring of a region. Exactly one Consumer may run per region.
type Consumer struct {
	region *Region
	cfg    Config
	tel    *telemetry
}

// NewConsumer returns a consumer for r. Only Meter and Tracer of cfg are used.
func NewConsumer(r *Region, cfg Config) *Consumer {
	return &Consumer{region: r, cfg: cfg, tel: newTelemetry(cfg)}
}

// Run drains the transfer into a freshly allocated buffer.
func (c *Consumer) Run(ctx context.Context) (Result, error) {
	return c.RunInto(ctx, nil)
}

// RunInto drains the transfer into dst, which is reused when it can hold the
// announced total. RunInto first waits for the region to be published.
//
// The producer aborting is reported through Result.State, not as an error. An
// error is returned only when ctx ends first; the consumer then marks itself
// aborted so the producer stops waiting for it.
func (c *Consumer) RunInto(ctx context.Context, dst []byte) (res Result, err error) {
	r := c.region
	ctx, span := c.tel.start(ctx, roleConsumer)
	start := time.Now()
	spin := newSpinWait(ctx)
	defer func() {
		res.Elapsed = time.Since(start)
		res.Spins = spin.total
		c.tel.end(ctx, span, roleConsumer, res.State.String(), res.Consumed, res.Spins, err)
		internalLogger.debugf("consumer finished state:%s consumed:%d/%d elapsed:%s spins:%d",
			res.State, res.Consumed, res.Total, res.Elapsed, res.Spins)
	}()

	for !r.Published() {
		if err := spin.wait(); err != nil {
			res.State = ConsumerWaiting
			return res, err
		}
	}
	spin.reset()
	// The transfer is timed from the moment it is visible.
	start = time.Now()
	r.setConsumerPID(os.Getpid())

	total := r.TotalBytes()
	capacity := r.capacity
	res.Total = total
	if uint64(cap(dst)) >= total {
		dst = dst[:total]
	} else {
		dst = make([]byte, total)
	}
	res.Data = dst
	if total == 0 {
		return c.finish(res, 0, ConsumerDone), nil
	}
	r.setConsumerState(ConsumerDraining)

	read := r.ReadPosition()
	for read < total {
		write := r.WritePosition()
		if write <= read {
			switch r.ProducerState() {
			case ProducerAborted:
				return c.finish(res, read, ConsumerAborted), nil
			case ProducerDone:
				// The producer may have published more data between our
				// load of the write position and its done flag.
				if r.WritePosition() <= read {
					return c.finish(res, read, ConsumerPartial), nil
				}
				continue
			}
			if err := spin.wait(); err != nil {
				return c.finish(res, read, ConsumerAborted), err
			}
			continue
		}
		spin.reset()

		off := read % capacity
		n := min(write-read, total-read, capacity-off)
		copy(dst[read:read+n], r.buf[off:off+n])
		read += n
		r.storeReadPosition(read)
	}
	return c.finish(res, read, ConsumerDone), nil
}

func (c *Consumer) finish(res Result, consumed uint64, s ConsumerState) Result {
	c.region.setConsumerState(s)
	res.Consumed = consumed
	res.State = s
	res.Data = res.Data[:consumed]
	return res
}
