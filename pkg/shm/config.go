package shm

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultCapacity is the ring capacity used when none is configured.
	DefaultCapacity = BufferSize
	// DefaultMaxChunk caps a single producer copy.
	DefaultMaxChunk = 1 << 20

	checkpointIntervals = 10
)

// Config holds region and loop parameters.
type Config struct {
	Name string // shared memory name or identifier
	// Capacity is the ring size in bytes. When attaching, zero accepts
	// whatever the producer chose.
	Capacity uint64
	// MaxChunk caps the bytes copied per producer iteration. Zero means
	// "bounded by the ring only".
	MaxChunk uint64
	// Checkpoint, if set, is called by the producer at the start of the
	// transfer, after every tenth of it and at the end.
	Checkpoint CheckpointFunc
	Meter      metric.Meter
	Tracer     trace.Tracer
}

// Checkpoint marks producer progress.
type Checkpoint struct {
	Seq   int
	Of    int
	Bytes uint64
	At    time.Time
}

// CheckpointFunc receives producer checkpoints. It runs on the producer's
// goroutine and must not block.
type CheckpointFunc func(Checkpoint)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Capacity: DefaultCapacity,
		MaxChunk: DefaultMaxChunk,
	}
}

// VerifyConfig checks a configuration used to create a region.
func VerifyConfig(c Config) error {
	if c.Name == "" {
		return errors.New("config: region name is mandatory")
	}
	if err := checkCapacity(c.Capacity); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MaxChunk > c.Capacity {
		return fmt.Errorf("config: max chunk %d exceeds capacity %d", c.MaxChunk, c.Capacity)
	}
	return nil
}

type checkpointer struct {
	fn       CheckpointFunc
	total    uint64
	interval uint64
	next     uint64
	seq      int
}

func newCheckpointer(fn CheckpointFunc, total uint64) checkpointer {
	if fn == nil || total == 0 {
		return checkpointer{}
	}
	interval := (total + checkpointIntervals - 1) / checkpointIntervals
	c := checkpointer{fn: fn, total: total, interval: interval, next: interval}
	c.emit(0)
	return c
}

func (c *checkpointer) advance(pos uint64) {
	if c.fn == nil || pos < c.next {
		return
	}
	c.seq = checkpointIntervals
	if pos < c.total {
		c.seq = min(int(pos/c.interval), checkpointIntervals-1)
	}
	c.next = uint64(c.seq+1) * c.interval
	c.emit(pos)
}

func (c *checkpointer) finish(pos uint64) {
	if c.fn == nil || c.seq == checkpointIntervals {
		return
	}
	c.seq = checkpointIntervals
	c.emit(pos)
}

func (c *checkpointer) emit(pos uint64) {
	c.fn(Checkpoint{Seq: c.seq, Of: checkpointIntervals, Bytes: pos, At: time.Now()})
}
