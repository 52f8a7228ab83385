package bench

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/srediag/shmbench/pkg/shm"
)

// CheckpointLog buffers producer checkpoints without blocking the producer
// and prints them once the transfer is over.
type CheckpointLog struct {
	rb      *queue.RingBuffer
	start   time.Time
	dropped atomic.Uint64
}

// NewCheckpointLog returns a log holding up to size checkpoints. The ring
// buffer rounds size up to a power of two.
func NewCheckpointLog(size uint64) *CheckpointLog {
	return &CheckpointLog{rb: queue.NewRingBuffer(size), start: time.Now()}
}

// Record queues c. It is meant to be used as an shm.CheckpointFunc.
func (l *CheckpointLog) Record(c shm.Checkpoint) {
	ok, err := l.rb.Offer(c)
	if err != nil || !ok {
		l.dropped.Add(1)
	}
}

// Dropped returns the number of checkpoints that did not fit.
func (l *CheckpointLog) Dropped() uint64 { return l.dropped.Load() }

// Drain removes and returns the queued checkpoints.
func (l *CheckpointLog) Drain() []shm.Checkpoint {
	var out []shm.Checkpoint
	for l.rb.Len() > 0 {
		item, err := l.rb.Poll(time.Millisecond)
		if err != nil {
			break
		}
		out = append(out, item.(shm.Checkpoint))
	}
	return out
}

// WriteTo drains the log and writes one line per checkpoint with its time
// relative to the log's creation.
func (l *CheckpointLog) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, c := range l.Drain() {
		n, err := fmt.Fprintf(w, "--- Writer checkpoint %d/%d bytes: %d at: %s ---\n",
			c.Seq, c.Of, c.Bytes, c.At.Sub(l.start))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close releases the log. Later Record calls count as dropped.
func (l *CheckpointLog) Close() {
	l.rb.Dispose()
}
