package bench

import (
	"io"
	"strconv"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/shmbench/pkg/shm"
)

const mib = 1 << 20

// Report is the outcome of one consumer run as printed by the benchmark.
type Report struct {
	Total   uint64
	Bytes   uint64
	Elapsed time.Duration
	State   shm.ConsumerState
	Sum     Checksum
}

// NewReport builds the report of res, checksumming the received data.
func NewReport(res shm.Result) Report {
	return Report{
		Total:   res.Total,
		Bytes:   res.Consumed,
		Elapsed: res.Elapsed,
		State:   res.State,
		Sum:     Sum(res.Data),
	}
}

// Complete reports whether every announced byte was received.
func (r Report) Complete() bool {
	return r.State == shm.ConsumerDone && r.Bytes == r.Total
}

// MiBps returns the throughput in MiB per second.
func (r Report) MiBps() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Bytes) / mib / secs
}

// Gbps returns the throughput in gigabits per second.
func (r Report) Gbps() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Bytes) * 8 / secs / 1e9
}

// String formats the report as it is printed at the end of a run.
func (r Report) String() string {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)
	r.format(b)
	return b.String()
}

// WriteTo writes the report followed by a newline.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)
	r.format(b)
	_ = b.WriteByte('\n')
	return b.WriteTo(w)
}

func (r Report) format(b *bytebufferpool.ByteBuffer) {
	if !r.Complete() {
		b.B = append(b.B, "Aborted/ended early ("...)
		b.B = strconv.AppendUint(b.B, r.Bytes, 10)
		b.B = append(b.B, " bytes)"...)
		return
	}
	b.B = append(b.B, "Throughput: "...)
	b.B = strconv.AppendFloat(b.B, r.MiBps(), 'f', 2, 64)
	b.B = append(b.B, " MiB/s ("...)
	b.B = strconv.AppendFloat(b.B, r.Gbps(), 'f', 2, 64)
	b.B = append(b.B, " Gb/s), elapsed "...)
	b.B = strconv.AppendFloat(b.B, r.Elapsed.Seconds(), 'f', 3, 64)
	b.B = append(b.B, "s\n"...)
	b.B = append(b.B, r.Sum.String()...)
}
