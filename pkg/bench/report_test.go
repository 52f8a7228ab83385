package bench

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmbench/pkg/shm"
)

func TestChecksum(t *testing.T) {
	assert.Equal(t, Checksum{XXH64: xxhash.Sum64(nil)}, Sum(nil))

	data := make([]byte, 1003)
	_, _ = NewSource(PatternCycle).Read(data)
	var want byte
	for _, b := range data {
		want ^= b
	}
	sum := Sum(data)
	assert.Equal(t, want, sum.XOR)
	assert.Equal(t, xxhash.Sum64(data), sum.XXH64)

	h := NewHasher()
	_, _ = h.Write(data[:5])
	_, _ = h.Write(data[5:])
	assert.Equal(t, sum, h.Sum())

	// 255 consecutive cycle bytes are 1..255, which XOR to zero.
	assert.Equal(t, byte(0), Sum(data[:255]).XOR)
	assert.Equal(t, "checksum xor=0x0A xxh64=00000000000000ff", Checksum{XOR: 0x0A, XXH64: 0xff}.String())
}

func TestReportComplete(t *testing.T) {
	r := Report{
		Total:   100 * mib,
		Bytes:   100 * mib,
		Elapsed: 2 * time.Second,
		State:   shm.ConsumerDone,
		Sum:     Checksum{XOR: 0xAB, XXH64: 1},
	}
	require.True(t, r.Complete())
	assert.InDelta(t, 50.0, r.MiBps(), 1e-9)
	assert.InDelta(t, 0.4194304, r.Gbps(), 1e-9)
	assert.Equal(t,
		"Throughput: 50.00 MiB/s (0.42 Gb/s), elapsed 2.000s\nchecksum xor=0xAB xxh64=0000000000000001",
		r.String())

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestReportEarlyEnd(t *testing.T) {
	for _, state := range []shm.ConsumerState{shm.ConsumerAborted, shm.ConsumerPartial} {
		r := Report{Total: 100, Bytes: 42, Elapsed: time.Second, State: state}
		assert.False(t, r.Complete())
		assert.Equal(t, "Aborted/ended early (42 bytes)", r.String())
	}
	assert.Zero(t, Report{Bytes: 1}.MiBps())
	assert.Zero(t, Report{Bytes: 1}.Gbps())
}

func TestNewReport(t *testing.T) {
	res := shm.Result{Total: 3, Consumed: 3, State: shm.ConsumerDone, Data: []byte{1, 2, 3}, Elapsed: time.Millisecond}
	r := NewReport(res)
	assert.True(t, r.Complete())
	assert.Equal(t, byte(0), r.Sum.XOR)
	assert.Equal(t, time.Millisecond, r.Elapsed)
}
