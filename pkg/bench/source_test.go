package bench

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("Cycle")
	require.NoError(t, err)
	assert.Equal(t, PatternCycle, p)
	p, err = ParsePattern("constant")
	require.NoError(t, err)
	assert.Equal(t, PatternConstant, p)
	_, err = ParsePattern("random")
	assert.Error(t, err)
	assert.Equal(t, "cycle", PatternCycle.String())
}

func TestCycleSourceAcrossReads(t *testing.T) {
	src := NewSource(PatternCycle)
	var data []byte
	for _, n := range []int{1, 254, 255, 256, 3, 1000} {
		b := make([]byte, n)
		_, err := io.ReadFull(src, b)
		require.NoError(t, err)
		data = append(data, b...)
	}
	assert.Equal(t, uint64(len(data)), src.Offset())
	assert.Equal(t, -1, Verify(PatternCycle, data, 0))
	assert.Equal(t, byte(1), data[0])
	assert.Equal(t, byte(255), data[254])
	assert.Equal(t, byte(1), data[255])
	assert.NotContains(t, data, byte(0))
}

func TestConstantSource(t *testing.T) {
	b := make([]byte, 4096)
	_, err := NewSource(PatternConstant).Read(b)
	require.NoError(t, err)
	assert.Equal(t, -1, Verify(PatternConstant, b, 0))

	b[17] = 0
	assert.Equal(t, 17, Verify(PatternConstant, b, 0))
}

func TestVerifyWithBase(t *testing.T) {
	src := NewSource(PatternCycle)
	_, _ = src.Read(make([]byte, 1000))
	b := make([]byte, 300)
	_, _ = src.Read(b)
	assert.Equal(t, -1, Verify(PatternCycle, b, 1000))
	assert.NotEqual(t, -1, Verify(PatternCycle, b, 0))
}
