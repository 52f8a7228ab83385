package bench

import (
	"fmt"
	"io"
	"strings"
)

// ConstantByte is the fill byte of PatternConstant.
const ConstantByte = 0xAB

// Pattern selects the payload generated by a Source.
type Pattern int

const (
	// PatternConstant fills every byte with ConstantByte.
	PatternConstant Pattern = iota
	// PatternCycle sets the byte at absolute offset i to (i % 255) + 1, so
	// no payload byte is ever zero.
	PatternCycle
)

func (p Pattern) String() string {
	switch p {
	case PatternConstant:
		return "constant"
	case PatternCycle:
		return "cycle"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// ParsePattern maps a pattern name to a Pattern.
func ParsePattern(s string) (Pattern, error) {
	switch strings.ToLower(s) {
	case "constant", "const":
		return PatternConstant, nil
	case "cycle", "cycling":
		return PatternCycle, nil
	}
	return 0, fmt.Errorf("unknown pattern %q", s)
}

// ExpectedByte returns the byte a Source of pattern p yields at offset off.
func ExpectedByte(p Pattern, off uint64) byte {
	if p == PatternCycle {
		return byte(off%255) + 1
	}
	return ConstantByte
}

var cycleTable = func() [255]byte {
	var t [255]byte
	for i := range t {
		t[i] = byte(i) + 1
	}
	return t
}()

// Source is an endless io.Reader producing a Pattern.
type Source struct {
	pattern Pattern
	off     uint64
}

// NewSource returns a Source positioned at offset zero.
func NewSource(p Pattern) *Source {
	return &Source{pattern: p}
}

// Offset returns the number of bytes produced so far.
func (s *Source) Offset() uint64 { return s.off }

func (s *Source) Read(b []byte) (int, error) {
	n := len(b)
	switch s.pattern {
	case PatternCycle:
		i := int(s.off % 255)
		for len(b) > 0 {
			k := copy(b, cycleTable[i:])
			b = b[k:]
			i = 0
		}
	default:
		for i := range b {
			b[i] = ConstantByte
		}
	}
	s.off += uint64(n)
	return n, nil
}

var _ io.Reader = (*Source)(nil)

// Verify returns the index of the first byte of data, which starts at
// absolute offset base, that differs from pattern p, or -1.
func Verify(p Pattern, data []byte, base uint64) int {
	for i, b := range data {
		if b != ExpectedByte(p, base+uint64(i)) {
			return i
		}
	}
	return -1
}
