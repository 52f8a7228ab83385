package bench

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Checksum summarizes received data. XOR is a cheap one-byte fold that
// misses reorderings; XXH64 catches them.
type Checksum struct {
	XOR   byte
	XXH64 uint64
}

func (c Checksum) String() string {
	return fmt.Sprintf("checksum xor=0x%02X xxh64=%016x", c.XOR, c.XXH64)
}

// Sum computes the checksum of data.
func Sum(data []byte) Checksum {
	return Checksum{XOR: xorFold(data), XXH64: xxhash.Sum64(data)}
}

// Hasher computes a Checksum incrementally.
type Hasher struct {
	xor    byte
	digest *xxhash.Digest
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{digest: xxhash.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	h.xor ^= xorFold(p)
	return h.digest.Write(p)
}

// Sum returns the checksum of everything written so far.
func (h *Hasher) Sum() Checksum {
	return Checksum{XOR: h.xor, XXH64: h.digest.Sum64()}
}

func xorFold(data []byte) byte {
	var w uint64
	for len(data) >= 8 {
		w ^= binary.LittleEndian.Uint64(data)
		data = data[8:]
	}
	var x byte
	for _, b := range data {
		x ^= b
	}
	for ; w != 0; w >>= 8 {
		x ^= byte(w)
	}
	return x
}
