package shm

import (
	"sync/atomic"
)

// Go's sync/atomic operations are sequentially consistent. Every load below is
// therefore at least an acquire and every store at least a release, which is
// the pairing the shared region protocol relies on. The helpers take plain
// field pointers because the fields live inside a memory mapping shared with
// another process and cannot be declared as atomic.Uint64.

// LoadAcquire64 loads a uint64 from shared memory.
func LoadAcquire64(addr *uint64) uint64 {
	return atomic.LoadUint64(addr)
}

// StoreRelease64 stores a uint64 to shared memory. All writes issued before
// the store are visible to a peer that observes the stored value.
func StoreRelease64(addr *uint64, val uint64) {
	atomic.StoreUint64(addr, val)
}

// LoadAcquire32 loads a uint32 from shared memory.
func LoadAcquire32(addr *uint32) uint32 {
	return atomic.LoadUint32(addr)
}

// StoreRelease32 stores a uint32 to shared memory.
func StoreRelease32(addr *uint32, val uint32) {
	atomic.StoreUint32(addr, val)
}

// CompareAndSwap32 atomically moves a uint32 in shared memory from old to new.
func CompareAndSwap32(addr *uint32, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(addr, old, new)
}
