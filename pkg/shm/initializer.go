package shm

import (
	"os"

	internalshm "github.com/srediag/shmbench/internal/shm"
)

// Initialize prepares r for a transfer of totalBytes bytes. It must run
// exactly once, on the producing side, before the consumer can see the
// region. The published flag is stored last; a consumer that observes it
// also observes every field stored before it.
func Initialize(r *Region, totalBytes uint64) {
	h := r.hdr
	if internalshm.LoadAcquire32(&h.published) != 0 {
		panic("shm: region already initialized")
	}
	internalshm.StoreRelease32(&h.producerState, uint32(ProducerRunning))
	internalshm.StoreRelease32(&h.consumerState, uint32(ConsumerWaiting))
	internalshm.StoreRelease64(&h.readPos, 0)
	internalshm.StoreRelease64(&h.writePos, 0)
	internalshm.StoreRelease32(&h.producerPID, uint32(os.Getpid()))
	internalshm.StoreRelease32(&h.consumerPID, 0)
	internalshm.StoreRelease64(&h.totalBytes, totalBytes)

	internalshm.StoreRelease32(&h.published, 1)
}
