// Package shm implements a single-producer single-consumer byte ring placed in
// memory shared by two processes and coordinated without locks.
//
// The region starts with a fixed 192 byte control block followed by the ring
// data. The producer owns the write position and the producer state, the
// consumer owns the read position and the consumer state. Every cross-process
// handoff is an atomic store observed by an atomic load on the other side:
// ring bytes are written before the write position that covers them is
// published, and read out before the read position that releases them.
//
// Example usage:
//
//	cfg := shm.DefaultConfig()
//	cfg.Name = "bench"
//	seg, err := shm.Create(ctx, cfg, 100<<20)
//	// ...
//	stats, err := shm.NewProducer(seg.Region, cfg).Run(ctx, src)
//
// and on the other side:
//
//	seg, err := shm.Attach(ctx, shm.Config{Name: "bench"}, 5*time.Second)
//	// ...
//	res, err := shm.NewConsumer(seg.Region, cfg).Run(ctx)
//
// Platform-specific mapping helpers are in internal/shm.
package shm
