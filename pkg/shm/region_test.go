package shm

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/suite"
)

type RegionTestSuite struct {
	suite.Suite
}

func (s *RegionTestSuite) TestHeaderLayout() {
	var h header
	s.Require().Equal(uintptr(HeaderSize), unsafe.Sizeof(h))
	s.Equal(uintptr(0x00), unsafe.Offsetof(h.magic))
	s.Equal(uintptr(0x08), unsafe.Offsetof(h.layout))
	s.Equal(uintptr(0x0C), unsafe.Offsetof(h.published))
	s.Equal(uintptr(0x10), unsafe.Offsetof(h.capacity))
	s.Equal(uintptr(0x18), unsafe.Offsetof(h.totalBytes))
	s.Equal(uintptr(0x20), unsafe.Offsetof(h.producerState))
	s.Equal(uintptr(0x24), unsafe.Offsetof(h.consumerState))
	s.Equal(uintptr(0x28), unsafe.Offsetof(h.producerPID))
	s.Equal(uintptr(0x2C), unsafe.Offsetof(h.consumerPID))
	s.Equal(uintptr(0x40), unsafe.Offsetof(h.writePos))
	s.Equal(uintptr(0x80), unsafe.Offsetof(h.readPos))
}

func (s *RegionTestSuite) TestNewRegion() {
	r, err := NewHeapRegion(64)
	s.Require().NoError(err)
	s.Equal(uint64(64), r.Capacity())
	s.Len(r.buf, 64)
	s.False(r.Published())

	Initialize(r, 1000)
	snap := r.Snapshot()
	s.True(snap.Published)
	s.Equal(uint64(1000), snap.TotalBytes)
	s.Equal(uint64(0), snap.WritePosition)
	s.Equal(uint64(0), snap.ReadPosition)
	s.Equal(ProducerRunning, snap.ProducerState)
	s.Equal(ConsumerWaiting, snap.ConsumerState)
	s.NotZero(snap.ProducerPID)
	s.Zero(snap.ConsumerPID)

	s.Panics(func() { Initialize(r, 1) })
}

func (s *RegionTestSuite) TestInvalidCapacity() {
	_, err := NewHeapRegion(0)
	s.Require().ErrorIs(err, ErrInvalidCapacity)
	_, err = NewHeapRegion(MaxCapacity + 1)
	s.Require().ErrorIs(err, ErrInvalidCapacity)

	mem := make([]byte, RegionSize(64)-1)
	_, err = NewRegion(mem, 64)
	s.Require().ErrorIs(err, ErrLayoutMismatch)
}

func (s *RegionTestSuite) TestAttachRegion() {
	words := make([]uint64, RegionSize(128)/8)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), RegionSize(128))

	_, err := AttachRegion(mem, 0)
	s.Require().ErrorIs(err, ErrLayoutMismatch, "blank memory has no magic")

	_, err = NewRegion(mem, 128)
	s.Require().NoError(err)

	r, err := AttachRegion(mem, 0)
	s.Require().NoError(err)
	s.Equal(uint64(128), r.Capacity())

	r, err = AttachRegion(mem, 128)
	s.Require().NoError(err)
	s.Equal(uint64(128), r.Capacity())

	_, err = AttachRegion(mem, 64)
	s.Require().ErrorIs(err, ErrCapacityMismatch)

	_, err = AttachRegion(mem[:HeaderSize+64], 0)
	s.Require().ErrorIs(err, ErrLayoutMismatch)

	_, err = AttachRegion(mem[:HeaderSize-1], 0)
	s.Require().ErrorIs(err, ErrLayoutMismatch)

	_, err = AttachRegion(mem[1:], 0)
	s.Require().ErrorIs(err, ErrMisaligned)

	// A region written by a newer layout is refused.
	r.hdr.layout = layoutRevision + 1
	_, err = AttachRegion(mem, 0)
	s.Require().ErrorIs(err, ErrLayoutMismatch)
}

func (s *RegionTestSuite) TestFinishProducerOnce() {
	r, err := NewHeapRegion(64)
	s.Require().NoError(err)
	Initialize(r, 10)

	s.True(r.finishProducer(ProducerAborted))
	s.False(r.finishProducer(ProducerDone))
	s.Equal(ProducerAborted, r.ProducerState())
}

func (s *RegionTestSuite) TestSnapshotUsed() {
	s.Equal(uint64(0), Snapshot{WritePosition: 10, ReadPosition: 10}.Used())
	s.Equal(uint64(0), Snapshot{WritePosition: 5, ReadPosition: 10}.Used())
	s.Equal(uint64(7), Snapshot{WritePosition: 17, ReadPosition: 10}.Used())
}

func (s *RegionTestSuite) TestStateStrings() {
	s.Equal("done", ProducerDone.String())
	s.Equal("unknown", ProducerState(42).String())
	s.Equal("partial", ConsumerPartial.String())
	s.True(ConsumerAborted.Terminal())
	s.False(ConsumerDraining.Terminal())
	s.False(ConsumerWaiting.Terminal())
}

func TestRegionTestSuite(t *testing.T) {
	suite.Run(t, new(RegionTestSuite))
}
