package shm

import (
	"fmt"
	"unsafe"

	internalshm "github.com/srediag/shmbench/internal/shm"
)

// Memory layout constants
const (
	// BufferSize is the default ring capacity in bytes.
	BufferSize = 4 * 1024 * 1024

	// MaxCapacity bounds the ring capacity accepted by NewRegion and AttachRegion.
	MaxCapacity = 1 << 40

	// HeaderSize is the size of the control block preceding the ring data.
	HeaderSize = 0xC0

	layoutRevision = uint32(1)
)

var regionMagic = [8]byte{'S', 'H', 'M', 'B', 'N', 'C', 'H', 0}

// header is the control block at the start of the shared region. Both sides
// compile the same struct; there is no negotiation. The two positions sit on
// their own cache lines since each is hammered by a different core.
type header struct {
	magic         [8]byte  // 0x00: "SHMBNCH\0"
	layout        uint32   // 0x08: layout revision
	published     uint32   // 0x0C: 0 until Initialize has finished
	capacity      uint64   // 0x10: ring capacity in bytes
	totalBytes    uint64   // 0x18: transfer length, immutable once published
	producerState uint32   // 0x20: ProducerState
	consumerState uint32   // 0x24: ConsumerState
	producerPID   uint32   // 0x28
	consumerPID   uint32   // 0x2C
	_             [16]byte // 0x30-0x3F
	writePos      uint64   // 0x40: bytes produced, producer only
	_             [56]byte // 0x48-0x7F
	readPos       uint64   // 0x80: bytes consumed, consumer only
	_             [56]byte // 0x88-0xBF
	// ring data starts at 0xC0
}

// Fails to compile if header drifts from HeaderSize.
var _ = [1]struct{}{}[unsafe.Sizeof(header{})-HeaderSize]

// Region is a view over a shared region: the control block and the ring.
// A Region neither owns nor releases the memory it views.
type Region struct {
	hdr      *header
	buf      []byte
	capacity uint64
}

// Snapshot is a point-in-time copy of the control block.
type Snapshot struct {
	Capacity      uint64
	TotalBytes    uint64
	WritePosition uint64
	ReadPosition  uint64
	Published     bool
	ProducerState ProducerState
	ConsumerState ConsumerState
	ProducerPID   uint32
	ConsumerPID   uint32
}

// Used returns the number of produced bytes not yet consumed.
func (s Snapshot) Used() uint64 {
	if s.WritePosition <= s.ReadPosition {
		return 0
	}
	return s.WritePosition - s.ReadPosition
}

// RegionSize returns the number of bytes a region with the given ring capacity occupies.
func RegionSize(capacity uint64) int {
	return HeaderSize + int(capacity)
}

// NewRegion lays out a fresh region over mem. The memory must not be visible
// to a consumer yet; Initialize publishes it.
func NewRegion(mem []byte, capacity uint64) (*Region, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	if len(mem) < RegionSize(capacity) {
		return nil, fmt.Errorf("%w: %d bytes cannot hold capacity %d", ErrLayoutMismatch, len(mem), capacity)
	}
	if uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		return nil, ErrMisaligned
	}
	r := view(mem, capacity)
	r.hdr.magic = regionMagic
	internalshm.StoreRelease32(&r.hdr.layout, layoutRevision)
	internalshm.StoreRelease64(&r.hdr.capacity, capacity)
	return r, nil
}

// AttachRegion views a region laid out by another party. A non-zero
// capacity must match the one recorded in the region.
func AttachRegion(mem []byte, capacity uint64) (*Region, error) {
	if len(mem) < HeaderSize {
		return nil, fmt.Errorf("%w: region too small: %d bytes", ErrLayoutMismatch, len(mem))
	}
	if uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		return nil, ErrMisaligned
	}
	h := (*header)(unsafe.Pointer(&mem[0]))
	if h.magic != regionMagic {
		return nil, fmt.Errorf("%w: invalid magic bytes", ErrLayoutMismatch)
	}
	if rev := internalshm.LoadAcquire32(&h.layout); rev != layoutRevision {
		return nil, fmt.Errorf("%w: layout revision %d, expected %d", ErrLayoutMismatch, rev, layoutRevision)
	}
	got := internalshm.LoadAcquire64(&h.capacity)
	if err := checkCapacity(got); err != nil {
		return nil, fmt.Errorf("%w: recorded capacity: %w", ErrLayoutMismatch, err)
	}
	if capacity != 0 && got != capacity {
		return nil, fmt.Errorf("%w: region has %d, expected %d", ErrCapacityMismatch, got, capacity)
	}
	if len(mem) != RegionSize(got) {
		return nil, fmt.Errorf("%w: %d bytes for capacity %d", ErrLayoutMismatch, len(mem), got)
	}
	return view(mem, got), nil
}

// NewHeapRegion allocates a region in process memory. It is used for
// in-process transfers and tests.
func NewHeapRegion(capacity uint64) (*Region, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	size := RegionSize(capacity)
	words := make([]uint64, (size+7)/8)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
	return NewRegion(mem, capacity)
}

func view(mem []byte, capacity uint64) *Region {
	return &Region{
		hdr:      (*header)(unsafe.Pointer(&mem[0])),
		buf:      mem[HeaderSize : HeaderSize+int(capacity)],
		capacity: capacity,
	}
}

func checkCapacity(capacity uint64) error {
	if capacity == 0 || capacity > MaxCapacity {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return nil
}

// Capacity returns the ring capacity in bytes.
func (r *Region) Capacity() uint64 {
	return r.capacity
}

// Published reports whether Initialize has completed.
func (r *Region) Published() bool {
	return internalshm.LoadAcquire32(&r.hdr.published) != 0
}

// TotalBytes returns the transfer length. It is meaningful once Published is true.
func (r *Region) TotalBytes() uint64 {
	return internalshm.LoadAcquire64(&r.hdr.totalBytes)
}

// WritePosition returns the number of bytes produced so far.
func (r *Region) WritePosition() uint64 {
	return internalshm.LoadAcquire64(&r.hdr.writePos)
}

// ReadPosition returns the number of bytes consumed so far.
func (r *Region) ReadPosition() uint64 {
	return internalshm.LoadAcquire64(&r.hdr.readPos)
}

// ProducerState returns the producer's terminal state, or ProducerRunning.
func (r *Region) ProducerState() ProducerState {
	return ProducerState(internalshm.LoadAcquire32(&r.hdr.producerState))
}

// ConsumerState returns the consumer's last published state.
func (r *Region) ConsumerState() ConsumerState {
	return ConsumerState(internalshm.LoadAcquire32(&r.hdr.consumerState))
}

// Snapshot copies the control block. Fields are loaded one by one, so the
// result is not a consistent cut while a transfer is running.
func (r *Region) Snapshot() Snapshot {
	return Snapshot{
		Capacity:      r.capacity,
		TotalBytes:    r.TotalBytes(),
		WritePosition: r.WritePosition(),
		ReadPosition:  r.ReadPosition(),
		Published:     r.Published(),
		ProducerState: r.ProducerState(),
		ConsumerState: r.ConsumerState(),
		ProducerPID:   internalshm.LoadAcquire32(&r.hdr.producerPID),
		ConsumerPID:   internalshm.LoadAcquire32(&r.hdr.consumerPID),
	}
}

func (r *Region) storeWritePosition(pos uint64) {
	internalshm.StoreRelease64(&r.hdr.writePos, pos)
}

func (r *Region) storeReadPosition(pos uint64) {
	internalshm.StoreRelease64(&r.hdr.readPos, pos)
}

func (r *Region) setConsumerState(s ConsumerState) {
	internalshm.StoreRelease32(&r.hdr.consumerState, uint32(s))
}

func (r *Region) setConsumerPID(pid int) {
	internalshm.StoreRelease32(&r.hdr.consumerPID, uint32(pid))
}

// finishProducer moves the producer from running to a terminal state. Only
// the first transition wins, so done and aborted exclude each other.
func (r *Region) finishProducer(s ProducerState) bool {
	return internalshm.CompareAndSwap32(&r.hdr.producerState, uint32(ProducerRunning), uint32(s))
}
