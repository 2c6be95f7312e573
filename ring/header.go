package ring

import "sync/atomic"

// QueueType selects the reservation strategy a Ring uses when a producer
// claims the next publish count.
type QueueType uint8

const (
	// Unknown is the zero value; a Ring must never be used with it.
	Unknown QueueType = iota
	// MultiProducerMultiConsumer reserves positions with an atomic
	// fetch-add, safe for any number of concurrent producers.
	MultiProducerMultiConsumer
	// SingleProducerMultiConsumer is for rings where exactly one producer
	// publishes at a time. It reserves positions with the same atomic
	// fetch-add as MultiProducerMultiConsumer (see Ring.reserveNext); it
	// differs only in first-publish recovery.
	SingleProducerMultiConsumer
)

func (t QueueType) String() string {
	switch t {
	case MultiProducerMultiConsumer:
		return "MPMC"
	case SingleProducerMultiConsumer:
		return "SPMC"
	default:
		return "Unknown"
	}
}

// HeaderSize is the fixed, wire-exact ring header size in bytes.
const HeaderSize = 64

// Header is the wire-exact ring header: little-endian, aligned and padded
// to 64 bytes. Cells begin immediately after it.
//
//	offset  field            width
//	0       queue_type       1
//	1       is_initialized   1
//	2..8    reserved         6
//	8       element_size     8
//	16      mask             8
//	24      count            8  (atomic)
//	32..64  reserved         32
type Header struct {
	queueType     QueueType
	isInitialized uint8
	_reserved1    [6]byte
	elementSize   uint64
	mask          uint64
	count         uint64
	_reserved2    [32]byte
}

// QueueType returns the header's queue type.
func (h *Header) QueueType() QueueType { return h.queueType }

// IsInitialized reports whether the header carries a valid layout.
func (h *Header) IsInitialized() bool { return h.isInitialized == 1 }

// ElementSize returns the per-cell byte stride, including the version word.
func (h *Header) ElementSize() uint64 { return h.elementSize }

// Mask returns N-1, where N (a power of two) is the number of cells.
func (h *Header) Mask() uint64 { return h.mask }

// Len returns the number of cells, mask+1.
func (h *Header) Len() uint64 { return h.mask + 1 }

// Count loads the current publish count. Calling this from anywhere but
// the producer risks false sharing with the producer's own cache line.
func (h *Header) Count() uint64 {
	return atomic.LoadUint64(&h.count)
}

// position returns count & mask: the slot the given count addresses.
func (h *Header) position(count uint64) uint64 {
	return count & h.mask
}

// lap returns how many full rotations around the ring the given count
// represents, in version units: (count / (mask+1)) << 1.
func (h *Header) lap(count uint64) uint64 {
	return (count / (h.mask + 1)) << 1
}

// expectedVersion returns the version a consumer created at the given
// count must expect of the slot it will read next: lap(count) + 2. A
// fresh consumer's position is count&mask, which the ring has already
// written up to lap(count); it is waiting for the write that advances
// that slot one more lap, hence the +2.
func (h *Header) expectedVersion(count uint64) uint64 {
	return h.lap(count) + 2
}
