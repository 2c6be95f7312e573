package seqlock

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// Spin yields the processor between busy-wait polls. Go has no portable
// pause/yield intrinsic exposed to user code, so - like this corpus's own
// disruptor event processor spin loop - we settle for runtime.Gosched,
// which at least lets other goroutines make progress on the same OS
// thread while we wait.
func Spin() {
	runtime.Gosched()
}

// Stride returns the cache-line-padded byte size of one raw seqlock cell
// holding a T: an 8-byte version word followed by sizeof(T) payload bytes,
// rounded up to the next multiple of CacheLine. Vector and Ring lay their
// cells out at this stride inside a single contiguous byte buffer, which
// is how this package achieves the "payload smaller than a line still
// occupies a full line" invariant that a standalone Cell[T] cannot (see
// the doc comment on Cell).
//
// T must have alignment no greater than 8 bytes - true of every fixed byte
// array payload this repository defines (see package messages) - since the
// payload is addressed at a fixed offset of 8 within the cell regardless
// of T's natural alignment.
func Stride[T any]() uint64 {
	var zero T
	return roundUp(8+uint64(unsafe.Sizeof(zero)), CacheLine)
}

func roundUp(n, multiple uint64) uint64 {
	if multiple == 0 {
		return n
	}
	rem := n % multiple
	if rem == 0 {
		return n
	}
	return n + (multiple - rem)
}

// RawVersion loads the version word at the start of a raw cell.
func RawVersion(cell unsafe.Pointer) uint64 {
	return atomic.LoadUint64((*uint64)(cell))
}

func rawPayload[T any](cell unsafe.Pointer) *T {
	return (*T)(unsafe.Add(cell, 8))
}

// RawWrite is the single-writer fast path write, operating directly on a
// raw cell embedded in a byte buffer at the given pointer (see Cell.Write).
func RawWrite[T any](cell unsafe.Pointer, val *T) {
	vp := (*uint64)(cell)
	v := atomic.LoadUint64(vp)
	atomic.StoreUint64(vp, v+1)
	*rawPayload[T](cell) = *val
	atomic.StoreUint64(vp, v+2)
}

// RawWriteMulti is the multi-writer write, operating directly on a raw
// cell (see Cell.WriteMulti).
func RawWriteMulti[T any](cell unsafe.Pointer, val *T) {
	vp := (*uint64)(cell)
	v := fetchOr(vp, 1)
	for v&1 == 1 {
		v = fetchOr(vp, 1)
	}
	*rawPayload[T](cell) = *val
	atomic.StoreUint64(vp, v+2)
}

// RawWriteUnpoison recovers a raw cell left at an odd version (see
// Cell.WriteUnpoison).
func RawWriteUnpoison[T any](cell unsafe.Pointer, val *T) {
	vp := (*uint64)(cell)
	v := atomic.LoadUint64(vp)
	atomic.StoreUint64(vp, v+(v-1)&1)
	*rawPayload[T](cell) = *val
	atomic.StoreUint64(vp, v+1)
}

// RawReadVersioned is ReadVersioned operating directly on a raw cell (see
// Cell.ReadVersioned).
func RawReadVersioned[T any](cell unsafe.Pointer, dst *T, expected uint64) error {
	vp := (*uint64)(cell)
	v1 := atomic.LoadUint64(vp)
	if v1 < expected {
		return ErrEmpty
	}
	*dst = *rawPayload[T](cell)
	v2 := atomic.LoadUint64(vp)
	if v2 == expected {
		return nil
	}
	return ErrSpedPast
}

// RawReadLatest is ReadLatest operating directly on a raw cell (see
// Cell.ReadLatest).
func RawReadLatest[T any](cell unsafe.Pointer, dst *T) {
	vp := (*uint64)(cell)
	for {
		v1 := atomic.LoadUint64(vp)
		*dst = *rawPayload[T](cell)
		v2 := atomic.LoadUint64(vp)
		if v1 == v2 && v1&1 == 0 {
			return
		}
		Spin()
	}
}
