// Package vector implements the seqlock-backed random-access container:
// a flat array of seqlock cells addressed by raw index, with no publish
// count and no ordering guarantee between positions.
package vector

import (
	"fmt"
	"unsafe"

	"github.com/rishav/seqring/errs"
	"github.com/rishav/seqring/seqlock"
)

// HeaderSize is the fixed 16-byte vector header: {element_size, length}.
const HeaderSize = 16

// Header is the wire-exact vector header.
type Header struct {
	ElementSize uint64
	Length      uint64
}

// Vector is a fixed-length array of seqlock cells. Write and WriteMulti
// never block; Read always returns the latest published value at a
// position, so a concurrent writer may make an iteration observe a newer
// value at index i+1 than the one it observed at index i.
type Vector[T any] struct {
	header *Header
	cells  []byte
	stride uint64
}

// SizeOf returns the total byte size of a vector of length elements
// holding T, including the header.
func SizeOf[T any](length uint64) uint64 {
	return HeaderSize + length*seqlock.Stride[T]()
}

// New creates a vector of the given length over freshly allocated,
// zeroed memory. It is never shared with another process.
func New[T any](length uint64) *Vector[T] {
	buf := make([]byte, SizeOf[T](length))
	v, err := FromUninitialized[T](buf, length)
	if err != nil {
		// SizeOf's own buffer is always large enough and length is
		// caller-controlled, so this can only happen if T's stride
		// doesn't fit in the space SizeOf computed for it, which would
		// be a bug in SizeOf itself.
		panic(fmt.Sprintf("vector: New: %v", err))
	}
	return v
}

// FromUninitialized initializes a vector's header in place over buf,
// which must be at least SizeOf[T](length) bytes, and returns a Vector
// backed by it. buf is typically freshly allocated or mapped memory.
func FromUninitialized[T any](buf []byte, length uint64) (*Vector[T], error) {
	stride := seqlock.Stride[T]()
	need := HeaderSize + length*stride
	if uint64(len(buf)) < need {
		return nil, fmt.Errorf("vector: buffer too small: have %d bytes, need %d: %w", len(buf), need, errs.ErrUnsupportedElementSize)
	}

	h := (*Header)(unsafe.Pointer(&buf[0]))
	h.ElementSize = stride
	h.Length = length

	return &Vector[T]{header: h, cells: buf[HeaderSize:need], stride: stride}, nil
}

// FromInitialized attaches a vector to buf, whose header is already
// populated (for instance, by another process that created the backing
// shared-memory file). It returns errs.ErrIncompatibleLayout if the
// header's element size doesn't match T's stride.
func FromInitialized[T any](buf []byte) (*Vector[T], error) {
	if uint64(len(buf)) < HeaderSize {
		return nil, fmt.Errorf("vector: buffer shorter than header: %w", errs.ErrUninitialized)
	}
	h := (*Header)(unsafe.Pointer(&buf[0]))
	stride := seqlock.Stride[T]()
	if h.ElementSize != stride {
		return nil, fmt.Errorf("vector: header element size %d, want %d: %w", h.ElementSize, stride, errs.ErrIncompatibleLayout)
	}
	need := HeaderSize + h.Length*stride
	if uint64(len(buf)) < need {
		return nil, fmt.Errorf("vector: buffer shorter than header declares: %w", errs.ErrIncompatibleLayout)
	}
	return &Vector[T]{header: h, cells: buf[HeaderSize:need], stride: stride}, nil
}

// Len returns the vector's fixed length.
func (v *Vector[T]) Len() uint64 {
	return v.header.Length
}

func (v *Vector[T]) cellPtr(pos uint64) unsafe.Pointer {
	return unsafe.Pointer(&v.cells[pos*v.stride])
}

// Write stores src at pos using the single-writer fast path.
func (v *Vector[T]) Write(pos uint64, src *T) {
	seqlock.RawWrite(v.cellPtr(pos), src)
}

// WriteMulti stores src at pos, safe for multiple concurrent writers to
// the same position.
func (v *Vector[T]) WriteMulti(pos uint64, src *T) {
	seqlock.RawWriteMulti(v.cellPtr(pos), src)
}

// Read copies the latest published value at pos into dst, spinning until
// it observes a torn-free, quiescent cell.
func (v *Vector[T]) Read(pos uint64, dst *T) {
	seqlock.RawReadLatest(v.cellPtr(pos), dst)
}

// Iterate calls fn with each index's latest value in index order. Because
// each read is a fresh ReadLatest, a concurrent writer may cause fn to see
// a newer value at i+1 than the one it saw at i.
func (v *Vector[T]) Iterate(fn func(pos uint64, val T)) {
	var out T
	for i := uint64(0); i < v.Len(); i++ {
		v.Read(i, &out)
		fn(i, out)
	}
}
