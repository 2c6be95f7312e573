// Package ring implements the seqlock-backed broadcast ring queue: a
// power-of-two array of seqlock cells plus an atomic monotonic publish
// count, with producer and consumer cursor abstractions on top (see
// producer.go, consumer.go).
package ring

import (
	"fmt"
	"math/bits"
	"unsafe"

	"go.uber.org/zap"

	"github.com/rishav/seqring/errs"
	"github.com/rishav/seqring/seqlock"
)

// Recorder receives the few counters worth exporting from a ring: total
// publishes, sped-past reads, and a consumer's lag behind the producer.
// internal/metrics implements this over Prometheus; the zero value
// (NopRecorder) discards everything.
type Recorder interface {
	Published()
	SpedPast()
	ConsumerLag(lag uint64)
}

// NopRecorder discards every recorded event. It is the default Recorder
// when none is configured.
type NopRecorder struct{}

func (NopRecorder) Published()          {}
func (NopRecorder) SpedPast()            {}
func (NopRecorder) ConsumerLag(_ uint64) {}

// Ring is a fixed-capacity broadcast ring of seqlock cells.
type Ring[T any] struct {
	header   *Header
	cells    []byte
	stride   uint64
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Ring at construction time.
type Option[T any] func(*Ring[T])

// WithLogger attaches a logger for recovery and verification events.
func WithLogger[T any](l *zap.Logger) Option[T] {
	return func(r *Ring[T]) { r.logger = l }
}

// WithRecorder attaches a metrics Recorder.
func WithRecorder[T any](rec Recorder) Option[T] {
	return func(r *Ring[T]) { r.recorder = rec }
}

func (r *Ring[T]) applyOptions(opts []Option[T]) {
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.recorder == nil {
		r.recorder = NopRecorder{}
	}
}

// SizeOf returns the total byte size of a ring of the given length (a
// power of two) holding T, including the header.
func SizeOf[T any](length uint64) uint64 {
	return HeaderSize + length*seqlock.Stride[T]()
}

// New creates a ring of the requested length (rounded up to a power of
// two) over freshly allocated, unshared memory.
func New[T any](length uint64, qt QueueType, opts ...Option[T]) (*Ring[T], error) {
	length = nextPowerOfTwo(length)
	buf := make([]byte, SizeOf[T](length))
	return FromUninitialized[T](buf, length, qt, opts...)
}

// FromUninitialized initializes a ring's header in place over buf, which
// must be at least SizeOf[T](length) bytes, and returns a Ring backed by
// it. length must already be a power of two.
func FromUninitialized[T any](buf []byte, length uint64, qt QueueType, opts ...Option[T]) (*Ring[T], error) {
	if length == 0 || length&(length-1) != 0 {
		return nil, fmt.Errorf("ring: length %d: %w", length, errs.ErrLengthNotPowerOfTwo)
	}
	stride := seqlock.Stride[T]()
	need := HeaderSize + length*stride
	if uint64(len(buf)) < need {
		return nil, fmt.Errorf("ring: buffer too small: have %d bytes, need %d: %w", len(buf), need, errs.ErrUnsupportedElementSize)
	}

	h := (*Header)(unsafe.Pointer(&buf[0]))
	h.queueType = qt
	h.mask = length - 1
	h.elementSize = stride
	h.count = 0
	h.isInitialized = 1

	rg := &Ring[T]{header: h, cells: buf[HeaderSize:need], stride: stride}
	rg.applyOptions(opts)
	return rg, nil
}

// FromInitialized attaches a ring to buf, whose header is already
// populated by a previous call to FromUninitialized (typically in another
// process sharing the same mapping). It returns errs.ErrUninitialized or
// errs.ErrIncompatibleLayout if buf's header doesn't describe a ring of T.
func FromInitialized[T any](buf []byte, opts ...Option[T]) (*Ring[T], error) {
	if uint64(len(buf)) < HeaderSize {
		return nil, fmt.Errorf("ring: buffer shorter than header: %w", errs.ErrUninitialized)
	}
	h := (*Header)(unsafe.Pointer(&buf[0]))
	if !h.IsInitialized() {
		return nil, errs.ErrUninitialized
	}
	stride := seqlock.Stride[T]()
	if h.elementSize != stride {
		return nil, fmt.Errorf("ring: header element size %d, want %d: %w", h.elementSize, stride, errs.ErrIncompatibleLayout)
	}
	need := HeaderSize + h.Len()*stride
	if uint64(len(buf)) < need {
		return nil, fmt.Errorf("ring: buffer shorter than header declares: %w", errs.ErrIncompatibleLayout)
	}

	rg := &Ring[T]{header: h, cells: buf[HeaderSize:need], stride: stride}
	rg.applyOptions(opts)
	return rg, nil
}

// Header returns the ring's header.
func (r *Ring[T]) Header() *Header { return r.header }

func (r *Ring[T]) cellPtr(pos uint64) unsafe.Pointer {
	return unsafe.Pointer(&r.cells[pos*r.stride])
}

// VersionAt inspects a cell's current version, used by recovery and by
// Verify.
func (r *Ring[T]) VersionAt(pos uint64) uint64 {
	return seqlock.RawVersion(r.cellPtr(pos))
}

// ReadAt attempts a versioned read of the cell at pos, delegating to the
// cell's ReadVersioned.
func (r *Ring[T]) ReadAt(pos uint64, expected uint64, dst *T) error {
	err := seqlock.RawReadVersioned(r.cellPtr(pos), dst, expected)
	if err == seqlock.ErrSpedPast {
		r.recorder.SpedPast()
	}
	return err
}

// reserveNext claims the next publish count for qt's reservation rule and
// returns the pre-increment ("reserved") count.
// reserveNext claims the next count with an atomic fetch-add in both
// queue types. For MultiProducerMultiConsumer this is the AcqRel
// fetch-add §4.3 describes - the winner of the race claims a unique slot.
// For SingleProducerMultiConsumer the source instead uses a non-atomic
// relaxed load-then-store, safe because only one goroutine ever calls it;
// Go has no relaxed-ordering atomic distinct from its sequentially
// consistent ones, so reusing the same fetch-add here avoids mixing a
// plain field access with a consumer's atomic Header.Count() load of the
// same word, at the cost of a redundant CAS the single producer never
// needed.
func (r *Ring[T]) reserveNext() uint64 {
	if r.header.queueType == Unknown {
		panic("ring: unknown queue type")
	}
	return atomicFetchAdd(&r.header.count, 1)
}

// publish writes src into the cell for count and returns count.
func (r *Ring[T]) publish(count uint64, src *T) uint64 {
	seqlock.RawWrite(r.cellPtr(r.header.position(count)), src)
	r.recorder.Published()
	return count
}

// publishFirst is the first-publish recovery path: in SPMC mode, if the
// cell about to be reused is still poisoned from a crashed producer, it
// is unpoisoned instead of written through the normal fast path; in MPMC
// mode the fetch-add reservation is self-healing and this is identical to
// a normal publish.
func (r *Ring[T]) publishFirst(src *T) uint64 {
	if r.header.queueType == MultiProducerMultiConsumer {
		return r.publish(r.reserveNext(), src)
	}

	pos := r.header.position(r.header.Count())
	if r.VersionAt(pos)&1 == 1 {
		r.logger.Warn("ring: recovering poisoned slot on first publish",
			zap.Uint64("position", pos))
		seqlock.RawWriteUnpoison(r.cellPtr(pos), src)
		r.recorder.Published()
		return r.header.Count()
	}
	return r.publish(r.reserveNext(), src)
}

// Verify walks every slot in order and panics if it finds more than one
// lap boundary, or any slot poisoned (odd version) while the ring is
// otherwise quiescent. It exists for diagnosing corruption, not for use on
// a hot path.
func (r *Ring[T]) Verify() {
	mask := r.header.mask
	prev := r.VersionAt(0)
	changes := 0
	for i := uint64(0); i <= mask; i++ {
		v := r.VersionAt(i)
		if v&1 == 1 {
			r.logger.Error("ring: odd version found during verify",
				zap.Uint64("position", i), zap.Uint64("version", v))
			panic(fmt.Sprintf("ring: odd version at %d: %d -> %d", i, prev, v))
		}
		if v != prev {
			changes++
			prev = v
		}
	}
	if changes > 1 {
		r.logger.Error("ring: multiple lap boundaries found during verify",
			zap.Int("boundaries", changes))
		panic(fmt.Sprintf("ring: %d lap boundaries, want at most 1", changes))
	}
}

// RoundUpLength rounds length up to the next power of two, the form New
// and FromUninitialized require. Callers resolving a length from a config
// file or flag should apply this before computing SizeOf.
func RoundUpLength(length uint64) uint64 {
	return nextPowerOfTwo(length)
}

func nextPowerOfTwo(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len64(v-1)
}
