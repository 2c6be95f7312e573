package ring

import "github.com/rishav/seqring/seqlock"

// Consumer iterates a Ring from the point it was created, never seeing
// values published before that point. It is owned and mutated by exactly
// one goroutine at a time; any number of Consumers may coexist, in one
// process or across processes sharing the same mapping.
//
// The struct is laid out to fit in exactly one cache line (64 bytes):
// three machine words plus a pointer, padded out the rest of the line.
type Consumer[T any] struct {
	position        uint64
	expectedVersion uint64
	mask            uint64
	ring            *Ring[T]
	_               [32]byte
}

// NewConsumer creates a consumer at the ring's current logical tail.
func NewConsumer[T any](r *Ring[T]) *Consumer[T] {
	count := r.header.Count()
	return &Consumer[T]{
		position:        r.header.position(count),
		expectedVersion: r.header.expectedVersion(count),
		mask:            r.header.mask,
		ring:            r,
	}
}

// Position returns the slot this consumer will read next.
func (c *Consumer[T]) Position() uint64 { return c.position }

// ExpectedVersion returns the version this consumer expects of its
// current slot.
func (c *Consumer[T]) ExpectedVersion() uint64 { return c.expectedVersion }

func (c *Consumer[T]) advance() {
	c.position = (c.position + 1) & c.mask
	if c.position == 0 {
		c.expectedVersion += 2
	}
}

// TryConsume attempts a single, non-blocking read.
//
//   - nil: dst holds the value; the cursor has advanced.
//   - seqlock.ErrEmpty: nothing changed; the slot hasn't been published
//     for this lap yet.
//   - seqlock.ErrSpedPast: nothing changed; the producer has lapped this
//     consumer. The caller must run RecoverSkipAhead or RecoverDumb
//     before consuming again.
func (c *Consumer[T]) TryConsume(dst *T) error {
	if err := c.ring.ReadAt(c.position, c.expectedVersion, dst); err != nil {
		return err
	}
	c.advance()
	c.ring.recorder.ConsumerLag(c.lag())
	return nil
}

// Consume blocks until a value is available, busy-spinning on
// seqlock.ErrEmpty and running skip-ahead recovery on
// seqlock.ErrSpedPast.
func (c *Consumer[T]) Consume(dst *T) {
	for {
		switch err := c.TryConsume(dst); err {
		case nil:
			return
		case seqlock.ErrEmpty:
			seqlock.Spin()
		case seqlock.ErrSpedPast:
			c.RecoverSkipAhead()
		default:
			panic("ring: unreachable read error")
		}
	}
}

// RecoverSkipAhead re-synchronizes the cursor to the oldest still-valid
// cell after being lapped: it advances position (bumping expectedVersion
// at each wrap) until the inspected slot's version no longer exceeds what
// the cursor expected, and the next read resumes from that slot. This is
// the preferred recovery policy - it lands the consumer on the oldest
// value it can still validly read.
func (c *Consumer[T]) RecoverSkipAhead() {
	for c.ring.VersionAt(c.position) > c.expectedVersion {
		c.advance()
	}
}

// RecoverDumb advances expectedVersion by one lap without repositioning,
// accepting that the very next read may itself turn out to be stale. It
// is cheaper than RecoverSkipAhead but does not re-synchronize position.
func (c *Consumer[T]) RecoverDumb() {
	c.expectedVersion += 2
}

// lag estimates how many published counts this consumer is behind the
// ring's producer(s), for metrics only - it is not used by any recovery
// or correctness path.
func (c *Consumer[T]) lag() uint64 {
	lapNumber := (c.expectedVersion - 2) / 2
	seq := lapNumber*(c.mask+1) + c.position
	count := c.ring.header.Count()
	if count <= seq {
		return 0
	}
	return count - seq
}
