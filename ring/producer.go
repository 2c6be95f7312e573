package ring

// Producer publishes into a Ring. It is owned and mutated by exactly one
// goroutine at a time; any number of Producers may exist over the same
// Ring (for MultiProducerMultiConsumer rings).
type Producer[T any] struct {
	producedFirst bool
	ring          *Ring[T]
}

// NewProducer returns a Producer in the "not yet published" state.
func NewProducer[T any](r *Ring[T]) *Producer[T] {
	return &Producer[T]{ring: r}
}

// Publish writes src into the ring and returns the count it was
// published under. The first call goes through first-publish recovery
// (see Ring.publishFirst); every subsequent call takes the plain fast
// path. The returned count is purely informational - callers may ignore
// it.
func (p *Producer[T]) Publish(src *T) uint64 {
	if !p.producedFirst {
		p.producedFirst = true
		return p.ring.publishFirst(src)
	}
	return p.ring.publish(p.ring.reserveNext(), src)
}
