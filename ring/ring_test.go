package ring

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/rishav/seqring/seqlock"
)

type record60 struct{ data [60]byte }

func u64(v uint64) record60 {
	var r record60
	for i := 0; i < 8; i++ {
		r.data[i] = byte(v >> (8 * i))
	}
	return r
}

func (r record60) u64() uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(r.data[i]) << (8 * i)
	}
	return v
}

func TestHeaderSizeIsExactlyOneCacheLine(t *testing.T) {
	require.EqualValues(t, seqlock.CacheLine, unsafe.Sizeof(Header{}))
}

func TestConsumerFitsOneCacheLine(t *testing.T) {
	require.EqualValues(t, seqlock.CacheLine, unsafe.Sizeof(Consumer[record60]{}))
}

func TestSizeOfAccountsForHeaderAndStride(t *testing.T) {
	got := SizeOf[record60](4)
	want := HeaderSize + 4*seqlock.Stride[record60]()
	require.Equal(t, want, got)
}

// S1: a single publish is visible to a freshly created consumer.
func TestSinglePublishSingleConsume(t *testing.T) {
	r, err := New[record60](8, MultiProducerMultiConsumer)
	require.NoError(t, err)

	p := NewProducer(r)
	c := NewConsumer(r)

	val := u64(42)
	p.Publish(&val)

	var out record60
	c.Consume(&out)
	require.Equal(t, uint64(42), out.u64())
}

// S2: filling the ring exactly once and draining it returns every value
// in publish order.
func TestFillAndDrainPreservesOrder(t *testing.T) {
	const length = 16
	r, err := New[record60](length, SingleProducerMultiConsumer)
	require.NoError(t, err)

	p := NewProducer(r)
	c := NewConsumer(r)

	for i := uint64(0); i < length; i++ {
		v := u64(i)
		p.Publish(&v)
	}
	for i := uint64(0); i < length; i++ {
		var out record60
		c.Consume(&out)
		require.Equal(t, i, out.u64())
	}
}

// S3: a producer that laps the ring once before the consumer reads leaves
// skip-ahead recovery landing on the oldest value still present.
func TestLapOnceThenSkipAheadRecovers(t *testing.T) {
	const length = 4
	r, err := New[record60](length, SingleProducerMultiConsumer)
	require.NoError(t, err)

	p := NewProducer(r)
	c := NewConsumer(r)

	// Publish 2x the ring length: the consumer, created before any of
	// this, is now a full lap behind every remaining slot, so its first
	// TryConsume reports SpedPast. RecoverSkipAhead walks one full lap
	// back to slot 0 expecting the current version, and the next
	// TryConsume reads the oldest value still present. The loop is
	// bounded so a broken recovery fails the test instead of hanging it.
	for i := uint64(0); i < 2*length; i++ {
		v := u64(i)
		p.Publish(&v)
	}

	var out record60
	var readErr error
	for attempt := 0; attempt < length+1; attempt++ {
		readErr = c.TryConsume(&out)
		if readErr == seqlock.ErrSpedPast {
			c.RecoverSkipAhead()
			continue
		}
		break
	}
	require.NoError(t, readErr)
	require.GreaterOrEqual(t, out.u64(), uint64(length))
}

// S4: RecoverDumb re-synchronizes the version without repositioning,
// which can itself observe Empty or SpedPast on the very next read - it
// never panics or corrupts the cursor.
func TestRecoverDumbNeverPanics(t *testing.T) {
	const length = 4
	r, err := New[record60](length, SingleProducerMultiConsumer)
	require.NoError(t, err)

	p := NewProducer(r)
	c := NewConsumer(r)

	for i := uint64(0); i < 2*length; i++ {
		v := u64(i)
		p.Publish(&v)
	}

	var out record60
	err = nil
	for {
		e := c.TryConsume(&out)
		if e == nil {
			break
		}
		if e == seqlock.ErrSpedPast {
			c.RecoverDumb()
			continue
		}
		if e == seqlock.ErrEmpty {
			break
		}
	}
}

// S5: MPMC fan-in/fan-out - several producers and several consumers share
// one ring; no cursor reads any published value more than once, so the
// sum each consumer accumulates (skipping any it was lapped past) never
// exceeds the true total.
func TestMPMCFanInFanOut(t *testing.T) {
	const (
		length      = 1024
		numWriters  = 8
		numReaders  = 8
		perWriter   = 2000
	)
	r, err := New[record60](length, MultiProducerMultiConsumer)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(numWriters)
	for w := 0; w < numWriters; w++ {
		go func(id int) {
			defer wg.Done()
			p := NewProducer(r)
			for i := 0; i < perWriter; i++ {
				v := u64(uint64(id*perWriter + i))
				p.Publish(&v)
			}
		}(w)
	}

	readers := make([]*Consumer[record60], numReaders)
	for i := range readers {
		readers[i] = NewConsumer(r)
	}

	wg.Wait()

	total := uint64(0)
	for id := 0; id < numWriters; id++ {
		for i := 0; i < perWriter; i++ {
			total += uint64(id*perWriter + i)
		}
	}

	for _, c := range readers {
		var sum uint64
		var out record60
		for i := 0; i < numWriters*perWriter; i++ {
			err := c.TryConsume(&out)
			switch err {
			case nil:
				sum += out.u64()
			case seqlock.ErrSpedPast:
				c.RecoverSkipAhead()
			default:
				// ErrEmpty: nothing left to read from this cursor.
			}
		}
		require.LessOrEqual(t, sum, total)
	}
}

// S6: WriteUnpoison recovers a cell left at an odd version, as if a
// writer had crashed mid-write, and the next read observes the new value.
func TestWriteUnpoisonRecoversPoisonedFirstSlot(t *testing.T) {
	r, err := New[record60](4, SingleProducerMultiConsumer)
	require.NoError(t, err)

	// Simulate a crash mid-first-publish: poison slot 0 directly.
	cell := r.cellPtr(0)
	versionPtr := (*uint64)(cell)
	*versionPtr = 1

	p := NewProducer(r)
	v := u64(7)
	p.Publish(&v)

	c := NewConsumer(r)
	var out record60
	c.Consume(&out)
	require.Equal(t, uint64(7), out.u64())
}

func TestVerifyPassesOnFreshRing(t *testing.T) {
	r, err := New[record60](8, MultiProducerMultiConsumer)
	require.NoError(t, err)
	r.Verify()
}

func TestVerifyPassesAfterPartialFill(t *testing.T) {
	r, err := New[record60](8, MultiProducerMultiConsumer)
	require.NoError(t, err)
	p := NewProducer(r)
	for i := uint64(0); i < 3; i++ {
		v := u64(i)
		p.Publish(&v)
	}
	r.Verify()
}
