package vector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rishav/seqring/seqlock"
)

type record60 struct {
	data [60]byte
}

func TestSizeOf(t *testing.T) {
	stride := seqlock.Stride[record60]()
	if stride%64 != 0 {
		t.Fatalf("stride %d is not a multiple of 64", stride)
	}
	if got, want := SizeOf[record60](16), HeaderSize+16*stride; got != want {
		t.Fatalf("SizeOf = %d, want %d", got, want)
	}
}

func TestWriteReadIndependentPositions(t *testing.T) {
	v := New[record60](8)

	for i := uint64(0); i < 8; i++ {
		r := record60{}
		r.data[0] = byte(i)
		v.Write(i, &r)
	}

	for i := uint64(0); i < 8; i++ {
		var out record60
		v.Read(i, &out)
		if out.data[0] != byte(i) {
			t.Fatalf("position %d = %d, want %d", i, out.data[0], i)
		}
	}
}

func TestIterateOrder(t *testing.T) {
	v := New[record60](4)
	for i := uint64(0); i < 4; i++ {
		r := record60{}
		r.data[0] = byte(i * 10)
		v.Write(i, &r)
	}

	var seen []uint64
	v.Iterate(func(pos uint64, val record60) {
		seen = append(seen, pos)
		if val.data[0] != byte(pos*10) {
			t.Errorf("pos %d: got %d, want %d", pos, val.data[0], pos*10)
		}
	})
	want := []uint64{0, 1, 2, 3}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("iteration order mismatch (-want +got):\n%s", diff)
	}
}

func TestFromInitializedRejectsWrongStride(t *testing.T) {
	buf := make([]byte, SizeOf[record60](4))
	if _, err := FromUninitialized[record60](buf, 4); err != nil {
		t.Fatalf("FromUninitialized: %v", err)
	}

	type other struct{ data [124]byte }
	if _, err := FromInitialized[other](buf); err == nil {
		t.Fatalf("expected an error attaching a mismatched element type")
	}
}

func TestWriteMultiConcurrentWriters(t *testing.T) {
	v := New[record60](1)
	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(id byte) {
			for i := 0; i < 1000; i++ {
				r := record60{}
				r.data[0] = id
				v.WriteMulti(0, &r)
			}
			done <- struct{}{}
		}(byte(w))
	}
	for w := 0; w < 4; w++ {
		<-done
	}
	var out record60
	v.Read(0, &out)
	if out.data[0] >= 4 {
		t.Fatalf("unexpected writer id in final read: %d", out.data[0])
	}
}
