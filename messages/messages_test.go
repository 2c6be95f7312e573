package messages

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestNewHeaderAssignsID(t *testing.T) {
	h := NewHeader(60, 1)
	if h.ID.Compare(ulid.ULID{}) == 0 {
		t.Fatalf("expected non-zero ULID, got zero")
	}
	if h.Length != 60 || h.Type != 1 {
		t.Fatalf("unexpected length/type: %+v", h)
	}
}

func TestWithCorrelationLinksParent(t *testing.T) {
	parent := NewHeader(8, 0)
	child := NewHeader(8, 0).WithCorrelation(parent)
	if child.CorrelationID != parent.ID {
		t.Fatalf("expected correlation id %v, got %v", parent.ID, child.CorrelationID)
	}
}
