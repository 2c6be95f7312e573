// Package messages defines fixed-width byte-array payload types, sized to
// match the monomorphized message structs of the source implementation,
// plus a small header carried alongside them by the CLI's demo producer.
// Their only purpose is to give the generic Cell/Vector/Ring containers
// concrete instantiations to exercise without every caller having to
// declare its own [N]byte array type.
package messages

import "github.com/oklog/ulid/v2"

// Message8 through Message1020 mirror the source crate's monomorphized
// element sizes. Each is a plain fixed-size byte array wrapped in a
// struct, satisfying the pointer-free, fixed-layout constraint seqlock.Cell
// and the raw cell helpers require.
type (
	Message8    struct{ Data [8]byte }
	Message32   struct{ Data [32]byte }
	Message60   struct{ Data [60]byte }
	Message124  struct{ Data [124]byte }
	Message252  struct{ Data [252]byte }
	Message508  struct{ Data [508]byte }
	Message1020 struct{ Data [1020]byte }
)

// MessageHeader carries routing and correlation metadata alongside a
// payload. ID and CorrelationID are ULIDs rather than bare integers so
// they stay sortable and roughly monotonic even when minted by several
// concurrent producers.
type MessageHeader struct {
	ID            ulid.ULID
	CorrelationID ulid.ULID
	Length        uint16
	Type          uint16
}

// NewHeader mints a header with a fresh ID, no correlation parent, and the
// given length/type.
func NewHeader(length, msgType uint16) MessageHeader {
	return MessageHeader{
		ID:     ulid.Make(),
		Length: length,
		Type:   msgType,
	}
}

// WithCorrelation returns a copy of h carrying parent's ID as the
// correlation ID, linking a reply or derived message back to it.
func (h MessageHeader) WithCorrelation(parent MessageHeader) MessageHeader {
	h.CorrelationID = parent.ID
	return h
}
