package namespace

// Cursor is an opaque 64-bit directory listing position: the fragment
// identifier in the high 32 bits, the offset within that fragment in the low
// 32. It is totally ordered within one fragment and resets to offset 0 at
// the start of each new fragment.
//
// Callers persist cursors across calls but perform no arithmetic on them
// beyond equality and seek-to-zero.
type Cursor uint64

// CursorStart is the beginning of a listing.
const CursorStart Cursor = 0

// MakeCursor packs a fragment and an intra-fragment offset into a cursor.
// Pure bit packing; no normalization.
func MakeCursor(f Frag, offset uint32) Cursor {
	return Cursor(uint64(f)<<32 | uint64(offset))
}

// Frag extracts the fragment identifier.
func (c Cursor) Frag() Frag {
	return Frag(c >> 32)
}

// Offset extracts the intra-fragment offset.
func (c Cursor) Offset() uint32 {
	return uint32(c)
}
