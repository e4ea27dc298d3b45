package namespace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCursorRoundTrip verifies that packing and unpacking a cursor preserves
// fragment and offset across the full 32-bit range of each half.
func TestCursorRoundTrip(t *testing.T) {
	frags := []Frag{
		RootFrag,
		MakeFrag(1, 0),
		MakeFrag(1, 1<<23),
		MakeFrag(2, 3<<22),
		MakeFrag(24, 0xffffff),
		Frag(0xffffffff),
	}
	offsets := []uint32{0, 1, 2, 255, 1 << 16, 0xfffffffe, 0xffffffff}

	for _, f := range frags {
		for _, off := range offsets {
			c := MakeCursor(f, off)
			assert.Equal(t, f, c.Frag(), "fragment must survive the round trip")
			assert.Equal(t, off, c.Offset(), "offset must survive the round trip")
		}
	}
}

// TestCursorStart verifies the zero cursor decodes to the root fragment at
// offset zero.
func TestCursorStart(t *testing.T) {
	assert.Equal(t, RootFrag, CursorStart.Frag())
	assert.Equal(t, uint32(0), CursorStart.Offset())
}

// TestFragCoverage verifies mask, value, and containment for split
// fragments.
func TestFragCoverage(t *testing.T) {
	// Depth 1 splits the space in half.
	left := MakeFrag(1, 0)
	right := MakeFrag(1, 1<<23)

	assert.True(t, left.IsLeftmost())
	assert.False(t, left.IsComplete())
	assert.False(t, right.IsLeftmost())
	assert.True(t, right.IsComplete())

	assert.True(t, left.Contains(0))
	assert.True(t, left.Contains(1<<23-1))
	assert.False(t, left.Contains(1<<23))
	assert.True(t, right.Contains(1<<23))
	assert.True(t, right.Contains(fragHashMask))

	// The root fragment covers everything and is both ends at once.
	assert.True(t, RootFrag.IsLeftmost())
	assert.True(t, RootFrag.IsComplete())
	assert.True(t, RootFrag.Contains(0))
	assert.True(t, RootFrag.Contains(fragHashMask))
}

// TestFragNext verifies that walking Next from the leftmost fragment of a
// uniform split visits each slice in order and stops at the complete one.
func TestFragNext(t *testing.T) {
	const bits = 2
	f := MakeFrag(bits, 0)
	seen := 0
	for {
		seen++
		if f.IsComplete() {
			break
		}
		f = f.Next()
	}
	assert.Equal(t, 1<<bits, seen, "a depth-%d split has %d fragments", bits, 1<<bits)
}

// TestChooseFrag verifies resolution of stale fragment identifiers against a
// directory's current fragment tree.
func TestChooseFrag(t *testing.T) {
	dir := &ObjectMeta{
		ID:      10,
		Type:    FileTypeDirectory,
		Version: 1,
		Frags: []Frag{
			MakeFrag(2, 0),
			MakeFrag(2, 1<<22),
			MakeFrag(1, 1<<23),
		},
	}

	t.Run("exact leaf", func(t *testing.T) {
		got := ChooseFrag(dir, MakeFrag(2, 1<<22))
		assert.Equal(t, MakeFrag(2, 1<<22), got)
	})

	t.Run("stale deeper split maps to covering leaf", func(t *testing.T) {
		// A depth-3 identifier from before a merge resolves to the depth-1
		// leaf that covers its range now.
		got := ChooseFrag(dir, MakeFrag(3, 5<<21))
		assert.Equal(t, MakeFrag(1, 1<<23), got)
	})

	t.Run("no fragment tree means root", func(t *testing.T) {
		plain := &ObjectMeta{ID: 11, Type: FileTypeDirectory}
		assert.Equal(t, RootFrag, ChooseFrag(plain, MakeFrag(4, 0)))
		assert.Equal(t, RootFrag, ChooseFrag(nil, RootFrag))
	})

	t.Run("monotonic before any mutation", func(t *testing.T) {
		in := MakeFrag(3, 3<<21)
		first := ChooseFrag(dir, in)
		for i := 0; i < 8; i++ {
			assert.Equal(t, first, ChooseFrag(dir, in))
		}
	})
}

// TestChooseFragCoversWholeSpace verifies every hash value resolves to a
// leaf that actually contains it.
func TestChooseFragCoversWholeSpace(t *testing.T) {
	dir := &ObjectMeta{
		Type: FileTypeDirectory,
		Frags: []Frag{
			MakeFrag(1, 0),
			MakeFrag(2, 1<<23),
			MakeFrag(2, 3<<22),
		},
	}

	for h := uint32(0); h <= fragHashMask; h += 4099 {
		leaf := ChooseFrag(dir, MakeFrag(24, h))
		require.True(t, leaf.Contains(h), "hash %#x resolved to non-covering leaf %#x", h, leaf)
	}
}

// TestHashName verifies the name hash stays inside the fragment hash space
// and is stable.
func TestHashName(t *testing.T) {
	names := []string{"", "a", "readme.txt", "some/long-ish name with spaces", "ümlaut"}
	for _, name := range names {
		h := HashName(name)
		assert.LessOrEqual(t, h, uint32(fragHashMask))
		assert.Equal(t, h, HashName(name), "hash must be deterministic")
	}
}

// TestObjectMetaClone verifies clones are independent of the original.
func TestObjectMetaClone(t *testing.T) {
	orig := &ObjectMeta{
		ID:          42,
		Type:        FileTypeDirectory,
		Version:     7,
		LeaseExpiry: time.Now().Add(time.Minute),
		Frags:       []Frag{MakeFrag(1, 0), MakeFrag(1, 1<<23)},
	}

	c := orig.Clone()
	require.NotNil(t, c)
	c.Version = 8
	c.Frags[0] = RootFrag

	assert.Equal(t, uint64(7), orig.Version)
	assert.Equal(t, MakeFrag(1, 0), orig.Frags[0])
}
