package namespace

import "hash/fnv"

// Directory names are hashed into a 24-bit space; a fragment covers one
// aligned power-of-two slice of it.
const (
	fragHashBits = 24
	fragHashMask = (1 << fragHashBits) - 1
)

// Frag identifies one fragment of a directory's hashed namespace.
//
// The encoding packs the split depth into the high 8 bits and the covered
// range's leading hash bits into the low 24: a fragment with depth b covers
// every name whose 24-bit hash starts with the b bits of Value. Depth 0 is
// the whole directory. Callers treat fragments as opaque identifiers and
// re-derive correctness from hash coverage only, never from fragment counts.
type Frag uint32

// RootFrag covers the entire hash space (an unsplit directory).
const RootFrag Frag = 0

// MakeFrag builds a fragment at split depth bits covering the range whose
// leading bits are taken from value.
func MakeFrag(bits, value uint32) Frag {
	return Frag(bits<<fragHashBits | (value & mask(bits)))
}

func mask(bits uint32) uint32 {
	if bits >= fragHashBits {
		return fragHashMask
	}
	return (fragHashMask << (fragHashBits - bits)) & fragHashMask
}

// Bits returns the fragment's split depth.
func (f Frag) Bits() uint32 {
	return uint32(f) >> fragHashBits
}

// Mask returns the hash bits the fragment constrains.
func (f Frag) Mask() uint32 {
	return mask(f.Bits())
}

// Value returns the constrained leading hash bits.
func (f Frag) Value() uint32 {
	return uint32(f) & f.Mask()
}

// Contains reports whether the 24-bit hash falls inside the fragment.
func (f Frag) Contains(hash uint32) bool {
	return hash&f.Mask() == f.Value()
}

// IsLeftmost reports whether the fragment contains the start of the hash
// space. The listing engine injects "." and ".." only here.
func (f Frag) IsLeftmost() bool {
	return f.Value() == 0
}

// IsComplete reports whether the fragment's range extends to the end of the
// hash space, meaning no fragment follows it.
func (f Frag) IsComplete() bool {
	return f.Value() == f.Mask()
}

// Next returns a fragment identifier for the range immediately after this
// one, at the same split depth. The result is only meaningful when
// !IsComplete(); the caller resolves it against the directory's current
// fragment tree with ChooseFrag before use.
func (f Frag) Next() Frag {
	width := uint32(1) << (fragHashBits - f.Bits())
	return MakeFrag(f.Bits(), f.Value()+width)
}

// ChooseFrag maps a caller-supplied fragment identifier to the fragment that
// currently covers its hash range in the directory's cached fragment tree.
//
// Directories split and merge fragments over time, so a cursor's fragment
// may no longer exist verbatim; coverage of its starting hash is what
// matters. The mapping reads only cached metadata and is monotonic: the same
// input returns the same fragment until the directory's metadata changes.
// A directory with no fragment tree is a single root fragment.
func ChooseFrag(meta *ObjectMeta, f Frag) Frag {
	if meta == nil || len(meta.Frags) == 0 {
		return RootFrag
	}
	h := f.Value()
	for _, leaf := range meta.Frags {
		if leaf.Contains(h) {
			return leaf
		}
	}
	// A fragment tree that fails to cover the hash space is malformed;
	// fall back to listing the directory as a single fragment.
	return RootFrag
}

// HashName maps a directory entry name into the 24-bit fragment hash space.
func HashName(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32() & fragHashMask
}
