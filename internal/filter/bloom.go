package filter

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/flashcore/prusdb/internal/digest"
)

// Bloom is the legacy approximate-membership filter, kept for segments
// written before XOR8 became the default. It uses enhanced double hashing
// over the two halves of blake3(key) rather than the bits-and-blooms
// library's own baked-in hash, because the filter block's bit layout on
// disk is defined by that exact scheme (see DESIGN.md).
type Bloom struct {
	bits *bitset.BitSet
	k    uint32
}

// NewBloom allocates an empty Bloom filter with the given bit-array size
// and hash count (k is clamped to at least 1).
func NewBloom(bits uint32, k uint32) *Bloom {
	if k < 1 {
		k = 1
	}
	return &Bloom{bits: bitset.New(uint(bits)), k: k}
}

// BloomFromBits reconstructs a Bloom filter from a previously serialized
// bit array and hash count.
func BloomFromBits(k uint32, raw []byte) *Bloom {
	bs := bitset.New(uint(len(raw)) * 8)
	for byteIdx, b := range raw {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				bs.Set(uint(byteIdx)*8 + uint(bit))
			}
		}
	}
	if k < 1 {
		k = 1
	}
	return &Bloom{bits: bs, k: k}
}

// K returns the configured hash count.
func (b *Bloom) K() uint32 { return b.k }

// Bytes returns the bit array packed little-endian, one bit per position,
// suitable for the filter block's [blen]byte payload.
func (b *Bloom) Bytes() []byte {
	nbits := b.bits.Len()
	out := make([]byte, (nbits+7)/8)
	for i := uint(0); i < nbits; i++ {
		if b.bits.Test(i) {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func (b *Bloom) bitIndexes(key []byte) []uint {
	nbits := b.bits.Len()
	if nbits == 0 {
		return nil
	}
	h1, h2 := digest.Halves(key)
	idxs := make([]uint, b.k)
	for i := uint32(0); i < b.k; i++ {
		idxs[i] = uint((h1 + uint64(i)*h2) % uint64(nbits))
	}
	return idxs
}

// Add sets the k bits enhanced-double-hashing selects for key.
func (b *Bloom) Add(key []byte) {
	for _, idx := range b.bitIndexes(key) {
		b.bits.Set(idx)
	}
}

// Contains tests all k bits; a single unset bit means definitely absent.
func (b *Bloom) Contains(key []byte) bool {
	idxs := b.bitIndexes(key)
	if idxs == nil {
		return true
	}
	for _, idx := range idxs {
		if !b.bits.Test(idx) {
			return false
		}
	}
	return true
}
