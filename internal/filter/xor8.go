// Package filter implements the two approximate-membership filter layouts a
// segment's filter block may hold: the default XOR8 filter and the legacy
// Bloom filter, selected on read by a leading tag (see TagXOR8).
package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/FastFilter/xorfilter"
)

// TagXOR8 is the little-endian u32 tag ("XOR8" ASCII) that marks a filter
// block as the XOR8 layout. Any other leading u32 is the legacy Bloom's
// hash count k.
const TagXOR8 uint32 = 0x384F5258

// Xor8 wraps github.com/FastFilter/xorfilter's construction over a set of
// primary hashes, plus the canonical byte encoding the segment format
// persists.
type Xor8 struct {
	filter *xorfilter.Xor8
}

// BuildXor8 constructs an XOR8 filter over the deduplicated, sorted set of
// primary hashes of a segment's live entries.
func BuildXor8(sortedUniqueHashes []uint64) (*Xor8, error) {
	f, err := xorfilter.Populate(sortedUniqueHashes)
	if err != nil {
		return nil, fmt.Errorf("build xor8 filter: %w", err)
	}
	return &Xor8{filter: f}, nil
}

// Contains reports whether digest is (probably) a member.
func (x *Xor8) Contains(digest uint64) bool {
	if x == nil || x.filter == nil {
		return true // unbuilt filter never rejects
	}
	return x.filter.Contains(digest)
}

// ToBytes serializes the filter to its canonical on-disk representation:
// seed(8) | block_length(4) | fingerprint_count(4) | fingerprints.
func (x *Xor8) ToBytes() []byte {
	n := len(x.filter.Fingerprints)
	buf := make([]byte, 16+n)
	binary.LittleEndian.PutUint64(buf[0:8], x.filter.Seed)
	binary.LittleEndian.PutUint32(buf[8:12], x.filter.BlockLength)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(n))
	copy(buf[16:], x.filter.Fingerprints)
	return buf
}

// Xor8FromBytes parses the canonical representation written by ToBytes. On
// malformed input it returns an empty filter that never rejects a key,
// matching the original's "worst case empty" fallback — a filter miss is
// always advisory, never a correctness requirement.
func Xor8FromBytes(buf []byte) *Xor8 {
	if len(buf) < 16 {
		return &Xor8{filter: nil}
	}
	seed := binary.LittleEndian.Uint64(buf[0:8])
	blockLength := binary.LittleEndian.Uint32(buf[8:12])
	n := binary.LittleEndian.Uint32(buf[12:16])
	if uint64(16+n) > uint64(len(buf)) {
		return &Xor8{filter: nil}
	}
	fp := make([]uint8, n)
	copy(fp, buf[16:16+n])
	return &Xor8{filter: &xorfilter.Xor8{
		Seed:         seed,
		BlockLength:  blockLength,
		Fingerprints: fp,
	}}
}
