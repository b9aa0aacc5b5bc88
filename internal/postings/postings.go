// Package postings implements the delta + unsigned-varint codec for sorted
// u64 id lists, plus sorted-list merge and intersect used by the resolver.
package postings

import "github.com/flashcore/prusdb/internal/varint"

// EncodeSorted encodes a strictly increasing sequence of ids as successive
// varint deltas, with an implicit starting value of 0.
func EncodeSorted(ids []uint64) []byte {
	out := make([]byte, 0, len(ids)*2)
	var prev uint64
	for _, n := range ids {
		out = varint.Encode(n-prev, out)
		prev = n
	}
	return out
}

// DecodeSorted reverses EncodeSorted, running-summing the deltas back into
// absolute ids.
func DecodeSorted(buf []byte) []uint64 {
	out := make([]uint64, 0)
	var prev uint64
	for len(buf) > 0 {
		var d uint64
		d, buf = varint.Decode(buf)
		prev += d
		out = append(out, prev)
	}
	return out
}

// MergeSorted performs a standard two-finger merge of two sorted lists.
// Duplicates across the two inputs are preserved; this is not a set union.
func MergeSorted(a, b []uint64) []uint64 {
	out := make([]uint64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if j == len(b) || (i < len(a) && a[i] <= b[j]) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	return out
}

// IntersectSorted emits a value only when it appears in both a and b. It
// does not deduplicate; callers needing set semantics must Dedup operands
// first.
func IntersectSorted(a, b []uint64) []uint64 {
	out := make([]uint64, 0)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// Dedup removes adjacent-equal ids from a sorted slice in place, returning
// the deduplicated prefix. It relies on the input already being sorted.
func Dedup(xs []uint64) []uint64 {
	if len(xs) == 0 {
		return xs
	}
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
