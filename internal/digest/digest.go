// Package digest computes the two derived hashes segments use in place of
// storing raw key bytes: the primary hash and the secondary fingerprint.
package digest

import (
	"github.com/zeebo/xxh3"
	"lukechampine.com/blake3"
)

// Hash64 is the primary key digest, h = xxh3_64(key).
func Hash64(key []byte) uint64 {
	return xxh3.Hash(key)
}

// Fingerprint64 is the secondary digest stored in V2 index rows,
// fp = first 8 bytes (little-endian) of blake3(key).
func Fingerprint64(key []byte) uint64 {
	sum := blake3.Sum256(key)
	return le64(sum[:8])
}

// Halves splits blake3(key) into the two 64-bit halves the legacy Bloom
// filter's enhanced double hashing scheme operates on.
func Halves(key []byte) (h1, h2 uint64) {
	sum := blake3.Sum256(key)
	return le64(sum[0:8]), le64(sum[8:16])
}

func le64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
