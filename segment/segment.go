// Package segment implements the immutable on-disk segment file format:
// a fixed 48-byte header, a data region of CRC-checked value records, a
// linearly-probed hash index (V1 or V2), and a trailing approximate
// membership filter (legacy Bloom or XOR8). See header.go for the exact
// binary layout.
package segment

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies what a segment's values hold.
type Kind uint16

const (
	KindDict     Kind = 1 // atoms dictionary (id<->value) — out of core scope, reserved
	KindFact     Kind = 2 // fact log — out of core scope, reserved
	KindResolver Kind = 3 // resolver postings
)

func (k Kind) String() string {
	switch k {
	case KindDict:
		return "Dict"
	case KindFact:
		return "Fact"
	case KindResolver:
		return "Resolver"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes Kind as its manifest-facing name ("Dict", "Fact",
// "Resolver") rather than its numeric value.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts the manifest-facing name produced by MarshalJSON.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Dict":
		*k = KindDict
	case "Fact":
		*k = KindFact
	case "Resolver":
		*k = KindResolver
	default:
		return fmt.Errorf("segment: unknown kind %q", s)
	}
	return nil
}

// IndexKind selects the hash index row layout.
type IndexKind uint32

const (
	IndexKindLinear   IndexKind = 0 // reserved, never produced by this package
	IndexKindHashTabV1 IndexKind = 1
	IndexKindHashTabV2 IndexKind = 2
)

// FilterKind selects the approximate membership filter layout.
type FilterKind int

const (
	FilterXor8 FilterKind = iota
	FilterBloom
)

var (
	// ErrBadHeader is returned when a segment's magic or version does not match.
	ErrBadHeader = errors.New("segment: bad magic or version")
	// ErrUnsupported is returned by Open for an unrecognized segment kind.
	// An unrecognized index kind is not an error: Get reports not-found and
	// Iter yields nothing.
	ErrUnsupported = errors.New("segment: unsupported kind")
	// ErrCorrupt names CRC mismatches, bad bounds, or a malformed index
	// capacity. No function in this package returns it: the Reader reports
	// those conditions through its boolean results.
	ErrCorrupt = errors.New("segment: corrupt record")
)

// IndexEntrySize returns the on-disk row size in bytes for the given index kind.
func IndexEntrySize(kind IndexKind) int {
	switch kind {
	case IndexKindHashTabV1:
		return 24
	case IndexKindHashTabV2:
		return 32
	default:
		return 0
	}
}
