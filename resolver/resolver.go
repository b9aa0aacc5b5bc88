// Package resolver opens the active resolver segments of a store directory
// and answers multi-key postings queries under three set-combination modes.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flashcore/prusdb/internal/postings"
	"github.com/flashcore/prusdb/manifest"
	"github.com/flashcore/prusdb/segment"
)

// Mode selects how Resolve results for multiple keys are combined.
type Mode int

const (
	// Union merges postings across keys, preserving duplicates.
	Union Mode = iota
	// Dedup is Union followed by adjacent-equal removal.
	Dedup
	// Intersect keeps only ids present in every key's postings.
	Intersect
)

// Store holds open readers for the active resolver segments of one
// directory.
type Store struct {
	readers []*segment.Reader
}

// Open loads the manifest and opens a reader for every active resolver
// segment. If no active resolver segment opens successfully (for example
// when ActivePaths names only segments that are missing or not listed), it
// falls back to opening every resolver segment listed in the manifest, so a
// store with a stale active set remains usable.
func Open(dir string) (*Store, error) {
	man, err := manifest.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("resolver: load manifest: %w", err)
	}

	kindByPath := make(map[string]segment.Kind, len(man.Segments))
	for _, s := range man.Segments {
		kindByPath[s.Path] = s.Kind
	}

	var readers []*segment.Reader
	for _, p := range man.ActiveSegmentPaths() {
		if kindByPath[p] != segment.KindResolver {
			continue
		}
		full := filepath.Join(dir, p)
		if _, err := os.Stat(full); err != nil {
			continue
		}
		r, err := segment.Open(full)
		if err != nil || r.Kind() != segment.KindResolver {
			if r != nil {
				r.Close()
			}
			continue
		}
		readers = append(readers, r)
	}

	if len(readers) == 0 {
		for _, s := range man.Segments {
			if s.Kind != segment.KindResolver {
				continue
			}
			r, err := segment.Open(filepath.Join(dir, s.Path))
			if err != nil {
				continue
			}
			readers = append(readers, r)
		}
	}

	return &Store{readers: readers}, nil
}

// Close releases every open segment reader.
func (s *Store) Close() error {
	var firstErr error
	for _, r := range s.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Resolve looks key up in every open segment and merges the results,
// preserving duplicates when the same id appears in multiple segments.
func (s *Store) Resolve(key []byte) []uint64 {
	var out []uint64
	for _, r := range s.readers {
		if val, ok := r.Get(key); ok {
			out = postings.MergeSorted(out, postings.DecodeSorted(val))
		}
	}
	return out
}

// ResolveWithMode combines Resolve(key) for each key under mode, without
// set semantics (see ResolveWithModeSet).
func (s *Store) ResolveWithMode(mode Mode, keys [][]byte) []uint64 {
	return s.ResolveWithModeSet(mode, keys, false)
}

// ResolveWithModeSet combines Resolve(key) for each key under mode.
// setSemantics, when true and mode is Intersect, dedups each operand
// before intersecting, giving true set intersection semantics rather than
// a raw sorted-list intersection, which emits an id once for every
// duplicate pair the two operands share.
func (s *Store) ResolveWithModeSet(mode Mode, keys [][]byte, setSemantics bool) []uint64 {
	switch mode {
	case Union:
		var acc []uint64
		for _, k := range keys {
			acc = postings.MergeSorted(acc, s.Resolve(k))
		}
		return acc
	case Dedup:
		var acc []uint64
		for _, k := range keys {
			acc = postings.MergeSorted(acc, s.Resolve(k))
		}
		return postings.Dedup(acc)
	case Intersect:
		if len(keys) == 0 {
			return nil
		}
		acc := s.Resolve(keys[0])
		if setSemantics {
			acc = postings.Dedup(acc)
		}
		for _, k := range keys[1:] {
			v := s.Resolve(k)
			if setSemantics {
				v = postings.Dedup(v)
			}
			acc = postings.IntersectSorted(acc, v)
			if len(acc) == 0 {
				break
			}
		}
		return acc
	default:
		return nil
	}
}
