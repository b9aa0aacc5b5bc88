package resolver

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/flashcore/prusdb/internal/postings"
	"github.com/flashcore/prusdb/manifest"
	"github.com/flashcore/prusdb/segment"
)

func writeResolverSegment(t *testing.T, dir, name string, entries map[string][]uint64) {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := segment.Create(path, segment.KindResolver, 1<<14, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for k, ids := range entries {
		if err := w.Add([]byte(k), postings.EncodeSorted(ids)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	man, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load manifest: %v", err)
	}
	man.AddSegment(name, segment.KindResolver)
	if err := man.SaveAtomic(dir); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}
}

func TestResolveUnionPreservesDuplicatesAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	writeResolverSegment(t, dir, "resolver-00.prus", map[string][]uint64{"k1": {1, 2}})
	writeResolverSegment(t, dir, "resolver-01.prus", map[string][]uint64{"k1": {2, 3}})

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got := s.Resolve([]byte("k1"))
	want := []uint64{1, 2, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve = %v, want %v", got, want)
	}

	deduped := postings.Dedup(got)
	wantDeduped := []uint64{1, 2, 3}
	if !reflect.DeepEqual(deduped, wantDeduped) {
		t.Fatalf("Dedup(Resolve) = %v, want %v", deduped, wantDeduped)
	}
}

func TestResolveWithModeSetIntersectSetSemantics(t *testing.T) {
	dir := t.TempDir()
	writeResolverSegment(t, dir, "resolver-00.prus", map[string][]uint64{
		"k1": {1, 1, 2, 3},
		"k2": {2, 2, 3, 4},
	})

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got := s.ResolveWithModeSet(Intersect, [][]byte{[]byte("k1"), []byte("k2")}, true)
	want := []uint64{2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveWithModeSet(Intersect, set) = %v, want %v", got, want)
	}
}

func TestResolveWithModeDedup(t *testing.T) {
	dir := t.TempDir()
	writeResolverSegment(t, dir, "resolver-00.prus", map[string][]uint64{"k1": {1, 2}})
	writeResolverSegment(t, dir, "resolver-01.prus", map[string][]uint64{"k1": {2, 3}})

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got := s.ResolveWithMode(Dedup, [][]byte{[]byte("k1")})
	want := []uint64{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveWithMode(Dedup) = %v, want %v", got, want)
	}
}

func TestOpenFallsBackToAllResolverSegmentsWhenNonePromoted(t *testing.T) {
	dir := t.TempDir()
	writeResolverSegment(t, dir, "resolver-00.prus", map[string][]uint64{"k1": {1}})

	man, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(man.ActivePaths, []string{"resolver-00.prus"}) {
		t.Fatalf("ActivePaths before promotion = %v, want [resolver-00.prus]", man.ActivePaths)
	}

	// Point the active set at a segment the manifest does not list, so no
	// active resolver segment opens and Open has to fall back.
	man.ActivePaths = []string{"resolver-stale.prus"}
	if err := man.SaveAtomic(dir); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if got := s.Resolve([]byte("k1")); !reflect.DeepEqual(got, []uint64{1}) {
		t.Fatalf("Resolve = %v, want [1]", got)
	}
}

func TestResolveMissingKeyReturnsNil(t *testing.T) {
	dir := t.TempDir()
	writeResolverSegment(t, dir, "resolver-00.prus", map[string][]uint64{"k1": {1}})

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if got := s.Resolve([]byte("absent")); got != nil {
		t.Fatalf("Resolve(absent) = %v, want nil", got)
	}
}
