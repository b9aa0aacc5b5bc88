package compact

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/flashcore/prusdb/internal/postings"
	"github.com/flashcore/prusdb/manifest"
	"github.com/flashcore/prusdb/resolver"
	"github.com/flashcore/prusdb/segment"
)

func writeSegmentForCompact(t *testing.T, dir, name string, entries map[string][]uint64) {
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

func TestRunMergesSameKeyAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	writeSegmentForCompact(t, dir, "resolver-00.prus", map[string][]uint64{"demo-key": {1, 3, 5}})
	writeSegmentForCompact(t, dir, "resolver-01.prus", map[string][]uint64{"demo-key": {3, 5, 7}})

	res, err := Run(dir, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.InputSegments != 2 {
		t.Fatalf("InputSegments = %d, want 2", res.InputSegments)
	}
	if res.DistinctHashes != 1 {
		t.Fatalf("DistinctHashes = %d, want 1", res.DistinctHashes)
	}

	r, err := segment.Open(res.SegmentPath)
	if err != nil {
		t.Fatalf("Open compacted segment: %v", err)
	}
	defer r.Close()

	val, ok := r.Get([]byte("demo-key"))
	if !ok {
		t.Fatalf("compacted segment missing demo-key")
	}
	got := postings.DecodeSorted(val)
	want := []uint64{1, 3, 5, 7}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("compacted postings = %v, want %v", got, want)
	}

	man, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load manifest: %v", err)
	}
	found := false
	for _, s := range man.Segments {
		if s.Path == filepath.Base(res.SegmentPath) {
			found = true
		}
	}
	if !found {
		t.Fatalf("compacted segment %s not appended to manifest", res.SegmentPath)
	}
}

func TestRunFailsWithInvalidInputWhenNoResolverSegments(t *testing.T) {
	dir := t.TempDir()

	man := &manifest.Manifest{}
	man.AddSegment("dict-1.prus", segment.KindDict)
	if err := man.SaveAtomic(dir); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	_, err := Run(dir, nil)
	if err != manifest.ErrInvalidInput {
		t.Fatalf("Run err = %v, want ErrInvalidInput", err)
	}
}

func TestRunOutputUsableThroughResolverAfterPromote(t *testing.T) {
	dir := t.TempDir()
	writeSegmentForCompact(t, dir, "resolver-00.prus", map[string][]uint64{"demo-key": {1, 3}})
	writeSegmentForCompact(t, dir, "resolver-01.prus", map[string][]uint64{"demo-key": {3, 5}})

	if _, err := Run(dir, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	man, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	man.PromoteResolverCompact()
	if err := man.SaveAtomic(dir); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	store, err := resolver.Open(dir)
	if err != nil {
		t.Fatalf("resolver.Open: %v", err)
	}
	defer store.Close()

	got := store.Resolve([]byte("demo-key"))
	want := []uint64{1, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve after compact+promote = %v, want %v", got, want)
	}
}
