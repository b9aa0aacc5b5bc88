// Package compact merges every resolver segment in a store directory into
// one hash-indexed segment using a hash-only fast path (no fingerprint
// matching), then appends it to the manifest. Promotion is left to the
// caller.
package compact

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flashcore/prusdb/internal/postings"
	"github.com/flashcore/prusdb/manifest"
	"github.com/flashcore/prusdb/segment"
)

// Result summarizes one compaction run.
type Result struct {
	SegmentPath    string
	InputSegments  int
	DistinctHashes int
}

// Run reads every resolver segment in dir (active or archived — compaction
// is total), merges same-hash posting lists, writes the merged result as a
// new V1-indexed, XOR8-filtered resolver segment, and appends it to (and
// saves) the manifest. It does not itself call PromoteResolverCompact;
// callers decide when to flip the active set.
//
// Two distinct keys that collide on their primary hash have their posting
// lists merged into one entry, since the V1 index this writes carries no
// fingerprint to disambiguate them. This is an overapproximation, not a
// corruption, under the resolver's duplicate-tolerant semantics.
func Run(dir string, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	man, err := manifest.Load(dir)
	if err != nil {
		return Result{}, fmt.Errorf("compact: load manifest: %w", err)
	}

	acc := make(map[uint64][]uint64)
	inputSegments := 0

	for _, rec := range man.Segments {
		if rec.Kind != segment.KindResolver {
			continue
		}
		r, err := segment.Open(filepath.Join(dir, rec.Path))
		if err != nil {
			return Result{}, fmt.Errorf("compact: open %s: %w", rec.Path, err)
		}
		inputSegments++

		for e := range r.Iter() {
			val, ok := r.ValueAt(e.Off, e.Size)
			if !ok {
				continue
			}
			list := postings.DecodeSorted(val)
			if len(list) == 0 {
				continue
			}
			sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
			list = postings.Dedup(list)

			if existing, ok := acc[e.Hash]; ok {
				acc[e.Hash] = postings.MergeSorted(existing, list)
			} else {
				acc[e.Hash] = list
			}
		}
		r.Close()
	}

	if inputSegments == 0 {
		return Result{}, manifest.ErrInvalidInput
	}

	hashes := make([]uint64, 0, len(acc))
	for h := range acc {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	segName := newCompactSegmentName()
	segPath := filepath.Join(dir, segName)

	w, err := segment.Create(segPath, segment.KindResolver, 1<<20, 7)
	if err != nil {
		return Result{}, fmt.Errorf("compact: create segment: %w", err)
	}
	w.SetIndexKind(segment.IndexKindHashTabV1)
	w.SetFilterXOR8()

	for _, h := range hashes {
		enc := postings.EncodeSorted(acc[h])
		if err := w.AddHashed(h, enc); err != nil {
			return Result{}, fmt.Errorf("compact: add %d: %w", h, err)
		}
	}

	if _, err := w.Finalize(); err != nil {
		return Result{}, fmt.Errorf("compact: finalize: %w", err)
	}

	man2, err := manifest.Load(dir)
	if err != nil {
		return Result{}, fmt.Errorf("compact: reload manifest: %w", err)
	}
	man2.AddSegment(segName, segment.KindResolver)
	if err := man2.SaveAtomic(dir); err != nil {
		return Result{}, fmt.Errorf("compact: save manifest: %w", err)
	}

	log.Info("compacted resolver segments",
		zap.String("dir", dir),
		zap.String("segment", segName),
		zap.Int("input_segments", inputSegments),
		zap.Int("distinct_hashes", len(hashes)),
	)

	return Result{SegmentPath: segPath, InputSegments: inputSegments, DistinctHashes: len(hashes)}, nil
}

func newCompactSegmentName() string {
	now := time.Now()
	id := uuid.New()
	rand16 := fmt.Sprintf("%02x%02x", id[0], id[1])
	return fmt.Sprintf("resolver-compact-%d-%09d-%s.prus", now.Unix(), now.Nanosecond(), rand16)
}
