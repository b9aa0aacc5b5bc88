// Command prusdb is a thin runnable smoke test for the segment engine: it
// writes a couple of resolver segments into a temp directory, compacts and
// promotes them, and resolves a key through the manifest-driven active set.
// The human-facing CLI, HTTP surface, and atom/fact dictionary this engine
// is meant to back are out of scope for this module.
package main

import (
	"fmt"
	"os"

	"github.com/flashcore/prusdb/compact"
	"github.com/flashcore/prusdb/internal/postings"
	"github.com/flashcore/prusdb/manifest"
	"github.com/flashcore/prusdb/resolver"
	"github.com/flashcore/prusdb/segment"
)

func main() {
	dir, err := os.MkdirTemp("", "prusdb-smoke-*")
	if err != nil {
		fail(err)
	}
	defer os.RemoveAll(dir)

	if err := writeDemoSegments(dir); err != nil {
		fail(err)
	}

	res, err := compact.Run(dir, nil)
	if err != nil {
		fail(err)
	}
	fmt.Printf("compacted %d input segments into %s (%d distinct hashes)\n",
		res.InputSegments, res.SegmentPath, res.DistinctHashes)

	man, err := manifest.Load(dir)
	if err != nil {
		fail(err)
	}
	man.PromoteResolverCompact()
	if err := man.SaveAtomic(dir); err != nil {
		fail(err)
	}

	store, err := resolver.Open(dir)
	if err != nil {
		fail(err)
	}
	defer store.Close()

	key := []byte("demo-key")
	fmt.Printf("resolve(%q) = %v\n", key, store.Resolve(key))
}

func writeDemoSegments(dir string) error {
	key := []byte("demo-key")

	for i, postingsList := range [][]uint64{{1, 3, 5}, {3, 5, 7}} {
		path := fmt.Sprintf("%s/resolver-%02d.prus", dir, i)
		w, err := segment.Create(path, segment.KindResolver, 1<<16, 7)
		if err != nil {
			return err
		}
		if err := w.Add(key, postings.EncodeSorted(postingsList)); err != nil {
			return err
		}
		if _, err := w.Finalize(); err != nil {
			return err
		}

		man, err := manifest.Load(dir)
		if err != nil {
			return err
		}
		man.AddSegment(fmt.Sprintf("resolver-%02d.prus", i), segment.KindResolver)
		if err := man.SaveAtomic(dir); err != nil {
			return err
		}
	}
	return nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
