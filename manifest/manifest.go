// Package manifest persists the directory-local list of segments, their
// active/archived partition, and the resolver-compact promotion protocol.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flashcore/prusdb/segment"
)

// ErrInvalidInput is returned by operations that require preconditions the
// caller failed to meet (e.g. compacting a directory with no resolver
// segments).
var ErrInvalidInput = errors.New("manifest: invalid input")

const fileName = "manifest.json"

// SegmentRecord names one on-disk segment and its kind.
type SegmentRecord struct {
	Kind segment.Kind `json:"kind"`
	Path string       `json:"path"`
}

// Manifest is the persisted list of segments plus the active/archived
// partition. An empty ActivePaths means every listed segment is active
// (the compatibility rule for manifests written before promotion existed).
type Manifest struct {
	Segments      []SegmentRecord `json:"segments"`
	ActivePaths   []string        `json:"active_paths,omitempty"`
	ArchivedPaths []string        `json:"archived_paths,omitempty"`
}

// Load reads manifest.json from dir, returning an empty Manifest if the
// file does not exist. dir is created if absent so callers can open a
// not-yet-initialized store directory directly.
func Load(dir string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("manifest: ensure dir: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: read: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	return &m, nil
}

// SaveAtomic writes manifest.json.tmp, fsyncs it, and renames it over
// manifest.json so readers never observe a partially written document.
func (m *Manifest) SaveAtomic(dir string) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}

	tmpPath := filepath.Join(dir, fileName+".tmp")
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("manifest: create temp file: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("manifest: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("manifest: fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("manifest: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, fileName)); err != nil {
		return fmt.Errorf("manifest: rename into place: %w", err)
	}
	return nil
}

// AddSegment appends name to the segment list and, if it is not already
// listed, to the active set.
func (m *Manifest) AddSegment(name string, kind segment.Kind) {
	m.Segments = append(m.Segments, SegmentRecord{Kind: kind, Path: name})
	if !contains(m.ActivePaths, name) {
		m.ActivePaths = append(m.ActivePaths, name)
	}
}

// ActiveSegmentPaths returns the subset of Segments considered active. An
// empty ActivePaths means every segment is active.
func (m *Manifest) ActiveSegmentPaths() []string {
	if len(m.ActivePaths) == 0 {
		out := make([]string, len(m.Segments))
		for i, s := range m.Segments {
			out[i] = s.Path
		}
		return out
	}

	active := make([]string, 0, len(m.ActivePaths))
	set := toSet(m.ActivePaths)
	for _, s := range m.Segments {
		if set[s.Path] {
			active = append(active, s.Path)
		}
	}
	return active
}

// PromoteResolverCompact rewrites ActivePaths so that exactly one resolver
// segment — the lexicographically greatest resolver-compact-* segment if
// any exist, else the lexicographically greatest resolver segment — is
// active, archiving every other resolver segment. Non-resolver segments
// that were active remain active. Returns 1 if any resolver segment was
// found, 0 otherwise (a no-op).
func (m *Manifest) PromoteResolverCompact() int {
	var resolverPaths []string
	for _, s := range m.Segments {
		if s.Kind == segment.KindResolver {
			resolverPaths = append(resolverPaths, s.Path)
		}
	}
	if len(resolverPaths) == 0 {
		return 0
	}
	sort.Strings(resolverPaths)

	winner := resolverPaths[len(resolverPaths)-1]
	for i := len(resolverPaths) - 1; i >= 0; i-- {
		if strings.HasPrefix(resolverPaths[i], "resolver-compact-") {
			winner = resolverPaths[i]
			break
		}
	}

	var keepNonResolver []string
	if len(m.ActivePaths) == 0 {
		for _, s := range m.Segments {
			if s.Kind != segment.KindResolver {
				keepNonResolver = append(keepNonResolver, s.Path)
			}
		}
	} else {
		activeSet := toSet(m.ActivePaths)
		for _, s := range m.Segments {
			if s.Kind != segment.KindResolver && activeSet[s.Path] {
				keepNonResolver = append(keepNonResolver, s.Path)
			}
		}
	}

	newActive := append(keepNonResolver, winner)
	activeSet := toSet(newActive)

	var archived []string
	for _, s := range m.Segments {
		if !activeSet[s.Path] {
			archived = append(archived, s.Path)
		}
	}

	m.ActivePaths = newActive
	m.ArchivedPaths = archived
	return 1
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func toSet(xs []string) map[string]bool {
	set := make(map[string]bool, len(xs))
	for _, x := range xs {
		set[x] = true
	}
	return set
}
