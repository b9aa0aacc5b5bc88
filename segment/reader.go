package segment

import (
	"encoding/binary"
	"fmt"
	"iter"
	"os"
	"sync"

	mmapgo "github.com/edsrzf/mmap-go"

	"github.com/flashcore/prusdb/internal/digest"
	"github.com/flashcore/prusdb/internal/filter"
	"github.com/flashcore/prusdb/internal/varint"
)

// Reader memory-maps a published segment file for read-only, concurrent
// access. The filter is parsed lazily on first use and cached.
type Reader struct {
	f    *os.File
	data mmapgo.MMap
	hdr  header

	filterOnce sync.Once
	xor        *filter.Xor8
	bloom      *filter.Bloom
}

// Open memory-maps path, validates the header, and returns a Reader. The
// filter and index are not parsed until first queried.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("segment: open: %w", err)
	}
	data, err := mmapgo.Map(f, mmapgo.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: mmap: %w", err)
	}
	if len(data) < HeaderSize {
		data.Unmap()
		f.Close()
		return nil, ErrBadHeader
	}
	hdr, err := decodeHeader(data[:HeaderSize])
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	return &Reader{f: f, data: data, hdr: hdr}, nil
}

// Close unmaps the file and releases the file handle.
func (r *Reader) Close() error {
	if err := r.data.Unmap(); err != nil {
		r.f.Close()
		return fmt.Errorf("segment: unmap: %w", err)
	}
	return r.f.Close()
}

// Kind reports the segment's kind.
func (r *Reader) Kind() Kind { return r.hdr.kind }

func (r *Reader) ensureFilter() {
	r.filterOnce.Do(func() {
		off := int(r.hdr.filterOff)
		tag := binary.LittleEndian.Uint32(r.data[off : off+4])
		length := int(binary.LittleEndian.Uint32(r.data[off+4 : off+8]))
		body := r.data[off+8 : off+8+length]
		if tag == filter.TagXOR8 {
			r.xor = filter.Xor8FromBytes(body)
		} else {
			k := tag
			r.bloom = filter.BloomFromBits(k, body)
		}
	})
}

func (r *Reader) filterAllows(key []byte) bool {
	r.ensureFilter()
	if r.xor != nil {
		return r.xor.Contains(digest.Hash64(key))
	}
	return r.bloom.Contains(key)
}

// FilterContainsDigest tests a precomputed primary-hash digest against the
// filter. Only defined for the XOR8 layout; the bool result reports
// whether the query was meaningful.
func (r *Reader) FilterContainsDigest(h uint64) (present bool, ok bool) {
	r.ensureFilter()
	if r.xor == nil {
		return false, false
	}
	return r.xor.Contains(h), true
}

// Get returns the value bytes for key (without the trailing CRC), or false
// if the key is not present. A filter miss is treated as a definitive
// absence, never an error.
func (r *Reader) Get(key []byte) ([]byte, bool) {
	if !r.filterAllows(key) {
		return nil, false
	}
	info := parseIndexInfo(r.data, r.hdr.indexOff)
	if info.esz == 0 || info.cap == 0 {
		return nil, false
	}
	h := digest.Hash64(key)
	fp := digest.Fingerprint64(key)
	idx := h & (info.cap - 1)
	for i := uint64(0); i < info.cap; i++ {
		row, live := info.rowAt(r.data, idx)
		if !live {
			return nil, false
		}
		if row.Hash == h {
			matches := info.kind == IndexKindHashTabV1 || (row.HasFingerprint && row.Fingerprint == fp)
			if matches {
				val, ok := r.ValueAt(row.Off, row.Size)
				return val, ok
			}
		}
		idx = (idx + 1) & (info.cap - 1)
	}
	return nil, false
}

// ValueAt returns the bounded value slice [off, off+size-4), the trailing
// 4 bytes being the CRC.
func (r *Reader) ValueAt(off uint64, size uint32) ([]byte, bool) {
	if size < 4 {
		return nil, false
	}
	end := off + uint64(size)
	if end > uint64(len(r.data)) {
		return nil, false
	}
	return r.data[off : end-4], true
}

// VerifyCRCAt recomputes the CRC of the record at (off, size) and reports
// whether it matches the stored trailing checksum.
func (r *Reader) VerifyCRCAt(off uint64, size uint32) bool {
	if size < 4 {
		return false
	}
	end := off + uint64(size)
	if end > uint64(len(r.data)) {
		return false
	}
	val := r.data[off : end-4]
	want := binary.LittleEndian.Uint32(r.data[end-4 : end])
	return varint.CRC32(val) == want
}

// IndexMeta reports the index kind and capacity.
func (r *Reader) IndexMeta() (IndexKind, uint64) {
	info := parseIndexInfo(r.data, r.hdr.indexOff)
	return info.kind, info.cap
}

// Iter returns an iterator over live index entries in slot order.
func (r *Reader) Iter() iter.Seq[IndexEntry] {
	info := parseIndexInfo(r.data, r.hdr.indexOff)
	return func(yield func(IndexEntry) bool) {
		for slot := uint64(0); slot < info.cap; slot++ {
			entry, live := info.rowAt(r.data, slot)
			if !live {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}
