package segment

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	natomic "github.com/natefinch/atomic"

	"github.com/flashcore/prusdb/internal/digest"
	"github.com/flashcore/prusdb/internal/filter"
	"github.com/flashcore/prusdb/internal/postings"
	"github.com/flashcore/prusdb/internal/varint"
)

// Writer appends (key, value) records into a temp file and, on Finalize,
// builds the index and filter blocks and atomically publishes the result
// under its final name. A Writer is single-use: create one per segment.
type Writer struct {
	pathFinal string
	tmp       *os.File
	kind      Kind
	items     []item
	bloom     *filter.Bloom

	indexKind  IndexKind
	filterKind FilterKind
}

// Create opens a temp file next to path (so the eventual rename is
// same-filesystem) and reserves the header region.
func Create(path string, kind Kind, bloomBits, bloomK uint32) (*Writer, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "prus_seg_*.tmp")
	if err != nil {
		return nil, fmt.Errorf("segment: create temp file: %w", err)
	}
	if _, err := tmp.Write(make([]byte, HeaderSize)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("segment: reserve header: %w", err)
	}
	return &Writer{
		pathFinal:  path,
		tmp:        tmp,
		kind:       kind,
		bloom:      filter.NewBloom(bloomBits, bloomK),
		indexKind:  IndexKindHashTabV2,
		filterKind: FilterXor8,
	}, nil
}

// SetIndexKind selects V1 or V2 row layout. Default is V2.
func (w *Writer) SetIndexKind(kind IndexKind) { w.indexKind = kind }

// SetFilterXOR8 selects the XOR8 filter layout. This is the default.
func (w *Writer) SetFilterXOR8() { w.filterKind = FilterXor8 }

// SetFilterBloom selects the legacy Bloom filter layout.
func (w *Writer) SetFilterBloom() { w.filterKind = FilterBloom }

// Add appends value_bytes|crc32(value_bytes) to the data region and
// records (h(key), fp(key), off, size) for the index.
func (w *Writer) Add(key, value []byte) error {
	off, size, err := w.appendRecord(value)
	if err != nil {
		return err
	}
	w.items = append(w.items, item{hash: digest.Hash64(key), fp: digest.Fingerprint64(key), off: off, size: size})
	w.bloom.Add(key)
	return nil
}

// AddHashed appends a record like Add, but the caller supplies the primary
// hash directly; the fingerprint is left zero. Callers using this form must
// select the V1 index, since V2 requires a meaningful fingerprint.
func (w *Writer) AddHashed(hash uint64, value []byte) error {
	off, size, err := w.appendRecord(value)
	if err != nil {
		return err
	}
	w.items = append(w.items, item{hash: hash, off: off, size: size})
	return nil
}

func (w *Writer) appendRecord(value []byte) (off uint64, size uint32, err error) {
	o, err := w.tmp.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("segment: seek end: %w", err)
	}
	if _, err := w.tmp.Write(value); err != nil {
		return 0, 0, fmt.Errorf("segment: write value: %w", err)
	}
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], varint.CRC32(value))
	if _, err := w.tmp.Write(crcBuf[:]); err != nil {
		return 0, 0, fmt.Errorf("segment: write crc: %w", err)
	}
	end, err := w.tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, fmt.Errorf("segment: seek current: %w", err)
	}
	return uint64(o), uint32(uint64(end) - o), nil
}

// Finalize writes the index, then the filter, then backfills the header,
// fsyncs the file, and atomically renames it to its final path. On any
// failure the temp file is removed and the destination path is left
// unchanged.
func (w *Writer) Finalize() (path string, err error) {
	defer func() {
		if err != nil {
			w.tmp.Close()
			os.Remove(w.tmp.Name())
		}
	}()

	indexOff, err := w.tmp.Seek(0, io.SeekEnd)
	if err != nil {
		return "", fmt.Errorf("segment: seek for index: %w", err)
	}

	idxBytes := buildHashTable(w.indexKind, w.items)
	if _, err = w.tmp.Write(idxBytes); err != nil {
		return "", fmt.Errorf("segment: write index: %w", err)
	}

	filterOff, err := w.tmp.Seek(0, io.SeekEnd)
	if err != nil {
		return "", fmt.Errorf("segment: seek for filter: %w", err)
	}

	if err = w.writeFilterBlock(); err != nil {
		return "", err
	}

	footerOff, err := w.tmp.Seek(0, io.SeekEnd)
	if err != nil {
		return "", fmt.Errorf("segment: seek for footer: %w", err)
	}

	hdr := header{
		version:   Version,
		kind:      w.kind,
		indexOff:  uint64(indexOff),
		filterOff: uint64(filterOff),
		dataOff:   HeaderSize,
		footerOff: uint64(footerOff),
	}
	if _, err = w.tmp.WriteAt(encodeHeader(hdr), 0); err != nil {
		return "", fmt.Errorf("segment: backfill header: %w", err)
	}
	if err = w.tmp.Sync(); err != nil {
		return "", fmt.Errorf("segment: fsync: %w", err)
	}

	tmpName := w.tmp.Name()
	if err = w.tmp.Close(); err != nil {
		return "", fmt.Errorf("segment: close temp file: %w", err)
	}
	if err = natomic.ReplaceFile(tmpName, w.pathFinal); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("segment: publish: %w", err)
	}
	fsyncDir(w.pathFinal)

	return w.pathFinal, nil
}

func (w *Writer) writeFilterBlock() error {
	switch w.filterKind {
	case FilterBloom:
		var hdr [8]byte
		binary.LittleEndian.PutUint32(hdr[0:4], w.bloom.K())
		bits := w.bloom.Bytes()
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(bits)))
		if _, err := w.tmp.Write(hdr[:]); err != nil {
			return fmt.Errorf("segment: write bloom header: %w", err)
		}
		if _, err := w.tmp.Write(bits); err != nil {
			return fmt.Errorf("segment: write bloom bits: %w", err)
		}
		return nil
	default:
		hashes := make([]uint64, len(w.items))
		for i, it := range w.items {
			hashes[i] = it.hash
		}
		sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
		hashes = postings.Dedup(hashes)

		xf, err := filter.BuildXor8(hashes)
		if err != nil {
			return fmt.Errorf("segment: build xor8: %w", err)
		}
		body := xf.ToBytes()

		var hdr [8]byte
		binary.LittleEndian.PutUint32(hdr[0:4], filter.TagXOR8)
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(body)))
		if _, err := w.tmp.Write(hdr[:]); err != nil {
			return fmt.Errorf("segment: write xor8 header: %w", err)
		}
		if _, err := w.tmp.Write(body); err != nil {
			return fmt.Errorf("segment: write xor8 body: %w", err)
		}
		return nil
	}
}
