package segment

import "encoding/binary"

// item is one pending (hash, fingerprint, offset, size) record collected by
// the writer before the index block is built.
type item struct {
	hash uint64
	fp   uint64
	off  uint64
	size uint32
}

// indexCapacity returns the smallest power of two satisfying
// cap >= (5*n)/4 + 1 (integer division), i.e. load factor < 0.8.
func indexCapacity(n uint64) uint64 {
	var cap uint64 = 1
	for cap < (n*5)/4+1 {
		cap <<= 1
	}
	return cap
}

// buildHashTable lays out items into a linearly-probed, open-addressed
// table of capacity indexCapacity(len(items)) and serializes it with the V1 or V2 row
// format. Slot 0 of the table is "empty" iff hash == 0.
func buildHashTable(kind IndexKind, items []item) []byte {
	n := uint64(len(items))
	cap := indexCapacity(n)
	esz := IndexEntrySize(kind)

	rows := make([]item, cap)
	for _, it := range items {
		idx := it.hash & (cap - 1)
		for rows[idx].hash != 0 {
			idx = (idx + 1) & (cap - 1)
		}
		rows[idx] = it
	}

	buf := make([]byte, 12+int(cap)*esz)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(kind))
	binary.LittleEndian.PutUint64(buf[4:12], cap)

	pos := 12
	for _, row := range rows {
		binary.LittleEndian.PutUint64(buf[pos:pos+8], row.hash)
		pos += 8
		if kind == IndexKindHashTabV2 {
			binary.LittleEndian.PutUint64(buf[pos:pos+8], row.fp)
			pos += 8
		}
		binary.LittleEndian.PutUint64(buf[pos:pos+8], row.off)
		pos += 8
		binary.LittleEndian.PutUint32(buf[pos:pos+4], row.size)
		pos += 4
		binary.LittleEndian.PutUint32(buf[pos:pos+4], 0) // pad
		pos += 4
	}
	return buf
}

// indexInfo describes the parsed index block prefix: its kind, capacity,
// the byte offset of row 0, and the per-row size.
type indexInfo struct {
	kind IndexKind
	cap  uint64
	base int
	esz  int
}

func parseIndexInfo(mmapData []byte, indexOff uint64) indexInfo {
	pos := int(indexOff)
	kind := IndexKind(binary.LittleEndian.Uint32(mmapData[pos : pos+4]))
	cap := binary.LittleEndian.Uint64(mmapData[pos+4 : pos+12])
	return indexInfo{kind: kind, cap: cap, base: pos + 12, esz: IndexEntrySize(kind)}
}

// IndexEntry describes one live index row.
type IndexEntry struct {
	Hash        uint64
	Fingerprint uint64 // only meaningful when HasFingerprint is true
	HasFingerprint bool
	Off         uint64
	Size        uint32
}

func (ii indexInfo) rowAt(mmapData []byte, slot uint64) (IndexEntry, bool) {
	epos := ii.base + int(slot)*ii.esz
	hash := binary.LittleEndian.Uint64(mmapData[epos : epos+8])
	if hash == 0 {
		return IndexEntry{}, false
	}
	switch ii.kind {
	case IndexKindHashTabV1:
		off := binary.LittleEndian.Uint64(mmapData[epos+8 : epos+16])
		size := binary.LittleEndian.Uint32(mmapData[epos+16 : epos+20])
		return IndexEntry{Hash: hash, Off: off, Size: size}, true
	case IndexKindHashTabV2:
		fp := binary.LittleEndian.Uint64(mmapData[epos+8 : epos+16])
		off := binary.LittleEndian.Uint64(mmapData[epos+16 : epos+24])
		size := binary.LittleEndian.Uint32(mmapData[epos+24 : epos+28])
		return IndexEntry{Hash: hash, Fingerprint: fp, HasFingerprint: true, Off: off, Size: size}, true
	default:
		return IndexEntry{}, false
	}
}
