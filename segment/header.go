package segment

import "encoding/binary"

const (
	// Magic is the fixed 4-byte marker at the start of every segment file.
	Magic = "PRUS"
	// Version is the current segment format version.
	Version uint16 = 1
	// HeaderSize is the fixed header region size in bytes.
	HeaderSize = 48
	// AtomIDBytes is the width of the content-addressed digest higher
	// layers (the atom/fact dictionary) truncate atom ids to. Unused by
	// the core segment format itself, but part of the on-disk contract
	// those layers depend on.
	AtomIDBytes = 16
)

// header is the 48-byte, little-endian fixed header.
//
//	magic[4]="PRUS" | version:u16 | kind:u16 | reserved:u32=0 |
//	index_off:u64 | filter_off:u64 | data_off:u64=48 | footer_off:u64
type header struct {
	version   uint16
	kind      Kind
	indexOff  uint64
	filterOff uint64
	dataOff   uint64
	footerOff uint64
}

func encodeHeader(h header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.version)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(h.kind))
	// buf[8:12] reserved, left zero
	binary.LittleEndian.PutUint64(buf[12:20], h.indexOff)
	binary.LittleEndian.PutUint64(buf[20:28], h.filterOff)
	binary.LittleEndian.PutUint64(buf[28:36], h.dataOff)
	binary.LittleEndian.PutUint64(buf[36:44], h.footerOff)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	var h header
	if len(buf) < HeaderSize || string(buf[0:4]) != Magic {
		return h, ErrBadHeader
	}
	h.version = binary.LittleEndian.Uint16(buf[4:6])
	if h.version != Version {
		return h, ErrBadHeader
	}
	kind := binary.LittleEndian.Uint16(buf[6:8])
	switch Kind(kind) {
	case KindDict, KindFact, KindResolver:
		h.kind = Kind(kind)
	default:
		return h, ErrUnsupported
	}
	h.indexOff = binary.LittleEndian.Uint64(buf[12:20])
	h.filterOff = binary.LittleEndian.Uint64(buf[20:28])
	h.dataOff = binary.LittleEndian.Uint64(buf[28:36])
	h.footerOff = binary.LittleEndian.Uint64(buf[36:44])
	return h, nil
}
