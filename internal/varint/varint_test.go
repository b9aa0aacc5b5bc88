package varint

import (
	"bytes"
	"hash/crc32"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 255, 300, 16384, 1 << 40, ^uint64(0)}

	for _, n := range cases {
		buf := Encode(n, nil)
		got, rest := Decode(buf)
		if got != n {
			t.Fatalf("Decode(Encode(%d)) = %d", n, got)
		}
		if len(rest) != 0 {
			t.Fatalf("Decode left %d unconsumed bytes for %d", len(rest), n)
		}
	}
}

func TestEncodeAppendsToExisting(t *testing.T) {
	buf := []byte{0xAA}
	buf = Encode(5, buf)

	if !bytes.Equal(buf, []byte{0xAA, 0x05}) {
		t.Fatalf("unexpected buffer: %v", buf)
	}
}

func TestCRC32MatchesStdlib(t *testing.T) {
	data := []byte("the quick brown fox")
	if CRC32(data) != crc32.ChecksumIEEE(data) {
		t.Fatal("CRC32 mismatch with stdlib IEEE table")
	}
}
