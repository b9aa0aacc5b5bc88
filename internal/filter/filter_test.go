package filter

import "testing"

func TestXor8RoundTripMembership(t *testing.T) {
	hashes := []uint64{1, 2, 3, 100, 1 << 40}

	f, err := BuildXor8(hashes)
	if err != nil {
		t.Fatalf("BuildXor8: %v", err)
	}

	for _, h := range hashes {
		if !f.Contains(h) {
			t.Fatalf("Contains(%d) = false, want true (no false negatives)", h)
		}
	}

	raw := f.ToBytes()
	reloaded := Xor8FromBytes(raw)
	for _, h := range hashes {
		if !reloaded.Contains(h) {
			t.Fatalf("reloaded Contains(%d) = false, want true", h)
		}
	}
}

func TestXor8FromBytesMalformedNeverRejects(t *testing.T) {
	f := Xor8FromBytes([]byte{1, 2, 3})
	if !f.Contains(12345) {
		t.Fatal("malformed filter must never report a definitive miss")
	}
}

func TestBloomNoFalseNegatives(t *testing.T) {
	b := NewBloom(4096, 4)
	keys := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}

	for _, k := range keys {
		b.Add(k)
	}

	for _, k := range keys {
		if !b.Contains(k) {
			t.Fatalf("Contains(%q) = false after Add, want true", k)
		}
	}
}

func TestBloomRoundTripBytes(t *testing.T) {
	b := NewBloom(1024, 3)
	b.Add([]byte("hello"))

	reloaded := BloomFromBits(b.K(), b.Bytes())
	if !reloaded.Contains([]byte("hello")) {
		t.Fatal("reloaded bloom lost membership of added key")
	}
}

func TestBloomEmptyAlwaysContains(t *testing.T) {
	b := NewBloom(0, 1)
	if !b.Contains([]byte("anything")) {
		t.Fatal("zero-size bloom must behave as always-present")
	}
}
