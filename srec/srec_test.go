package srec

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	words := map[uint16]uint16{
		0200: 07402,
		0201: 01234,
		0300: 05555,
	}
	lines := Encode(words, 0200)
	bytes, start, err := Decode(lines)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if start == nil || *start != 0200 {
		t.Fatalf("start = %v, want 0200", start)
	}
	got := WordsFromBytes(bytes)
	for a, v := range words {
		if got[a] != v {
			t.Errorf("word[%o] = %o, want %o", a, got[a], v)
		}
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	lines := Encode(map[uint16]uint16{0: 1}, 0)
	bad := []byte(lines[0])
	bad[len(bad)-1] = 'F'
	bad[len(bad)-2] = 'F'
	if _, _, err := Decode([]string{string(bad)}); err == nil {
		t.Error("expected checksum error")
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	if _, _, err := Decode([]string{"not an s-record"}); err == nil {
		t.Error("expected malformed error")
	}
}

func TestEncodeBreaksRunsOnDiscontiguity(t *testing.T) {
	words := map[uint16]uint16{0: 1, 1: 2, 100: 3}
	lines := Encode(words, 0)
	// 3 lines expected: one S1 for the contiguous run [0,1], one S1 for 100, plus S9.
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %v", len(lines), lines)
	}
}
