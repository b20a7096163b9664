package assemble

import (
	"errors"
	"strings"
	"testing"
)

func TestAssemblerRoundTripScenario(t *testing.T) {
	// spec.md §8 end-to-end scenario 3.
	src := "*0200\nSTART, CLA CLL\nTAD A\nHLT\nA, 0123\n"
	res, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := map[uint16]uint16{
		0200: 07300,
		0201: 01203,
		0202: 07402,
		0203: 0123,
	}
	for addr, w := range want {
		if res.Words[addr] != w {
			t.Errorf("word[%o] = %o, want %o", addr, res.Words[addr], w)
		}
	}
	if res.Start != 0200 {
		t.Errorf("Start = %o, want 0200", res.Start)
	}

	lines := res.EncodeSRecord()
	if len(lines) == 0 {
		t.Fatal("expected at least one S-record line")
	}
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "S9") {
		t.Errorf("last line = %q, want S9 terminator", last)
	}
}

func TestAssemblerMemInstructionPageZero(t *testing.T) {
	src := "*0200\nAND 0017\nHLT\n"
	res, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// AND opcode base 0, page-zero direct, offset 0017.
	if res.Words[0200] != 00017 {
		t.Errorf("word[0200] = %o, want 00017", res.Words[0200])
	}
}

func TestAssemblerOperandOutOfRangeAcrossPages(t *testing.T) {
	src := "*0200\nTAD TARGET\n*0400\nTARGET, 0\n"
	_, err := Assemble(src)
	if !errors.Is(err, ErrOperandOutOfRange) {
		t.Fatalf("err = %v, want ErrOperandOutOfRange", err)
	}
}

func TestAssemblerDuplicateLabel(t *testing.T) {
	src := "*0200\nFOO, CLA\nFOO, CLL\n"
	_, err := Assemble(src)
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("err = %v, want ErrDuplicateLabel", err)
	}
}

func TestAssemblerIOTLiteral(t *testing.T) {
	src := "*0200\nIOT 6046\n"
	res, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Words[0200] != 06046 {
		t.Errorf("word[0200] = %o, want 06046", res.Words[0200])
	}
}

func TestAssemblerOperateGroups(t *testing.T) {
	cases := []struct {
		src  string
		want uint16
	}{
		{"*0200\nCLA CLL\n", 07300},       // group 1
		{"*0200\nCLA IAC\n", 07201},       // group 1
		{"*0200\nHLT\n", 07402},           // group 2
		{"*0200\nSMA SZA\n", 07540},       // group 2, no alias bit
		{"*0200\nMQA\n", 07510},           // group 3 (base 07400|010|0100)
	}
	for _, c := range cases {
		res, err := Assemble(c.src)
		if err != nil {
			t.Fatalf("Assemble(%q): %v", c.src, err)
		}
		if res.Words[0200] != c.want {
			t.Errorf("Assemble(%q) = %o, want %o", c.src, res.Words[0200], c.want)
		}
	}
}

func TestAssemblerSkipAliasSetsGroup3Bit(t *testing.T) {
	// SPA aliases onto bit 0010 in addition to its base bits, which is
	// intentional per the spec: it causes the instruction to be routed
	// to group-3 execution at runtime rather than group-2.
	res, err := Assemble("*0200\nSPA\n")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	got := res.Words[0200]
	want := uint16(07400 | 010 | 0100)
	if got != want {
		t.Errorf("word[0200] = %o, want %o", got, want)
	}
}

func TestAssemblerTextDirective(t *testing.T) {
	res, err := Assemble("*0200\nTEXT \"AB\"\n")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Words[0200] != 0101 {
		t.Errorf("word[0200] = %o, want 0101 ('A')", res.Words[0200])
	}
	if res.Words[0201] != 0102 {
		t.Errorf("word[0201] = %o, want 0102 ('B')", res.Words[0201])
	}
}

func TestAssemblerQuotedChar(t *testing.T) {
	res, err := Assemble("*0200\n\"A\"\n")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Words[0200] != 0101 {
		t.Errorf("word[0200] = %o, want 0101", res.Words[0200])
	}
}

func TestAssemblerBareAddressPlaceholder(t *testing.T) {
	res, err := Assemble("*0200\nCLA\n.\n")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Words[0201] != 0201 {
		t.Errorf("word[0201] = %o, want 0201 (current address)", res.Words[0201])
	}
}

func TestAssemblerEndOfAssemblyMarker(t *testing.T) {
	res, err := Assemble("*0200\nCLA\n$\nHLT\n")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, ok := res.Words[0201]; ok {
		t.Error("statements after $ should not be assembled")
	}
}

func TestAssemblerPseudoOpDefinesSymbol(t *testing.T) {
	res, err := Assemble("FOO = 17\n*0200\nTAD FOO\n")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Symbols["FOO"] != 017 {
		t.Errorf("Symbols[FOO] = %o, want 017", res.Symbols["FOO"])
	}
	if res.Words[0200] != 001017 {
		t.Errorf("word[0200] = %o, want 001017", res.Words[0200])
	}
}

func TestAssemblerAmpersandAndDotOffsetOperands(t *testing.T) {
	res, err := Assemble("*0200\nFOO, 5\nTAD &FOO\nTAD .-1\n")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// &FOO resolves to 0200, the same page as the TAD at 0201, so the
	// page bit is set with offset 0.
	if res.Words[0201] != (01000 | 0200) {
		t.Errorf("word[0201] = %o, want %o", res.Words[0201], uint16(01000|0200))
	}
	// .-1 at addr 0202 resolves to 0201 (current page direct).
	if res.Words[0202] != (01000 | 0200 | 01) {
		t.Errorf("word[0202] = %o, want %o", res.Words[0202], uint16(01000|0200|01))
	}
}
