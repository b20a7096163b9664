package linker

import (
	"errors"
	"testing"
)

func TestBuildLibPacksRoutinesSequentially(t *testing.T) {
	lib, err := BuildLib([]string{
		"FOO, CLA\nHLT\n",
		"BAR, IAC\nHLT\n",
	}, 0200, 0200)
	if err != nil {
		t.Fatalf("BuildLib: %v", err)
	}
	want := map[uint16]uint16{
		0200: 07200, // CLA
		0201: 07402, // HLT
		0202: 07001, // IAC
		0203: 07402, // HLT
	}
	for addr, v := range want {
		if lib.Words[addr] != v {
			t.Errorf("word[%o] = %o, want %o", addr, lib.Words[addr], v)
		}
	}
	if lib.Symbols["FOO"] != 0200 {
		t.Errorf("FOO = %o, want 0200", lib.Symbols["FOO"])
	}
	if lib.Symbols["BAR"] != 0202 {
		t.Errorf("BAR = %o, want 0202", lib.Symbols["BAR"])
	}
}

func TestBuildLibAdvancesPageOnOverflow(t *testing.T) {
	lib, err := BuildLib([]string{
		"FOO, CLA\nHLT\n",
		"BAR, IAC\nHLT\n",
	}, 0200, 2)
	if err != nil {
		t.Fatalf("BuildLib: %v", err)
	}
	if lib.Symbols["FOO"] != 0200 {
		t.Errorf("FOO = %o, want 0200", lib.Symbols["FOO"])
	}
	// BAR's routine (size 2) doesn't fit in the 2-word page starting at
	// 0200 after FOO's routine already filled it, so packing advances to
	// the next page.
	if lib.Symbols["BAR"] != 0202 {
		t.Errorf("BAR = %o, want 0202 (next page)", lib.Symbols["BAR"])
	}
}

func TestBuildLibRejectsOriginDirective(t *testing.T) {
	_, err := BuildLib([]string{"*0100\nCLA\nHLT\n"}, 0200, 0200)
	if !errors.Is(err, ErrOriginNotAllowed) {
		t.Fatalf("err = %v, want ErrOriginNotAllowed", err)
	}
}

func TestBuildLibRejectsRoutineTooLarge(t *testing.T) {
	_, err := BuildLib([]string{"CLA\nIAC\nHLT\n"}, 0200, 2)
	if !errors.Is(err, ErrRoutineTooLarge) {
		t.Fatalf("err = %v, want ErrRoutineTooLarge", err)
	}
}

func TestBuildLibRejectsDuplicateSymbol(t *testing.T) {
	_, err := BuildLib([]string{
		"FOO, CLA\nHLT\n",
		"FOO, IAC\nHLT\n",
	}, 0200, 0200)
	if !errors.Is(err, ErrDuplicateSymbol) {
		t.Fatalf("err = %v, want ErrDuplicateSymbol", err)
	}
}

func TestSymbolFileRoundTrip(t *testing.T) {
	symbols := map[string]uint16{"FOO": 0200, "BAR": 0210}
	lines := EncodeSymbols(symbols)
	decoded, err := DecodeSymbols(lines)
	if err != nil {
		t.Fatalf("DecodeSymbols: %v", err)
	}
	if decoded["FOO"] != 0200 || decoded["BAR"] != 0210 {
		t.Errorf("decoded = %v, want %v", decoded, symbols)
	}
}

func TestDecodeSymbolsHonorsComments(t *testing.T) {
	decoded, err := DecodeSymbols([]string{
		"# a comment",
		"foo = 17  # trailing comment",
		"",
	})
	if err != nil {
		t.Fatalf("DecodeSymbols: %v", err)
	}
	if decoded["FOO"] != 017 {
		t.Errorf("FOO = %o, want 017", decoded["FOO"])
	}
}

func TestLinkResolvesPlaceholderAndMergesImages(t *testing.T) {
	lib, err := BuildLib([]string{"PRINT, CLA\nHLT\n"}, 0200, 0200)
	if err != nil {
		t.Fatalf("BuildLib: %v", err)
	}

	app := "*0400\nSTART, CLA\nLINK PRINT\nHLT\n"
	result, err := Link(lib, app)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if result.Words[0401] != 0200 {
		t.Errorf("word[0401] = %o, want 0200 (resolved LINK)", result.Words[0401])
	}
	if result.Words[0200] != 07200 {
		t.Errorf("word[0200] = %o, want 07200 (library routine carried through)", result.Words[0200])
	}
	if result.Start != 0400 {
		t.Errorf("Start = %o, want 0400", result.Start)
	}
}

func TestLinkRejectsUnknownSymbol(t *testing.T) {
	lib, err := BuildLib([]string{"PRINT, CLA\nHLT\n"}, 0200, 0200)
	if err != nil {
		t.Fatalf("BuildLib: %v", err)
	}
	_, err = Link(lib, "*0400\nLINK NOPE\nHLT\n")
	if !errors.Is(err, ErrUnknownLinkSymbol) {
		t.Fatalf("err = %v, want ErrUnknownLinkSymbol", err)
	}
}
