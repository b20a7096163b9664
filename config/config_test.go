package config

import (
	"errors"
	"testing"
)

func TestParseAttachmentsAndLog(t *testing.T) {
	text := `# sample config
rx8e  0  ./disks/rx0.img  create
rx8e  1  ./disks/rx1.img
tc08  0  ./tapes/dectape0.tc8  create,readonly
lpt   0  ./print/lpt0.txt
log   ./pdp8.log
`
	cfg, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LogPath != "./pdp8.log" {
		t.Errorf("LogPath = %q, want ./pdp8.log", cfg.LogPath)
	}
	if len(cfg.Attachments) != 4 {
		t.Fatalf("len(Attachments) = %d, want 4", len(cfg.Attachments))
	}

	rx0 := cfg.Attachments[0]
	if rx0.Device != "rx8e" || rx0.Slot != 0 || rx0.Path != "./disks/rx0.img" || !rx0.HasOption("create") {
		t.Errorf("rx0 = %+v", rx0)
	}

	tc0 := cfg.Attachments[2]
	if !tc0.HasOption("create") || !tc0.HasOption("readonly") {
		t.Errorf("tc0 options = %v, want create,readonly", tc0.Options)
	}

	lpt0 := cfg.Attachments[3]
	if lpt0.Device != "lpt" || len(lpt0.Options) != 0 {
		t.Errorf("lpt0 = %+v", lpt0)
	}
}

func TestParseIgnoresBlankAndCommentLines(t *testing.T) {
	cfg, err := Parse("\n# just a comment\n   \nlpt 0 ./out.txt\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Attachments) != 1 {
		t.Fatalf("len(Attachments) = %d, want 1", len(cfg.Attachments))
	}
}

func TestParseCollectsUnknownDeviceWithoutAborting(t *testing.T) {
	cfg, err := Parse("rk05 0 ./rk0.img\nlpt 0 ./out.txt\n")
	var el ErrorList
	if !errors.As(err, &el) {
		t.Fatalf("err = %v, want ErrorList", err)
	}
	if len(el) != 1 {
		t.Fatalf("len(ErrorList) = %d, want 1", len(el))
	}
	// The unknown line is dropped, but the valid line after it still parses.
	if len(cfg.Attachments) != 1 || cfg.Attachments[0].Device != "lpt" {
		t.Errorf("Attachments = %+v", cfg.Attachments)
	}
}

func TestParseCollectsMultipleMalformedLines(t *testing.T) {
	_, err := Parse("rx8e notanumber ./rx0.img\nlog\n")
	var el ErrorList
	if !errors.As(err, &el) {
		t.Fatalf("err = %v, want ErrorList", err)
	}
	if len(el) != 2 {
		t.Fatalf("len(ErrorList) = %d, want 2", len(el))
	}
}

func TestParseEmptyTextYieldsEmptyConfig(t *testing.T) {
	cfg, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Attachments) != 0 || cfg.LogPath != "" {
		t.Errorf("cfg = %+v, want zero value", cfg)
	}
}
