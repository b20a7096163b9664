package rx8e

import (
	"os"
	"path/filepath"
	"testing"

	dev "github.com/rsbohn/olive-petrel/device"
)

// testCPU is a minimal device.CPUAccess fake.
type testCPU struct {
	ac  uint16
	l   bool
	mem [4096]uint16
}

func (t *testCPU) GetAC() uint16          { return t.ac }
func (t *testCPU) SetAC(v uint16)         { t.ac = v & 07777 }
func (t *testCPU) GetLink() bool          { return t.l }
func (t *testCPU) SetLink(v bool)         { t.l = v }
func (t *testCPU) ReadMem(a uint16) uint16 { return t.mem[a&07777] }
func (t *testCPU) WriteMem(a, v uint16)   { t.mem[a&07777] = v & 07777 }

var _ dev.CPUAccess = (*testCPU)(nil)

func TestPackUnpackSectorRoundTrip(t *testing.T) {
	words := make([]uint16, wordsPerSectorRX01)
	for i := range words {
		words[i] = uint16(i*37+1) & 07777
	}
	buf := make([]byte, wordsPerSectorRX01*3/2)
	packSector(words, buf)
	got := make([]uint16, wordsPerSectorRX01)
	unpackSector(buf, got)
	for i := range words {
		if got[i] != words[i] {
			t.Fatalf("word %d = %o, want %o", i, got[i], words[i])
		}
	}
}

func TestAttachReadWriteSector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive0.rx01")
	c := New()
	if err := c.Attach(0, path, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer func() { _ = c.Detach(0) }()

	pattern := make([]uint16, wordsPerSectorRX01)
	for i := range pattern {
		pattern[i] = uint16(i) & 07777
	}
	if err := c.WriteSector(0, 0, 1, pattern); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	got := make([]uint16, wordsPerSectorRX01)
	if err := c.ReadSector(0, 0, 1, got); err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	for i := range pattern {
		if got[i] != pattern[i] {
			t.Fatalf("word %d = %o, want %o", i, got[i], pattern[i])
		}
	}
}

func TestIOTReadSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive0.rx01")
	c := New()
	if err := c.Attach(0, path, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	pattern := make([]uint16, wordsPerSectorRX01)
	for i := range pattern {
		pattern[i] = uint16(i*3+1) & 07777
	}
	if err := c.WriteSector(0, 0, 1, pattern); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}

	cpu := &testCPU{}

	// First LCD: sector=1, unit=0, read.
	cpu.ac = 1
	if skip, ok := c.HandleIOT(iotLCD, cpu); !ok || skip {
		t.Fatalf("LCD phase1: skip=%v ok=%v", skip, ok)
	}
	// Second LCD: track=0.
	cpu.ac = 0
	if _, ok := c.HandleIOT(iotLCD, cpu); !ok {
		t.Fatal("LCD phase2 not ok")
	}
	if _, ok := c.HandleIOT(iotINTR, cpu); !ok {
		t.Fatal("INTR not ok")
	}
	if cpu.ac&01000 == 0 {
		t.Fatalf("status AC = %o, transfer-ready bit not set", cpu.ac)
	}

	for i := 0; i < wordsPerSectorRX01; i++ {
		if _, ok := c.HandleIOT(iotXDR, cpu); !ok {
			t.Fatalf("XDR[%d] not ok", i)
		}
		if cpu.ac != pattern[i] {
			t.Fatalf("XDR[%d] = %o, want %o", i, cpu.ac, pattern[i])
		}
	}
	if skip, _ := c.HandleIOT(iotSDN, cpu); !skip {
		t.Error("expected skip-on-done after final XDR")
	}
}

func TestAttachInvalidDrive(t *testing.T) {
	c := New()
	if err := c.Attach(9, "x", true); err == nil {
		t.Error("expected error for out-of-range drive")
	}
}

func TestReadSectorNotAttached(t *testing.T) {
	c := New()
	buf := make([]uint16, wordsPerSectorRX01)
	if err := c.ReadSector(0, 0, 0, buf); err == nil {
		t.Error("expected not-attached error")
	}
}

func TestDensityFromExtension(t *testing.T) {
	if densityFromExtension("foo.rx2") != RX02 {
		t.Error("want RX02 for .rx2")
	}
	if densityFromExtension("foo.img") != RX01 {
		t.Error("want RX01 default")
	}
}

func TestDebugAcceptsKnownOptionRejectsUnknown(t *testing.T) {
	c := New()
	if err := c.Debug("cmd"); err != nil {
		t.Errorf("Debug(cmd): %v", err)
	}
	if c.debugMsk&debugCmd == 0 {
		t.Error("debugMsk missing debugCmd bit")
	}
	if err := c.Debug("bogus"); err == nil {
		t.Error("expected error for unknown debug option")
	}
}

func TestAutoCreatedImageSizeMatchesSpec(t *testing.T) {
	rx01 := filepath.Join(t.TempDir(), "rx0.img")
	c := New()
	if err := c.Attach(0, rx01, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	info, err := os.Stat(rx01)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	wantRX01 := int64(sectorBytesRX01) * sectorsPerTrack * tracksPerDrive
	if wantRX01 != 256256 {
		t.Fatalf("sanity: wantRX01 = %d, want 256256", wantRX01)
	}
	if info.Size() != wantRX01 {
		t.Errorf("RX01 image size = %d, want %d", info.Size(), wantRX01)
	}

	rx02 := filepath.Join(t.TempDir(), "rx1.rx2")
	if err := c.Attach(1, rx02, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	info, err = os.Stat(rx02)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	wantRX02 := int64(sectorBytesRX02) * sectorsPerTrack * tracksPerDrive
	if wantRX02 != 512512 {
		t.Fatalf("sanity: wantRX02 = %d, want 512512", wantRX02)
	}
	if info.Size() != wantRX02 {
		t.Errorf("RX02 image size = %d, want %d", info.Size(), wantRX02)
	}
}

func TestSectorWriteZeroPadsTailBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rx0.img")
	c := New()
	if err := c.Attach(0, path, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	words := make([]uint16, wordsPerSectorRX01)
	for i := range words {
		words[i] = 07777
	}
	if err := c.WriteSector(0, 0, 0, words); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	raw := make([]byte, sectorBytesRX01)
	if _, err := c.drives[0].file.ReadAt(raw, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	packedBytes := wordsPerSectorRX01 * 3 / 2
	for i := packedBytes; i < sectorBytesRX01; i++ {
		if raw[i] != 0 {
			t.Fatalf("tail byte %d = %#x, want 0", i, raw[i])
		}
	}
}
