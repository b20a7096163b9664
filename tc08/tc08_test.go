package tc08

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	dev "github.com/rsbohn/olive-petrel/device"
	"github.com/rsbohn/olive-petrel/srec"
)

type testCPU struct {
	ac  uint16
	l   bool
	mem [4096]uint16
}

func (t *testCPU) GetAC() uint16           { return t.ac }
func (t *testCPU) SetAC(v uint16)          { t.ac = v & 07777 }
func (t *testCPU) GetLink() bool           { return t.l }
func (t *testCPU) SetLink(v bool)          { t.l = v }
func (t *testCPU) ReadMem(a uint16) uint16  { return t.mem[a&07777] }
func (t *testCPU) WriteMem(a, v uint16)    { t.mem[a&07777] = v & 07777 }

var _ dev.CPUAccess = (*testCPU)(nil)

func TestWriteReadBlockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tape0.tc08")
	c := New()
	if err := c.Attach(0, path, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer func() { _ = c.Detach(0) }()

	src := make([]uint16, wordsPerBlock)
	for i := 0; i < dataWords; i++ {
		src[i] = uint16(i) & 07777
	}
	if err := c.WriteBlock(0, 5, src); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	got := make([]uint16, wordsPerBlock)
	if err := c.ReadBlock(0, 5, got); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	for i := 0; i < dataWords; i++ {
		if got[i] != uint16(i) {
			t.Fatalf("word %d = %o, want %o", i, got[i], i)
		}
	}
	if got[128] != 0 {
		t.Errorf("word 128 = %o, want 0", got[128])
	}
}

func TestDTLBIOTSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tape0.tc08")
	c := New()
	if err := c.Attach(0, path, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	src := make([]uint16, wordsPerBlock)
	for i := 0; i < dataWords; i++ {
		src[i] = uint16(i*2+1) & 07777
	}
	if err := c.WriteBlock(0, 3, src); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	cpu := &testCPU{}
	cpu.ac = 0300 // transfer address
	if _, ok := c.HandleIOT(iotDTXA, cpu); !ok {
		t.Fatal("DTXA not ok")
	}
	cpu.ac = 3 // unit 0, block 3
	skip, ok := c.HandleIOT(iotDTLB, cpu)
	if !ok || !skip {
		t.Fatalf("DTLB: skip=%v ok=%v", skip, ok)
	}
	for i := 0; i < dataWords; i++ {
		if cpu.mem[0300+i] != src[i] {
			t.Fatalf("mem[%o] = %o, want %o", 0300+i, cpu.mem[0300+i], src[i])
		}
	}
	if skip, _ := c.HandleIOT(iotDTSF, cpu); !skip {
		t.Error("expected skip-on-ready after successful DTLB")
	}
}

func TestReadBlockNotAttached(t *testing.T) {
	c := New()
	buf := make([]uint16, wordsPerBlock)
	if err := c.ReadBlock(0, 0, buf); err == nil {
		t.Error("expected not-attached error")
	}
}

func TestReadBlockInvalidDrive(t *testing.T) {
	c := New()
	buf := make([]uint16, wordsPerBlock)
	if err := c.ReadBlock(9, 0, buf); err == nil {
		t.Error("expected invalid-drive error")
	}
}

func TestSRecordBackedImageIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tape0.srec")
	lines := srec.Encode(map[uint16]uint16{0: 1, 1: 2}, 0)
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c := New()
	if err := c.Attach(0, path, false); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	buf := make([]uint16, wordsPerBlock)
	if err := c.WriteBlock(0, 0, buf); err == nil {
		t.Error("expected read-only error writing to S-record image")
	}
}

func TestDTLBSelectsUnitFromBit10(t *testing.T) {
	path0 := filepath.Join(t.TempDir(), "tape0.tc08")
	path1 := filepath.Join(t.TempDir(), "tape1.tc08")
	c := New()
	if err := c.Attach(0, path0, true); err != nil {
		t.Fatalf("Attach(0): %v", err)
	}
	if err := c.Attach(1, path1, true); err != nil {
		t.Fatalf("Attach(1): %v", err)
	}

	src0 := make([]uint16, wordsPerBlock)
	src1 := make([]uint16, wordsPerBlock)
	for i := 0; i < dataWords; i++ {
		src0[i] = uint16(i) & 07777
		src1[i] = uint16(07777 - i)
	}
	if err := c.WriteBlock(0, 2, src0); err != nil {
		t.Fatalf("WriteBlock(0): %v", err)
	}
	if err := c.WriteBlock(1, 2, src1); err != nil {
		t.Fatalf("WriteBlock(1): %v", err)
	}

	cpu := &testCPU{}
	cpu.ac = 0100
	if _, ok := c.HandleIOT(iotDTXA, cpu); !ok {
		t.Fatal("DTXA not ok")
	}
	cpu.ac = 02002 // unit 1 (bit10), block 2
	if skip, ok := c.HandleIOT(iotDTLB, cpu); !ok || !skip {
		t.Fatalf("DTLB: skip=%v ok=%v", skip, ok)
	}
	for i := 0; i < dataWords; i++ {
		if cpu.mem[0100+i] != src1[i] {
			t.Fatalf("mem[%o] = %o, want unit1's %o", 0100+i, cpu.mem[0100+i], src1[i])
		}
	}
}

func TestGetStatusInvalidDrive(t *testing.T) {
	c := New()
	if _, err := c.GetStatus(9); err == nil {
		t.Error("expected invalid-drive error")
	}
}

func TestDebugAcceptsKnownOptionRejectsUnknown(t *testing.T) {
	c := New()
	if err := c.Debug("DATA"); err != nil {
		t.Errorf("Debug(DATA): %v", err)
	}
	if c.debugMsk&debugData == 0 {
		t.Error("debugMsk missing debugData bit")
	}
	if err := c.Debug("bogus"); err == nil {
		t.Error("expected error for unknown debug option")
	}
}
