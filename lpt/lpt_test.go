package lpt

import (
	"os"
	"path/filepath"
	"testing"

	dev "github.com/rsbohn/olive-petrel/device"
)

type testCPU struct{ ac uint16 }

func (t *testCPU) GetAC() uint16           { return t.ac }
func (t *testCPU) SetAC(v uint16)          { t.ac = v & 07777 }
func (t *testCPU) GetLink() bool           { return false }
func (t *testCPU) SetLink(bool)            {}
func (t *testCPU) ReadMem(uint16) uint16   { return 0 }
func (t *testCPU) WriteMem(uint16, uint16) {}

var _ dev.CPUAccess = (*testCPU)(nil)

func TestWriteByteFlushesOnNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpt.out")
	p := New()
	if err := p.Attach(path); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	for _, b := range []byte("HI\n") {
		p.WriteByte(b)
	}
	_ = p.Close()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "HI\n" {
		t.Errorf("file contents = %q, want %q", got, "HI\n")
	}
}

func TestHandleIOTWritesACLowByte(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpt.out")
	p := New()
	if err := p.Attach(path); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	cpu := &testCPU{ac: 0101} // 'A'
	if _, ok := p.HandleIOT(06604, cpu); !ok {
		t.Fatal("HandleIOT not ok")
	}
	_ = p.Close()

	got, _ := os.ReadFile(path)
	if string(got) != "A" {
		t.Errorf("file contents = %q, want %q", got, "A")
	}
}

func TestWriteByteNoopWithoutAttach(t *testing.T) {
	p := New()
	p.WriteByte('x') // must not panic
}

func TestWriteByteSuppressesAfterFirstFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpt.out")
	p := New()
	if err := p.Attach(path); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	_ = p.file.Close() // force subsequent writes to fail
	p.WriteByte('\n') // newline flushes the buffer, which hits the closed file
	if !p.failed {
		t.Fatal("expected failed=true after a write error")
	}
	p.WriteByte('y') // must be a silent no-op, not a second error
}
