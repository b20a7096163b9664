/*
 * olive-petrel - RX8E floppy disk controller.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package rx8e implements the RX8E floppy disk controller: the multi-phase
// LCD command load, 1½-byte sector packing for RX01/RX02 media, and the
// IOT state machine described in spec §4.3.
package rx8e

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	dev "github.com/rsbohn/olive-petrel/device"
	w "github.com/rsbohn/olive-petrel/word"
)

// Debug options, mirroring the teacher's per-device debugOption/debugMsk
// bitfield pattern rather than a single global verbosity knob.
const (
	debugCmd = 1 << iota
	debugData
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

// Density selects single- (RX01) or double- (RX02) density geometry.
type Density int

const (
	RX01 Density = iota
	RX02
)

const (
	tracksPerDrive  = 77
	sectorsPerTrack = 26

	wordsPerSectorRX01 = 64
	wordsPerSectorRX02 = 128

	// Sector size is fixed by the media format (spec §3/§6), independent
	// of how many words are packed into it: RX01 sectors are always 128
	// bytes and RX02 sectors always 256, with any bytes past the packed
	// words left zero.
	sectorBytesRX01 = 128
	sectorBytesRX02 = 256

	numDrives = 2

	// IOT opcodes (octal), spec §4.3.
	iotLCD  = 06751
	iotXDR  = 06752
	iotSTR  = 06753
	iotSER  = 06754
	iotSDN  = 06755
	iotINTR = 06756
	iotInit = 06757
)

func wordsPerSector(d Density) int {
	if d == RX02 {
		return wordsPerSectorRX02
	}
	return wordsPerSectorRX01
}

func sectorBytes(d Density) int {
	if d == RX02 {
		return sectorBytesRX02
	}
	return sectorBytesRX01
}

func imageSize(d Density) int64 {
	return int64(sectorBytes(d)) * sectorsPerTrack * tracksPerDrive
}

// drive is one floppy unit's host-side state.
type drive struct {
	path     string
	density  Density
	file     *os.File
	attached bool
}

// Controller is the RX8E state machine plus its attached drives.
type Controller struct {
	drives [numDrives]drive

	loadPhase     int
	pendingUnit   int
	pendingSector int
	pendingTrack  int
	pendingWrite  bool

	sectorBuffer [wordsPerSectorRX02]uint16
	wordIndex    int
	wordsPerSec  int

	transferReady bool
	done          bool
	errored       bool

	debugMsk int
}

// New returns a controller with no drives attached.
func New() *Controller {
	return &Controller{}
}

// Debug enables a debug option ("CMD" or "DATA"), logged via slog at
// Debug level.
func (c *Controller) Debug(opt string) error {
	flag, ok := debugOption[strings.ToUpper(opt)]
	if !ok {
		return fmt.Errorf("rx8e: invalid debug option %q", opt)
	}
	c.debugMsk |= flag
	return nil
}

// Attach opens path as drive n. Density is inferred from path's extension
// (".rx2"/".rx02" selects RX02, anything else RX01) when creating, and
// from file size on an existing file (spec §4.3/§6: size ≥ RX02 byte
// count selects RX02).
func (c *Controller) Attach(n int, path string, createIfMissing bool) error {
	if n < 0 || n >= numDrives {
		return dev.ErrInvalidDrive
	}
	flags := os.O_RDWR
	if createIfMissing {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("rx8e: attach %s: %w", path, err)
	}
	density := densityFromExtension(path)
	info, statErr := f.Stat()
	if statErr == nil && info.Size() > 0 {
		density = RX01
		if info.Size() >= imageSize(RX02) {
			density = RX02
		}
	}
	if statErr == nil && info.Size() == 0 && createIfMissing {
		if err := f.Truncate(imageSize(density)); err != nil {
			_ = f.Close()
			return fmt.Errorf("rx8e: size %s: %w", path, err)
		}
	}
	c.drives[n] = drive{path: path, density: density, file: f, attached: true}
	return nil
}

func densityFromExtension(path string) Density {
	if strings.HasSuffix(path, ".rx2") || strings.HasSuffix(path, ".rx02") {
		return RX02
	}
	return RX01
}

// Detach closes the drive's host file, if any.
func (c *Controller) Detach(n int) error {
	if n < 0 || n >= numDrives {
		return dev.ErrInvalidDrive
	}
	d := &c.drives[n]
	if !d.attached {
		return nil
	}
	err := d.file.Close()
	*d = drive{}
	return err
}

func (c *Controller) checkUnit(n, track, sector int) (*drive, error) {
	if n < 0 || n >= numDrives {
		return nil, dev.ErrInvalidDrive
	}
	d := &c.drives[n]
	if !d.attached {
		return nil, dev.ErrNotAttached
	}
	if track < 0 || track >= tracksPerDrive {
		return nil, dev.ErrInvalidTrack
	}
	if sector < 0 || sector >= sectorsPerTrack {
		return nil, dev.ErrInvalidSector
	}
	return d, nil
}

// ReadSector reads one sector's words into target.
func (c *Controller) ReadSector(n, track, sector int, target []uint16) error {
	d, err := c.checkUnit(n, track, sector)
	if err != nil {
		return err
	}
	wps := wordsPerSector(d.density)
	if len(target) < wps {
		return dev.ErrBufferTooSmall
	}
	buf := make([]byte, sectorBytes(d.density))
	off := sectorOffset(d.density, track, sector)
	if n, err := d.file.ReadAt(buf, off); err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return fmt.Errorf("rx8e: read sector: %w", err)
	}
	unpackSector(buf, target[:wps])
	return nil
}

// WriteSector packs source's words and writes them to the sector.
func (c *Controller) WriteSector(n, track, sector int, source []uint16) error {
	d, err := c.checkUnit(n, track, sector)
	if err != nil {
		return err
	}
	wps := wordsPerSector(d.density)
	if len(source) < wps {
		return dev.ErrBufferTooSmall
	}
	// Zero-initialized: any bytes past the packed words stay zero, per
	// spec §6 ("unused tail bytes of a sector are zero on write").
	buf := make([]byte, sectorBytes(d.density))
	packSector(source[:wps], buf)
	off := sectorOffset(d.density, track, sector)
	if _, err := d.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("rx8e: write sector: %w", err)
	}
	return nil
}

func sectorOffset(density Density, track, sector int) int64 {
	return (int64(track)*sectorsPerTrack + int64(sector)) * int64(sectorBytes(density))
}

// packSector packs words (n of them) into 1½-byte-per-word wire bytes.
func packSector(words []uint16, out []byte) {
	for i := 0; i+1 < len(words); i += 2 {
		w0 := words[i] & w.Mask
		w1 := words[i+1] & w.Mask
		bi := i * 3 / 2
		out[bi] = byte(w0 & 0xFF)
		out[bi+1] = byte((w0>>8)&0x0F) | byte((w1&0x0F)<<4)
		out[bi+2] = byte((w1 >> 4) & 0xFF)
	}
}

// unpackSector is packSector's inverse.
func unpackSector(in []byte, words []uint16) {
	for i := 0; i+1 < len(words); i += 2 {
		bi := i * 3 / 2
		w0 := uint16(in[bi]) | (uint16(in[bi+1]&0x0F) << 8)
		w1 := (uint16(in[bi+1]>>4) & 0x0F) | (uint16(in[bi+2]) << 4)
		words[i] = w0
		words[i+1] = w1 & w.Mask
	}
}

// Status mirrors the RX_INTR status word: bit 11 done, bit 10 error, bit 9
// transfer-ready (spec §4.3; layout is an emulator convention, not the
// historical RX8E format).
type Status struct {
	Done          bool
	Error         bool
	TransferReady bool
}

// GetStatus validates n and reports the controller's done/error/
// transfer-ready flags, which are shared by all drives (the same flags
// RX_INTR packs into its status word).
func (c *Controller) GetStatus(n int) (Status, error) {
	if n < 0 || n >= numDrives {
		return Status{}, dev.ErrInvalidDrive
	}
	return Status{Done: c.done, Error: c.errored, TransferReady: c.transferReady}, nil
}

// HandleIOT implements device.IOTHandler.
func (c *Controller) HandleIOT(instr uint16, cpu dev.CPUAccess) (skip bool, ok bool) {
	switch instr {
	case iotLCD:
		ac := cpu.GetAC()
		if c.loadPhase == 0 {
			c.pendingUnit = int((ac >> 5) & 1)
			c.pendingSector = int(ac & 037)
			c.pendingWrite = (ac>>6)&1 != 0
			c.loadPhase = 1
		} else {
			c.pendingTrack = int(ac & 0xFF)
			c.loadPhase = 2
			if c.debugMsk&debugCmd != 0 {
				slog.Debug("rx8e LCD", "unit", c.pendingUnit, "track", c.pendingTrack,
					"sector", c.pendingSector, "write", c.pendingWrite)
			}
		}
		return false, true

	case iotINTR:
		c.serviceIntr(cpu)
		return false, true

	case iotXDR:
		c.serviceXdr(cpu)
		return false, true

	case iotSTR:
		return c.transferReady, true

	case iotSER:
		return c.errored, true

	case iotSDN:
		return c.done, true

	case iotInit:
		c.loadPhase = 0
		c.pendingUnit, c.pendingSector, c.pendingTrack = 0, 0, 0
		c.pendingWrite = false
		c.wordIndex = 0
		c.wordsPerSec = 0
		c.transferReady, c.done, c.errored = false, false, false
		return false, true
	}
	return false, false
}

func (c *Controller) serviceIntr(cpu dev.CPUAccess) {
	if c.loadPhase != 2 {
		c.errored = true
		c.transferReady = false
		c.setStatusAC(cpu)
		return
	}
	c.loadPhase = 0
	d, err := c.checkUnit(c.pendingUnit, c.pendingTrack, c.pendingSector)
	if err != nil {
		c.errored = true
		c.transferReady = false
		c.setStatusAC(cpu)
		return
	}
	c.wordsPerSec = wordsPerSector(d.density)
	c.wordIndex = 0
	c.done = false
	c.errored = false
	if c.pendingWrite {
		for i := range c.sectorBuffer {
			c.sectorBuffer[i] = 0
		}
	} else {
		if err := c.ReadSector(c.pendingUnit, c.pendingTrack, c.pendingSector, c.sectorBuffer[:c.wordsPerSec]); err != nil {
			c.errored = true
			c.transferReady = false
			c.setStatusAC(cpu)
			return
		}
	}
	c.transferReady = true
	c.setStatusAC(cpu)
}

func (c *Controller) setStatusAC(cpu dev.CPUAccess) {
	var status uint16
	if c.done {
		status |= 04000
	}
	if c.errored {
		status |= 02000
	}
	if c.transferReady {
		status |= 01000
	}
	cpu.SetAC(status)
}

func (c *Controller) serviceXdr(cpu dev.CPUAccess) {
	if !c.transferReady || c.wordIndex >= c.wordsPerSec {
		return
	}
	if c.pendingWrite {
		c.sectorBuffer[c.wordIndex] = cpu.GetAC() & w.Mask
	} else {
		cpu.SetAC(c.sectorBuffer[c.wordIndex])
	}
	c.wordIndex++
	if c.wordIndex == c.wordsPerSec {
		if c.pendingWrite {
			if err := c.WriteSector(c.pendingUnit, c.pendingTrack, c.pendingSector, c.sectorBuffer[:c.wordsPerSec]); err != nil {
				c.errored = true
			}
		}
		c.transferReady = false
		c.done = true
		if c.debugMsk&debugData != 0 {
			slog.Debug("rx8e sector complete", "unit", c.pendingUnit, "words", c.wordsPerSec, "errored", c.errored)
		}
	}
}
