/*
 * olive-petrel - TC08 DECtape controller.
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

// Package tc08 implements the TC08 DECtape controller: 129-word block
// I/O against a flat binary image or a read-only S-record image, and the
// IOT state machine described in spec §4.4.
package tc08

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"strings"

	dev "github.com/rsbohn/olive-petrel/device"
	"github.com/rsbohn/olive-petrel/srec"
	w "github.com/rsbohn/olive-petrel/word"
)

// Debug options, same bitfield-per-device approach as rx8e.
const (
	debugCmd = 1 << iota
	debugData
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

const (
	wordsPerBlock = 129
	dataWords     = 128

	// DTLB's AC operand packs a unit-select bit above the 10-bit block
	// field (spec §4.4: "unit = bit10, block = AC & 01777"), so the
	// controller addresses exactly two units.
	numDrives = 2

	// IOT opcodes (octal), spec §4.4.
	iotDTCA = 06762
	iotDTSF = 06764
	iotDTLB = 06766
	iotDTXA = 06771
)

// drive is one DECtape unit's host-side state.
type drive struct {
	path     string
	file     *os.File
	image    []uint16 // non-nil when S-record-backed
	readOnly bool
	attached bool
}

// Controller is the TC08 state machine plus its attached drives. Only
// one transfer is ever in flight, so transferAddr/ready are shared
// controller state even though storage is per-drive, matching rx8e's
// shared-transfer-state pattern.
type Controller struct {
	drives [numDrives]drive

	ready        bool
	transferAddr uint16

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
		return fmt.Errorf("tc08: invalid debug option %q", opt)
	}
	c.debugMsk |= flag
	return nil
}

// Attach opens path as unit n's drive. If the file begins with an S1/S9
// record it is decoded into an in-memory, read-only word image (spec
// §4.4); otherwise it is treated as a flat binary block image.
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
		return fmt.Errorf("tc08: attach %s: %w", path, err)
	}

	if looksLikeSRecord(f) {
		words, start, decodeErr := decodeSRecordFile(f)
		_ = f.Close()
		if decodeErr != nil {
			return fmt.Errorf("tc08: attach %s: %w", path, decodeErr)
		}
		_ = start
		c.drives[n] = drive{path: path, image: words, readOnly: true, attached: true}
		return nil
	}

	c.drives[n] = drive{path: path, file: f, attached: true}
	return nil
}

func looksLikeSRecord(f *os.File) bool {
	var hdr [2]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return false
	}
	return hdr[0] == 'S' && hdr[1] >= '0' && hdr[1] <= '9'
}

func decodeSRecordFile(f *os.File) ([]uint16, *uint16, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return nil, nil, err
	}
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	bytes, start, err := srec.Decode(lines)
	if err != nil {
		return nil, nil, err
	}
	words := srec.WordsFromBytes(bytes)
	max := uint16(0)
	for a := range words {
		if a > max {
			max = a
		}
	}
	img := make([]uint16, int(max)+1)
	for a, v := range words {
		img[a] = v
	}
	return img, start, nil
}

// Detach closes unit n's host file, if any.
func (c *Controller) Detach(n int) error {
	if n < 0 || n >= numDrives {
		return dev.ErrInvalidDrive
	}
	d := &c.drives[n]
	if !d.attached {
		return nil
	}
	var err error
	if d.file != nil {
		err = d.file.Close()
	}
	*d = drive{}
	return err
}

// Status mirrors ready/attachment state.
type Status struct {
	Attached bool
	ReadOnly bool
	Ready    bool
}

// GetStatus reports unit n's attachment state.
func (c *Controller) GetStatus(n int) (Status, error) {
	if n < 0 || n >= numDrives {
		return Status{}, dev.ErrInvalidDrive
	}
	d := &c.drives[n]
	return Status{Attached: d.attached, ReadOnly: d.readOnly, Ready: c.ready}, nil
}

// checkUnit validates n and block against unit n's drive.
func (c *Controller) checkUnit(n, block int) (*drive, error) {
	if n < 0 || n >= numDrives {
		return nil, dev.ErrInvalidDrive
	}
	d := &c.drives[n]
	if !d.attached {
		return nil, dev.ErrNotAttached
	}
	if block < 0 {
		return nil, dev.ErrInvalidBlock
	}
	return d, nil
}

// ReadBlock reads one 129-word block from unit n into target.
func (c *Controller) ReadBlock(n, block int, target []uint16) error {
	d, err := c.checkUnit(n, block)
	if err != nil {
		return err
	}
	if len(target) < wordsPerBlock {
		return dev.ErrBufferTooSmall
	}
	if d.image != nil {
		base := block * wordsPerBlock
		for i := 0; i < wordsPerBlock; i++ {
			if base+i < len(d.image) {
				target[i] = d.image[base+i] & w.Mask
			} else {
				target[i] = 0
			}
		}
		return nil
	}

	buf := make([]byte, wordsPerBlock*2)
	off := int64(block) * int64(wordsPerBlock) * 2
	n2, err := d.file.ReadAt(buf, off)
	if n2 == 0 {
		for i := range target[:wordsPerBlock] {
			target[i] = 0
		}
		return nil
	}
	if err != nil && n2 < len(buf) {
		for i := n2; i < len(buf); i++ {
			buf[i] = 0
		}
	}
	for i := 0; i < wordsPerBlock; i++ {
		target[i] = binary.LittleEndian.Uint16(buf[2*i:]) & w.Mask
	}
	return nil
}

// WriteBlock packs source's words (word index 128 forced to zero) and
// writes them to unit n's block.
func (c *Controller) WriteBlock(n, block int, source []uint16) error {
	d, err := c.checkUnit(n, block)
	if err != nil {
		return err
	}
	if d.readOnly {
		return dev.ErrReadOnlyImage
	}
	if len(source) < wordsPerBlock {
		return dev.ErrBufferTooSmall
	}
	buf := make([]byte, wordsPerBlock*2)
	for i := 0; i < dataWords; i++ {
		binary.LittleEndian.PutUint16(buf[2*i:], source[i]&w.Mask)
	}
	// word 128 forced to zero.
	off := int64(block) * int64(wordsPerBlock) * 2
	if _, err := d.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("tc08: write block: %w", err)
	}
	return nil
}

// HandleIOT implements device.IOTHandler.
func (c *Controller) HandleIOT(instr uint16, cpu dev.CPUAccess) (skip bool, ok bool) {
	switch instr {
	case iotDTCA:
		c.ready = false
		c.transferAddr = 0
		return false, true

	case iotDTXA:
		c.transferAddr = cpu.GetAC() & w.Mask
		return false, true

	case iotDTSF:
		return c.ready, true

	case iotDTLB:
		ac := cpu.GetAC()
		unit := int((ac >> 10) & 1)
		block := int(ac & 01777)
		if c.debugMsk&debugCmd != 0 {
			slog.Debug("tc08 load block", "unit", unit, "block", block, "addr", w.FormatOctal(c.transferAddr))
		}
		buf := make([]uint16, wordsPerBlock)
		if err := c.ReadBlock(unit, block, buf); err != nil {
			c.ready = false
			return false, true
		}
		for i, v := range buf {
			addr := (c.transferAddr + uint16(i)) & w.Mask
			cpu.WriteMem(addr, v)
		}
		c.ready = true
		return true, true
	}
	return false, false
}
