/*
 * olive-petrel - LPT line printer device.
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

// Package lpt implements the LPT line printer device: a byte sink behind
// the LPT/LPTC IOTs (spec §4.1). Unlike the teacher's 1403 model, there is
// no FCB/carriage-control machinery here — the guest only ever writes
// bytes, so the device is a host file opened by Attach plus a line buffer
// that flushes on newline.
package lpt

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	dev "github.com/rsbohn/olive-petrel/device"
)

// Printer is the LPT device's host-side state: the output file opened by
// Attach and an in-flight line buffer.
type Printer struct {
	path   string
	file   *os.File
	w      *bufio.Writer
	buf    []byte
	failed bool
}

// New returns a printer with no attached file; writes are silently
// discarded until Attach succeeds, matching "the core must function
// without them" for optional peripherals.
func New() *Printer {
	return &Printer{}
}

// Attach opens path for append, creating it if needed, and flushes any
// previously opened file first.
func (p *Printer) Attach(path string) error {
	if err := p.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("lpt: attach %s: %w", path, err)
	}
	p.path = path
	p.file = f
	p.w = bufio.NewWriter(f)
	p.failed = false
	return nil
}

// Close flushes and closes the attached file, if any.
func (p *Printer) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.w.Flush()
	closeErr := p.file.Close()
	p.file, p.w, p.path = nil, nil, ""
	if err != nil {
		return err
	}
	return closeErr
}

// WriteByte appends one character to the current line, flushing the host
// file on newline. A write after a prior host I/O failure, or with no
// file attached, is a silent no-op. The first failure is logged once
// (spec §9: "reported once and then suppressed to avoid log flooding");
// every failure after that is silent.
func (p *Printer) WriteByte(b byte) {
	if p.w == nil || p.failed {
		return
	}
	if err := p.w.WriteByte(b); err != nil {
		p.reportFailure(err)
		return
	}
	if b == '\n' {
		if err := p.w.Flush(); err != nil {
			p.reportFailure(err)
		}
	}
}

func (p *Printer) reportFailure(err error) {
	p.failed = true
	slog.Warn("lpt write failed, suppressing further reports", "path", p.path, "error", err)
}

// HandleIOT implements device.IOTHandler for LPT/LPTC.
func (p *Printer) HandleIOT(instr uint16, cpu dev.CPUAccess) (skip bool, ok bool) {
	switch instr {
	case 06604, 06606: // LPT, LPTC
		p.WriteByte(byte(cpu.GetAC() & 0377))
		return false, true
	}
	return false, false
}

var _ dev.IOTHandler = (*Printer)(nil)
