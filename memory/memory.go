/*
 * olive-petrel - Core memory.
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

// Package memory implements the PDP-8's 4096-word core memory.
package memory

import (
	"errors"
	"fmt"

	w "github.com/rsbohn/olive-petrel/word"
)

// ErrAddressOutOfRange is returned by Read/Write when addr is not in
// [0, word.Size).
var ErrAddressOutOfRange = errors.New("address out of range")

// Memory is a flat array of 4096 12-bit words.
type Memory struct {
	cells [w.Size]uint16
}

// New returns a zeroed memory.
func New() *Memory {
	return &Memory{}
}

// Reset zeroes every cell.
func (m *Memory) Reset() {
	for i := range m.cells {
		m.cells[i] = 0
	}
}

// Read returns the word at addr, range-checked.
func (m *Memory) Read(addr uint16) (uint16, error) {
	if int(addr) >= w.Size {
		return 0, fmt.Errorf("read %04o: %w", addr, ErrAddressOutOfRange)
	}
	return m.cells[addr], nil
}

// Write stores data (masked to 12 bits) at addr, range-checked.
func (m *Memory) Write(addr, data uint16) error {
	if int(addr) >= w.Size {
		return fmt.Errorf("write %04o: %w", addr, ErrAddressOutOfRange)
	}
	m.cells[addr] = data & w.Mask
	return nil
}

// ReadUnchecked returns the word at addr without bounds checking; addr is
// masked to the valid index range first. Used by the CPU's fetch/operand
// paths, which already guarantee addr < word.Size through PC wraparound
// and effective-address masking.
func (m *Memory) ReadUnchecked(addr uint16) uint16 {
	return m.cells[addr&(w.Size-1)]
}

// WriteUnchecked stores data at addr without bounds checking, see
// ReadUnchecked.
func (m *Memory) WriteUnchecked(addr, data uint16) {
	m.cells[addr&(w.Size-1)] = data & w.Mask
}

// Increment adds one (mod 4096) to the cell at addr and returns the new
// value. Used by ISZ and auto-index pre-increment.
func (m *Memory) Increment(addr uint16) uint16 {
	v := (m.ReadUnchecked(addr) + 1) & w.Mask
	m.WriteUnchecked(addr, v)
	return v
}
