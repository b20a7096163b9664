/*
 * olive-petrel - Peripheral device interface.
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

// Package device names the small capability interface peripherals use to
// intercept IOT instructions, breaking the import cycle between cpu and
// the individual controllers (rx8e, tc08, lpt).
package device

import "errors"

// CPUAccess is the slice of CPU state a device needs to service an IOT:
// reading/setting AC and L, and touching memory for block transfers that
// go through an auto-index pointer.
type CPUAccess interface {
	GetAC() uint16
	SetAC(uint16)
	GetLink() bool
	SetLink(bool)
	ReadMem(addr uint16) uint16
	WriteMem(addr, data uint16)
}

// IOTHandler is implemented by every peripheral controller. HandleIOT is
// given the full 12-bit instruction; it returns true if the next
// instruction should be skipped (the PDP-8 "skip" convention used by
// *SF-style device-ready tests), and ok=false if the opcode did not
// belong to this device.
type IOTHandler interface {
	HandleIOT(instr uint16, cpu CPUAccess) (skip bool, ok bool)
}

// Shared admin-operation error sentinels, used by rx8e and tc08 alike.
var (
	ErrInvalidDrive   = errors.New("invalid drive")
	ErrNotAttached    = errors.New("not attached")
	ErrInvalidTrack   = errors.New("invalid track")
	ErrInvalidSector  = errors.New("invalid sector")
	ErrInvalidBlock   = errors.New("invalid block")
	ErrBufferTooSmall = errors.New("buffer too small")
	ErrReadOnlyImage  = errors.New("read-only image")
)
