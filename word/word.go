/*
 * olive-petrel - 12-bit word primitives.
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

// Package word holds the 12-bit arithmetic primitives shared by the CPU,
// assembler, and peripheral controllers: masking, octal parsing and
// formatting, and the Link-bit rotate helpers used by the operate group.
package word

const (
	// Mask is the value of every significant bit in a PDP-8 word.
	Mask uint16 = 07777

	// Size is the number of addressable words of core memory.
	Size = 4096

	// PageSize is the number of words sharing bits 11..7 of the address.
	PageSize = 0200

	// PageMask selects the page (bits 11..7) of a 12-bit address.
	PageMask uint16 = 07600
)

// Mask12 truncates a value to the low 12 bits.
func Mask12[T ~int | ~int32 | ~int64 | ~uint | ~uint16 | ~uint32 | ~uint64](v T) uint16 {
	return uint16(v) & Mask
}

// Page returns the page (bits 11..7) an address lives on.
func Page(addr uint16) uint16 {
	return addr & PageMask
}

// SamePage reports whether two addresses share a page.
func SamePage(a, b uint16) bool {
	return Page(a) == Page(b)
}

var octMap = "01234567"

// FormatOctal renders a word as a zero-padded 4-digit octal string, the
// format used throughout listings, symbol files, and S-record start
// addresses ("0ADDR").
func FormatOctal(v uint16) string {
	v &= Mask
	buf := [4]byte{}
	for i := 3; i >= 0; i-- {
		buf[i] = octMap[v&7]
		v >>= 3
	}
	return string(buf[:])
}

// ParseOctal parses a string of octal digits (no prefix) into a word,
// masked to 12 bits. An empty string or a non-octal digit is an error.
func ParseOctal(s string) (uint16, bool) {
	if s == "" {
		return 0, false
	}
	var v uint32
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '7' {
			return 0, false
		}
		v = (v << 3) | uint32(c-'0')
	}
	return uint16(v) & Mask, true
}

// RotateLeft rotates the 13-bit (L,AC) register left by one position and
// returns the new AC and L.
func RotateLeft(ac uint16, l bool) (uint16, bool) {
	reg := uint32(ac) & uint32(Mask)
	if l {
		reg |= 1 << 12
	}
	reg = (reg << 1) & 0x1FFF
	newL := reg&(1<<12) != 0
	newAC := uint16(reg) & Mask
	return newAC, newL
}

// RotateRight rotates the 13-bit (L,AC) register right by one position and
// returns the new AC and L.
func RotateRight(ac uint16, l bool) (uint16, bool) {
	reg := uint32(ac) & uint32(Mask)
	if l {
		reg |= 1 << 12
	}
	newL := reg&1 != 0
	reg >>= 1
	if newL {
		reg |= 1 << 12
	}
	newAC := uint16(reg) & Mask
	return newAC, newL
}

// SwapHalves swaps the two 6-bit halves of AC (BSW).
func SwapHalves(ac uint16) uint16 {
	lo := ac & 077
	hi := (ac >> 6) & 077
	return ((lo << 6) | hi) & Mask
}
