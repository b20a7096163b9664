/*
 * olive-petrel - Motorola S-record codec (S1/S9 subset).
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

// Package srec encodes and decodes Motorola S1/S9 records. A PDP-8 word is
// two bytes: the low 8 bits live at byte address 2*w, the high 4 bits at
// byte address 2*w+1. This is the wire format shared by program images and
// tape images (spec §4.5).
package srec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	w "github.com/rsbohn/olive-petrel/word"
)

var (
	ErrInvalidChecksum = errors.New("invalid checksum")
	ErrMalformedSRecord = errors.New("malformed s-record")
)

const maxDataBytes = 32

// WordBytes splits a 12-bit word into its two wire bytes at byte addresses
// 2*addr and 2*addr+1.
func WordBytes(word uint16) (lo, hi byte) {
	v := w.Mask12(word)
	return byte(v & 0xFF), byte((v >> 8) & 0x0F)
}

// Encode renders words (sparse address -> 12-bit value) as S1 lines
// followed by a single S9 terminator at byte address 2*startAddr.
func Encode(words map[uint16]uint16, startAddr uint16) []string {
	addrs := make([]uint16, 0, len(words))
	for a := range words {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	bytes := make(map[uint32]byte, len(words)*2)
	byteAddrs := make([]uint32, 0, len(words)*2)
	for _, a := range addrs {
		lo, hi := WordBytes(words[a])
		ba := uint32(a) * 2
		bytes[ba] = lo
		bytes[ba+1] = hi
		byteAddrs = append(byteAddrs, ba, ba+1)
	}
	sort.Slice(byteAddrs, func(i, j int) bool { return byteAddrs[i] < byteAddrs[j] })

	var lines []string
	i := 0
	for i < len(byteAddrs) {
		runStart := byteAddrs[i]
		j := i + 1
		for j < len(byteAddrs) && j-i < maxDataBytes &&
			byteAddrs[j] == byteAddrs[j-1]+1 {
			j++
		}
		data := make([]byte, 0, j-i)
		for k := i; k < j; k++ {
			data = append(data, bytes[byteAddrs[k]])
		}
		lines = append(lines, formatS1(runStart, data))
		i = j
	}
	lines = append(lines, formatS9(uint32(startAddr)*2))
	return lines
}

func formatS1(addr uint32, data []byte) string {
	count := len(data) + 3 // address(2) + data + checksum(1)
	var b strings.Builder
	fmt.Fprintf(&b, "S1%02X%04X", count, addr)
	sum := byte(count) + byte(addr>>8) + byte(addr)
	for _, d := range data {
		fmt.Fprintf(&b, "%02X", d)
		sum += d
	}
	fmt.Fprintf(&b, "%02X", ^sum)
	return b.String()
}

func formatS9(addr uint32) string {
	count := 3
	sum := byte(count) + byte(addr>>8) + byte(addr)
	return fmt.Sprintf("S9%02X%04X%02X", count, addr, ^sum)
}

// Decode parses S1/S9 lines into a sparse byte map plus an optional start
// word address recovered from the S9 record.
func Decode(lines []string) (map[uint32]byte, *uint16, error) {
	bytes := make(map[uint32]byte)
	var start *uint16
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) < 4 || line[0] != 'S' {
			return nil, nil, fmt.Errorf("%w: %q", ErrMalformedSRecord, line)
		}
		kind := line[1]
		countVal, err := strconv.ParseUint(line[2:4], 16, 8)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: bad count in %q", ErrMalformedSRecord, line)
		}
		count := int(countVal)
		rest := line[4:]
		if len(rest) < 2*count {
			return nil, nil, fmt.Errorf("%w: short record %q", ErrMalformedSRecord, line)
		}
		raw := make([]byte, count)
		for k := 0; k < count; k++ {
			v, err := strconv.ParseUint(rest[2*k:2*k+2], 16, 8)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: bad hex in %q", ErrMalformedSRecord, line)
			}
			raw[k] = byte(v)
		}
		sum := byte(countVal)
		for _, b := range raw[:count-1] {
			sum += b
		}
		if ^sum != raw[count-1] {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidChecksum, line)
		}
		addr := uint32(raw[0])<<8 | uint32(raw[1])
		switch kind {
		case '1':
			for k, b := range raw[2 : count-1] {
				bytes[addr+uint32(k)] = b
			}
		case '9':
			sw := uint16(addr / 2)
			start = &sw
		default:
			return nil, nil, fmt.Errorf("%w: unsupported record type in %q", ErrMalformedSRecord, line)
		}
	}
	return bytes, start, nil
}

// WordsFromBytes reassembles 12-bit words from a decoded byte map, per the
// 2w/2w+1 packing Encode uses.
func WordsFromBytes(bytes map[uint32]byte) map[uint16]uint16 {
	words := make(map[uint16]uint16)
	for ba, lo := range bytes {
		if ba%2 != 0 {
			continue
		}
		hi := bytes[ba+1]
		words[uint16(ba/2)] = (uint16(hi&0x0F) << 8) | uint16(lo)
	}
	return words
}
