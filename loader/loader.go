/*
 * olive-petrel - core memory image loaders (simple octal, saved memory, S-record).
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

// Package loader reads the three host text/binary formats spec §6 defines
// for getting a word map into core: the simple octal image (with its own
// built-in S-record sniff), the saved-memory-image format, and plain
// S-records via the srec package.
package loader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rsbohn/olive-petrel/srec"
	w "github.com/rsbohn/olive-petrel/word"
)

var (
	ErrMalformedImage = errors.New("malformed image")
)

// Result is a loaded word map plus an optional starting PC, set when the
// source was an S-record file with an S9 terminator.
type Result struct {
	Words map[uint16]uint16
	PC    *uint16
}

// Load reads the simple octal image format (spec §6 format 1): whitespace-
// separated octal tokens, `@ADDR`/`ADDR:` load-address setters, `ADDR:VALUE`
// combined tokens, `;`/`#` line comments, and automatic S-record detection
// when the first non-empty line starts with `S` followed by a digit.
func Load(text string) (*Result, error) {
	if looksLikeSRecord(text) {
		return LoadSRecord(strings.Split(text, "\n"))
	}

	words := map[uint16]uint16{}
	var addr uint16

	for _, rawLine := range strings.Split(text, "\n") {
		line := stripLineComment(rawLine)
		for _, tok := range strings.Fields(line) {
			switch {
			case strings.HasPrefix(tok, "@"):
				a, err := parseOctalToken(tok[1:])
				if err != nil {
					return nil, err
				}
				addr = a
			case strings.HasSuffix(tok, ":"):
				a, err := parseOctalToken(strings.TrimSuffix(tok, ":"))
				if err != nil {
					return nil, err
				}
				addr = a
			default:
				if i := strings.IndexByte(tok, ':'); i >= 0 {
					a, err := parseOctalToken(tok[:i])
					if err != nil {
						return nil, err
					}
					v, err := parseOctalToken(tok[i+1:])
					if err != nil {
						return nil, err
					}
					addr = a
					words[addr] = v
					addr = w.Mask12(addr + 1)
					continue
				}
				v, err := parseOctalToken(tok)
				if err != nil {
					return nil, err
				}
				words[addr] = v
				addr = w.Mask12(addr + 1)
			}
		}
	}
	return &Result{Words: words}, nil
}

// LoadSavedMemory reads the saved-memory-image format (spec §6 format 2):
// one line per up to 8 words, `OADDR: W0 W1 … W7`, all octal.
func LoadSavedMemory(text string) (*Result, error) {
	words := map[uint16]uint16{}
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedImage, rawLine)
		}
		addr, err := parseOctalToken(strings.TrimSpace(line[:i]))
		if err != nil {
			return nil, err
		}
		for j, tok := range strings.Fields(line[i+1:]) {
			v, err := parseOctalToken(tok)
			if err != nil {
				return nil, err
			}
			words[w.Mask12(addr+uint16(j))] = v
		}
	}
	return &Result{Words: words}, nil
}

// LoadSRecord reads a Motorola S1/S9 file (spec §6 format 3) via srec.
func LoadSRecord(lines []string) (*Result, error) {
	bytes, startWord, err := srec.Decode(lines)
	if err != nil {
		return nil, err
	}
	return &Result{Words: srec.WordsFromBytes(bytes), PC: startWord}, nil
}

func looksLikeSRecord(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		return len(trimmed) >= 2 && (trimmed[0] == 'S' || trimmed[0] == 's') && trimmed[1] >= '0' && trimmed[1] <= '9'
	}
	return false
}

func stripLineComment(line string) string {
	if i := strings.IndexAny(line, ";#"); i >= 0 {
		return line[:i]
	}
	return line
}

func parseOctalToken(tok string) (uint16, error) {
	v, err := strconv.ParseUint(tok, 8, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedImage, tok)
	}
	return w.Mask12(v), nil
}
