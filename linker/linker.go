/*
 * olive-petrel - ROM linker: routine packing and LINK resolution.
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

// Package linker implements the ROM builder described in spec §4.6:
// build_lib packs a set of position-independent library routines onto
// pages of a target image; link resolves an application's LINK
// placeholders against a built library's symbol table and merges the
// two images.
package linker

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rsbohn/olive-petrel/assemble"
	"github.com/rsbohn/olive-petrel/srec"
	w "github.com/rsbohn/olive-petrel/word"
)

var (
	ErrOriginNotAllowed      = errors.New("origin directive not allowed in library routine")
	ErrNotPositionIndependent = errors.New("routine is not position-independent")
	ErrRoutineTooLarge       = errors.New("routine too large for one page")
	ErrMemoryOverlap         = errors.New("memory overlap")
	ErrDuplicateSymbol       = errors.New("duplicate symbol")
	ErrUnknownLinkSymbol     = errors.New("unknown link symbol")
	ErrMalformedSymbolFile   = errors.New("malformed symbol file")
)

// Library is the output of BuildLib: a packed, position-dependent image
// plus the addresses its routines' symbols landed on.
type Library struct {
	BaseAddr uint16
	Words    map[uint16]uint16
	Symbols  map[string]uint16
}

// EncodeSRecord renders the library image as S-record text (spec §4.6.4).
func (l *Library) EncodeSRecord() []string {
	return srec.Encode(l.Words, l.BaseAddr)
}

// EncodeSymbols renders the symbol table in the `NAME = OADDR` format
// spec §6 file format 6 describes.
func (l *Library) EncodeSymbols() []string {
	return EncodeSymbols(l.Symbols)
}

// EncodeSymbols renders a symbol map as sorted `NAME = OADDR` lines.
func EncodeSymbols(symbols map[string]uint16) []string {
	names := make([]string, 0, len(symbols))
	for n := range symbols {
		names = append(names, n)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, n := range names {
		lines = append(lines, fmt.Sprintf("%s = %04o", n, symbols[n]))
	}
	return lines
}

// DecodeSymbols parses a `NAME = OADDR` symbol file, honoring `#`
// comments and case-insensitive names.
func DecodeSymbols(lines []string) (map[string]uint16, error) {
	symbols := map[string]uint16{}
	for _, raw := range lines {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedSymbolFile, raw)
		}
		name := strings.ToUpper(strings.TrimSpace(line[:i]))
		value, err := strconv.ParseUint(strings.TrimSpace(line[i+1:]), 8, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedSymbolFile, raw, err)
		}
		symbols[name] = w.Mask12(value)
	}
	return symbols, nil
}

// BuildLib assembles each source twice (once at origin 0 to measure its
// size, once at its packed position) and merges the results into one
// page-packed image, per spec §4.6 build_lib.
func BuildLib(sources []string, baseAddr, pageSize uint16) (*Library, error) {
	lib := &Library{BaseAddr: baseAddr, Words: map[uint16]uint16{}, Symbols: map[string]uint16{}}
	currentPageBase := baseAddr
	offset := uint16(0)

	for i, src := range sources {
		if hasOriginDirective(src) {
			return nil, fmt.Errorf("routine %d: %w", i, ErrOriginNotAllowed)
		}

		measured, err := assemble.Assemble(src)
		if err != nil {
			return nil, fmt.Errorf("routine %d: %w", i, err)
		}
		if minAddr(measured.Words) != 0 {
			return nil, fmt.Errorf("routine %d: %w", i, ErrNotPositionIndependent)
		}
		size := maxAddr(measured.Words) + 1

		if size > pageSize {
			return nil, fmt.Errorf("routine %d: %w", i, ErrRoutineTooLarge)
		}
		if offset+size > pageSize {
			currentPageBase += pageSize
			offset = 0
		}

		origin := currentPageBase + offset
		placed, err := assemble.Assemble(fmt.Sprintf("*%04o\n%s", origin, src))
		if err != nil {
			return nil, fmt.Errorf("routine %d: %w", i, err)
		}

		if err := mergeWords(lib.Words, placed.Words); err != nil {
			return nil, fmt.Errorf("routine %d: %w", i, err)
		}
		if err := mergeSymbols(lib.Symbols, placed.Symbols); err != nil {
			return nil, fmt.Errorf("routine %d: %w", i, err)
		}

		offset += size
	}

	return lib, nil
}

func mergeWords(dst, src map[uint16]uint16) error {
	for addr, val := range src {
		if existing, ok := dst[addr]; ok && existing != val {
			return fmt.Errorf("%w: address %s", ErrMemoryOverlap, w.FormatOctal(addr))
		}
		dst[addr] = val
	}
	return nil
}

func mergeSymbols(dst, src map[string]uint16) error {
	for name, val := range src {
		if existing, ok := dst[name]; ok && existing != val {
			return fmt.Errorf("%w: %s", ErrDuplicateSymbol, name)
		}
		dst[name] = val
	}
	return nil
}

func minAddr(words map[uint16]uint16) uint16 {
	first := true
	var m uint16
	for a := range words {
		if first || a < m {
			m = a
			first = false
		}
	}
	return m
}

func maxAddr(words map[uint16]uint16) uint16 {
	var m uint16
	for a := range words {
		if a > m {
			m = a
		}
	}
	return m
}

func hasOriginDirective(source string) bool {
	for _, rawLine := range strings.Split(source, "\n") {
		line := rawLine
		if i := strings.IndexByte(line, '/'); i >= 0 {
			line = line[:i]
		}
		for _, stmt := range strings.Split(line, ";") {
			if strings.HasPrefix(strings.TrimSpace(stmt), "*") {
				return true
			}
		}
	}
	return false
}

// LinkResult is the output of Link: the application's image merged with
// its library, ready for S-record emission.
type LinkResult struct {
	Words map[uint16]uint16
	Start uint16
}

// EncodeSRecord renders the linked image as S-record text.
func (r *LinkResult) EncodeSRecord() []string {
	return srec.Encode(r.Words, r.Start)
}

var linkLineRe = regexp.MustCompile(`(?i)^LINK\s+(\S+)$`)

// Link rewrites `LINK SYMBOL` references in app against the library's
// symbol table, assembles the result, and merges it with the library's
// image, per spec §4.6 link.
func Link(lib *Library, app string) (*LinkResult, error) {
	rewritten, err := rewriteLinks(app, lib.Symbols)
	if err != nil {
		return nil, err
	}

	appResult, err := assemble.Assemble(rewritten)
	if err != nil {
		return nil, err
	}

	combined := map[uint16]uint16{}
	if err := mergeWords(combined, lib.Words); err != nil {
		return nil, err
	}
	if err := mergeWords(combined, appResult.Words); err != nil {
		return nil, err
	}

	start, ok := appResult.Symbols["START"]
	if !ok {
		start = minAddr(combined)
	}

	return &LinkResult{Words: combined, Start: start}, nil
}

func rewriteLinks(source string, symbols map[string]uint16) (string, error) {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		body := line
		comment := ""
		if ci := strings.IndexByte(line, '/'); ci >= 0 {
			body = line[:ci]
			comment = line[ci:]
		}

		stmts := strings.Split(body, ";")
		for j, stmt := range stmts {
			trimmed := strings.TrimSpace(stmt)
			if trimmed == "" {
				continue
			}
			label := ""
			rest := trimmed
			if fields := strings.SplitN(trimmed, " ", 2); strings.HasSuffix(fields[0], ",") {
				label = fields[0] + " "
				if len(fields) == 2 {
					rest = strings.TrimSpace(fields[1])
				} else {
					rest = ""
				}
			}
			m := linkLineRe.FindStringSubmatch(rest)
			if m == nil {
				continue
			}
			name := strings.ToUpper(m[1])
			addr, ok := symbols[name]
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrUnknownLinkSymbol, name)
			}
			stmts[j] = fmt.Sprintf("%s%04o", label, addr)
		}
		lines[i] = strings.Join(stmts, ";") + comment
	}
	return strings.Join(lines, "\n"), nil
}
