/*
 * olive-petrel - two-pass PAL assembler.
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

/*
Package assemble implements the two-pass PAL assembler described in
spec §4.2: pass 1 walks the source, resolving origins and labels into a
list of pending statements; pass 2 resolves each statement's operand(s)
into a final address->word mapping.

Source is split into lines and statements with strings.Split and
strings.Fields, and each statement is classified by small matchers
(matchPseudoOp, splitLabel, matchText, matchQuotedChar) for PAL's
label/operate grammar.
*/
package assemble

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rsbohn/olive-petrel/srec"
	w "github.com/rsbohn/olive-petrel/word"
)

var (
	ErrDuplicateLabel   = errors.New("duplicate label")
	ErrOperandOutOfRange = errors.New("operand out of range")
	ErrUnknownMnemonic  = errors.New("unknown mnemonic")
	ErrInvalidOperand   = errors.New("invalid operand")
	ErrUndefinedSymbol  = errors.New("undefined symbol")
)

// Memory-reference opcode bases (opcode in bits 11..9).
var mriBase = map[string]uint16{
	"AND": 0 << 9,
	"TAD": 1 << 9,
	"ISZ": 2 << 9,
	"DCA": 3 << 9,
	"JMS": 4 << 9,
	"JMP": 5 << 9,
}

type stmtKind int

const (
	kindMem stmtKind = iota
	kindIOT
	kindOperate
	kindLiteral
	kindAddress
)

type statement struct {
	addr      uint16
	kind      stmtKind
	opBase    uint16
	indirect  bool
	operand   string
	mnemonics []string
	source    string
}

// Result is the output of a completed assembly.
type Result struct {
	Words   map[uint16]uint16
	Symbols map[string]uint16
	Start   uint16
	Listing []string
}

// program is assembler state threaded through pass 1.
type program struct {
	symbols    map[string]uint16
	statements []statement
	originList []uint16
	pc         uint16
}

// Assemble runs both passes over source and returns the assembled
// image, or the first error encountered.
func Assemble(source string) (*Result, error) {
	p := &program{symbols: map[string]uint16{}}
	if err := p.pass1(source); err != nil {
		return nil, err
	}
	words, err := p.pass2()
	if err != nil {
		return nil, err
	}

	start, ok := p.symbols["START"]
	if !ok {
		start = minAddr(words)
	}

	return &Result{
		Words:   words,
		Symbols: p.symbols,
		Start:   start,
		Listing: p.listing(words),
	}, nil
}

// EncodeSRecord renders a Result as S-record text lines (spec §4.2
// "Output").
func (r *Result) EncodeSRecord() []string {
	return srec.Encode(r.Words, r.Start)
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

func (p *program) defineSymbol(name string, value uint16) error {
	name = strings.ToUpper(name)
	if _, exists := p.symbols[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, name)
	}
	p.symbols[name] = value
	return nil
}

// pass1 splits source into statements, resolving origins/labels and
// classifying each remaining statement's shape. Operand tokens that
// depend on forward-referenced symbols are deferred to pass 2.
func (p *program) pass1(source string) error {
	for _, rawLine := range strings.Split(source, "\n") {
		line := stripComment(rawLine)
		for _, stmt := range strings.Split(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if stmt == "$" {
				return nil
			}
			if strings.HasPrefix(stmt, "*") {
				addr, err := parseOrigin(stmt[1:])
				if err != nil {
					return err
				}
				p.pc = addr
				p.originList = append(p.originList, addr)
				continue
			}
			if name, val, ok := matchPseudoOp(stmt); ok {
				v, err := resolveOperand(val, p.symbols, p.pc)
				if err != nil {
					return err
				}
				if err := p.defineSymbol(name, v); err != nil {
					return err
				}
				continue
			}
			if label, rest, ok := splitLabel(stmt); ok {
				if err := p.defineSymbol(label, p.pc); err != nil {
					return err
				}
				stmt = rest
				if stmt == "" {
					continue
				}
			}
			if err := p.emitStatement(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *program) emitStatement(stmt string) error {
	if text, ok := matchText(stmt); ok {
		for _, ch := range text {
			p.statements = append(p.statements, statement{
				addr: p.pc, kind: kindLiteral,
				operand: strconv.FormatInt(int64(ch)&0177, 8), source: stmt,
			})
			p.pc = (p.pc + 1) & w.Mask
		}
		return nil
	}
	if ch, ok := matchQuotedChar(stmt); ok {
		p.statements = append(p.statements, statement{
			addr: p.pc, kind: kindLiteral,
			operand: strconv.FormatInt(int64(ch)&0177, 8), source: stmt,
		})
		p.pc = (p.pc + 1) & w.Mask
		return nil
	}
	if stmt == "." {
		p.statements = append(p.statements, statement{addr: p.pc, kind: kindAddress, source: stmt})
		p.pc = (p.pc + 1) & w.Mask
		return nil
	}

	fields := strings.Fields(stmt)
	mnemonic := strings.ToUpper(fields[0])

	if base, ok := mriBase[mnemonic]; ok {
		indirect := false
		var operands []string
		for _, f := range fields[1:] {
			if strings.EqualFold(f, "I") {
				indirect = true
				continue
			}
			operands = append(operands, f)
		}
		if len(operands) != 1 {
			return fmt.Errorf("%w: %s expects one operand", ErrInvalidOperand, mnemonic)
		}
		p.statements = append(p.statements, statement{
			addr: p.pc, kind: kindMem, opBase: base,
			indirect: indirect, operand: operands[0], source: stmt,
		})
		p.pc = (p.pc + 1) & w.Mask
		return nil
	}

	if mnemonic == "IOT" {
		if len(fields) != 2 {
			return fmt.Errorf("%w: IOT expects one operand", ErrInvalidOperand)
		}
		p.statements = append(p.statements, statement{
			addr: p.pc, kind: kindIOT, operand: fields[1], source: stmt,
		})
		p.pc = (p.pc + 1) & w.Mask
		return nil
	}

	if allOperateMnemonics(fields) {
		p.statements = append(p.statements, statement{
			addr: p.pc, kind: kindOperate, mnemonics: fields, source: stmt,
		})
		p.pc = (p.pc + 1) & w.Mask
		return nil
	}

	if len(fields) == 1 {
		p.statements = append(p.statements, statement{
			addr: p.pc, kind: kindLiteral, operand: fields[0], source: stmt,
		})
		p.pc = (p.pc + 1) & w.Mask
		return nil
	}

	return fmt.Errorf("%w: %s", ErrUnknownMnemonic, stmt)
}

// pass2 resolves every pending statement's operand(s) into a final
// address->word map.
func (p *program) pass2() (map[uint16]uint16, error) {
	words := make(map[uint16]uint16, len(p.statements))
	for _, s := range p.statements {
		var word uint16
		var err error
		switch s.kind {
		case kindMem:
			word, err = p.assembleMem(s)
		case kindIOT:
			var v uint16
			v, err = resolveOperand(s.operand, p.symbols, s.addr)
			word = v & w.Mask
		case kindOperate:
			word, err = assembleOperate(s.mnemonics)
		case kindLiteral:
			var v uint16
			v, err = resolveOperand(s.operand, p.symbols, s.addr)
			word = v & w.Mask
		case kindAddress:
			word = s.addr
		}
		if err != nil {
			return nil, fmt.Errorf("at %s (%s): %w", w.FormatOctal(s.addr), s.source, err)
		}
		words[s.addr] = word
	}
	return words, nil
}

func (p *program) assembleMem(s statement) (uint16, error) {
	target, err := resolveOperand(s.operand, p.symbols, s.addr)
	if err != nil {
		return 0, err
	}
	var page bool
	switch {
	case w.Page(target) == 0:
		page = false
	case w.SamePage(target, s.addr):
		page = true
	default:
		return 0, fmt.Errorf("%w: %s not on page zero or current page", ErrOperandOutOfRange, s.operand)
	}
	word := s.opBase
	if s.indirect {
		word |= 0400
	}
	if page {
		word |= 0200
	}
	word |= target & 0177
	return word, nil
}

func (p *program) listing(words map[uint16]uint16) []string {
	addrs := make([]uint16, 0, len(p.statements))
	for _, s := range p.statements {
		addrs = append(addrs, s.addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	lines := make([]string, 0, len(p.statements)+1)
	for i, s := range p.statements {
		lines = append(lines, fmt.Sprintf("%s  %s  %s", w.FormatOctal(s.addr), w.FormatOctal(words[s.addr]), s.source))
		_ = i
	}
	lines = append(lines, fmt.Sprintf("; %d statements, %d symbols", len(p.statements), len(p.symbols)))
	return lines
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '/'); i >= 0 {
		return line[:i]
	}
	return line
}

func parseOrigin(rest string) (uint16, error) {
	v, err := resolveOperand(strings.TrimSpace(rest), map[string]uint16{}, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid origin: %w", err)
	}
	return v, nil
}

func matchPseudoOp(stmt string) (name, value string, ok bool) {
	i := strings.IndexByte(stmt, '=')
	if i < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(stmt[:i])
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	value = strings.TrimSpace(stmt[i+1:])
	return name, value, true
}

func splitLabel(stmt string) (label, rest string, ok bool) {
	fields := strings.SplitN(stmt, " ", 2)
	first := fields[0]
	if !strings.HasSuffix(first, ",") {
		return "", "", false
	}
	label = strings.TrimSuffix(first, ",")
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}
	return label, rest, true
}

func matchText(stmt string) (string, bool) {
	upper := strings.ToUpper(stmt)
	if !strings.HasPrefix(upper, "TEXT ") {
		return "", false
	}
	rest := strings.TrimSpace(stmt[4:])
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}

func matchQuotedChar(stmt string) (byte, bool) {
	if len(stmt) == 3 && stmt[0] == '"' && stmt[2] == '"' {
		return stmt[1], true
	}
	return 0, false
}
