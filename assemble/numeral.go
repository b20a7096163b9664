/*
 * olive-petrel - PAL numeric/operand token resolution.
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

package assemble

import (
	"fmt"
	"strconv"
	"strings"

	w "github.com/rsbohn/olive-petrel/word"
)

// resolveOperand evaluates a single operand token against the symbol
// table and the statement's own address, per spec §4.2's numeric-format
// rules: default octal, 0x hex, #decimal, leading '-' two's-complement
// octal negation, &NAME symbol reference, .±off current-address offset.
func resolveOperand(tok string, symbols map[string]uint16, curAddr uint16) (uint16, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, fmt.Errorf("%w: empty operand", ErrInvalidOperand)
	}

	if tok == "." {
		return curAddr, nil
	}
	if strings.HasPrefix(tok, ".+") || strings.HasPrefix(tok, ".-") {
		off, err := strconv.ParseInt(tok[2:], 8, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidOperand, tok)
		}
		if tok[1] == '+' {
			return w.Mask12(int64(curAddr) + off), nil
		}
		return w.Mask12(int64(curAddr) - off), nil
	}
	if strings.HasPrefix(tok, "&") {
		name := strings.ToUpper(tok[1:])
		v, ok := symbols[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUndefinedSymbol, name)
		}
		return v, nil
	}
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		v, err := strconv.ParseUint(tok[2:], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidOperand, tok)
		}
		return w.Mask12(v), nil
	}
	if strings.HasPrefix(tok, "#") {
		v, err := strconv.ParseInt(tok[1:], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidOperand, tok)
		}
		return w.Mask12(v), nil
	}
	if strings.HasPrefix(tok, "-") {
		v, err := strconv.ParseInt(tok[1:], 8, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidOperand, tok)
		}
		return w.Mask12(-v), nil
	}
	if v, ok := symbols[strings.ToUpper(tok)]; ok {
		return v, nil
	}
	v, err := strconv.ParseUint(tok, 8, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUndefinedSymbol, tok)
	}
	return w.Mask12(v), nil
}
