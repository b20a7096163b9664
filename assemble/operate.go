/*
 * olive-petrel - PAL operate-instruction (opcode 7) mnemonic encoding.
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
	"strings"
)

// Group-1-only mnemonics (bit 8 stays 0 as long as nothing else forces it).
var group1Bits = map[string]uint16{
	"CLA": 0200,
	"CLL": 0100,
	"CMA": 040,
	"CML": 020,
	"RAR": 010,
	"RAL": 04,
	"BSW": 02,
	"IAC": 01,
}

var group1Only = map[string]bool{
	"CLL": true, "CMA": true, "CML": true,
	"RAR": true, "RAL": true, "BSW": true, "IAC": true,
}

// Group 2 shares CLA with group 1/3; its skip-condition and CLA/OSR/HLT
// bits, plus the SPA/SNA/SZL aliases (spec §4.2: they set bit 0010 in
// addition to their base mnemonic's bits). With bit 8 set, bit 0010 is the
// group-3 selector, so the CPU executes these alias encodings as group-3
// instructions (see cpu.execOperate).
var group2Bits = map[string]uint16{
	"CLA": 0200,
	"SMA": 0100,
	"SZA": 040,
	"SNL": 020,
	"OSR": 04,
	"HLT": 02,
	"SPA": 0100 | 010,
	"SNA": 040 | 010,
	"SZL": 020 | 010,
}

var group2Only = map[string]bool{
	"SMA": true, "SZA": true, "SNL": true, "OSR": true, "HLT": true,
	"SPA": true, "SNA": true, "SZL": true,
}

var group3Bits = map[string]uint16{
	"CLA": 0200,
	"MQA": 0100,
	"MQL": 020,
}

var group3Only = map[string]bool{"MQA": true, "MQL": true}

func allOperateMnemonics(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		u := strings.ToUpper(f)
		if !group1Only[u] && !group2Only[u] && !group3Only[u] && u != "CLA" {
			return false
		}
	}
	return true
}

// assembleOperate classifies a token list per spec §4.2: group 2 iff any
// token is a group-2 mnemonic and the tokens are not all group-1
// mnemonics; group 3 iff any token is a group-3-only mnemonic. Group 1
// base is 07000, group 2/3 base is 07400 (bit 8 set), with bit 3 (010)
// set to select group 3.
func assembleOperate(fields []string) (uint16, error) {
	hasGroup2 := false
	hasGroup3 := false
	for _, f := range fields {
		u := strings.ToUpper(f)
		switch {
		case group2Only[u]:
			hasGroup2 = true
		case group3Only[u]:
			hasGroup3 = true
		case group1Only[u] || u == "CLA":
			// ambiguous/group-1
		default:
			return 0, fmt.Errorf("%w: %s", ErrUnknownMnemonic, f)
		}
	}

	if !hasGroup2 && !hasGroup3 {
		var word uint16 = 07000
		for _, f := range fields {
			word |= group1Bits[strings.ToUpper(f)]
		}
		return word, nil
	}

	var word uint16 = 07400
	if hasGroup3 {
		word |= 010
		for _, f := range fields {
			u := strings.ToUpper(f)
			if bits, ok := group3Bits[u]; ok {
				word |= bits
			} else if u == "CLA" {
				word |= 0200
			}
		}
		return word, nil
	}
	for _, f := range fields {
		word |= group2Bits[strings.ToUpper(f)]
	}
	return word, nil
}
