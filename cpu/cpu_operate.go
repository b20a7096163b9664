/*
 * olive-petrel - PDP-8 operate instruction (opcode 7) micro-op groups.
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

package cpu

import w "github.com/rsbohn/olive-petrel/word"

// execOperate dispatches an opcode-7 instruction to the group selected by
// bits 8 and 3. Group 2 has no "reverse sense" bit-3 inversion in this
// design: its skip conditions are simply ORed. Any instruction with bits 8
// and 3 both set runs as group 3, so the assembler's SPA/SNA/SZL encodings
// (which add bit 3 to SMA/SZA/SNL) execute here as group-3 operations,
// not as skips.
func (c *CPU) execOperate(instr uint16) {
	if instr&0400 == 0 {
		c.operateGroup1(instr)
		return
	}
	if instr&010 == 0 {
		c.operateGroup2(instr)
		return
	}
	c.operateGroup3(instr)
}

func (c *CPU) operateGroup1(instr uint16) {
	if instr&0200 != 0 { // CLA
		c.AC = 0
	}
	if instr&0100 != 0 { // CLL
		c.L = false
	}
	if instr&040 != 0 { // CMA
		c.AC = ^c.AC & w.Mask
	}
	if instr&020 != 0 { // CML
		c.L = !c.L
	}

	rar := instr&010 != 0
	ral := instr&04 != 0
	bsw := instr&02 != 0

	switch {
	case bsw && (rar || ral):
		if rar {
			c.AC, c.L = w.RotateRight(c.AC, c.L)
			c.AC, c.L = w.RotateRight(c.AC, c.L)
		} else {
			c.AC, c.L = w.RotateLeft(c.AC, c.L)
			c.AC, c.L = w.RotateLeft(c.AC, c.L)
		}
	case rar:
		c.AC, c.L = w.RotateRight(c.AC, c.L)
	case ral:
		c.AC, c.L = w.RotateLeft(c.AC, c.L)
	case bsw:
		c.AC = w.SwapHalves(c.AC)
	}

	if instr&01 != 0 { // IAC
		sum := uint32(c.AC) + 1
		if sum > uint32(w.Mask) {
			c.L = !c.L
		}
		c.AC = uint16(sum) & w.Mask
	}
}

func (c *CPU) operateGroup2(instr uint16) {
	sma := instr&0100 != 0 && c.AC&04000 != 0
	sza := instr&040 != 0 && c.AC == 0
	snl := instr&020 != 0 && c.L

	if sma || sza || snl {
		c.PC = (c.PC + 1) & w.Mask
	}
	if instr&0200 != 0 { // CLA
		c.AC = 0
	}
	if instr&04 != 0 { // OSR
		c.AC |= c.SwitchRegister() & w.Mask
	}
	if instr&02 != 0 { // HLT
		c.HALT = true
	}
}

func (c *CPU) operateGroup3(instr uint16) {
	if instr&0200 != 0 { // CLA
		c.AC = 0
	}
	if instr&0100 != 0 { // MQA
		c.AC |= c.MQ
	}
	if instr&020 != 0 { // MQL
		c.MQ = c.AC
		c.AC = 0
	}
}
