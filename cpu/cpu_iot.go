/*
 * olive-petrel - PDP-8 IOT (opcode 6) dispatch.
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

// Console is the host collaborator for TTI/TTO: a non-blocking key-ready
// check, a blocking key read, and a character write. The Console is
// optional; with none attached KSF never skips, KRS/KRB read a zero low
// byte, TLS/TLSC output is discarded, and TSF still skips, matching "host
// interfaces the core consumes... the core must function without them"
// (spec §6).
type Console interface {
	KeyAvailable() bool
	ReadKey() byte
	WriteChar(byte)
}

// Recognized IOT opcodes (octal), spec §4.1.
const (
	iotKCF = 06031
	iotKSF = 06032
	iotKRS = 06034
	iotKRB = 06036

	iotTCF  = 06041
	iotTSF  = 06042
	iotTLS  = 06044
	iotTLSC = 06046

	iotLPCF = 06601
	iotLPSF = 06602
	iotLPT  = 06604
	iotLPTC = 06606
)

// execIOT dispatches opcode 6. Unrecognized IOTs are silent no-ops, as
// spec §4.1/§7 require: decoding is total, nothing here ever errors.
func (c *CPU) execIOT(instr uint16) {
	switch instr {
	case iotKCF:
		// no-op: clear keyboard flag.
	case iotKSF:
		if c.Console != nil && c.Console.KeyAvailable() {
			c.PC = (c.PC + 1) & w.Mask
		}
	case iotKRS, iotKRB:
		var ch byte
		if c.Console != nil && c.Console.KeyAvailable() {
			ch = c.Console.ReadKey()
		}
		c.AC = (c.AC & 07400) | uint16(ch)
	case iotTCF:
		// no-op: clear teleprinter flag.
	case iotTSF:
		// Output is always ready in this design.
		c.PC = (c.PC + 1) & w.Mask
	case iotTLS, iotTLSC:
		if c.Console != nil {
			c.Console.WriteChar(byte(c.AC & 0377))
		}
	case iotLPCF:
		// no-op: clear printer flag.
	case iotLPSF:
		// Printer is always ready in this design.
		c.PC = (c.PC + 1) & w.Mask
	case iotLPT, iotLPTC:
		if c.LPT != nil {
			c.LPT.HandleIOT(instr, c)
		}
	default:
		switch {
		case instr >= 06751 && instr <= 06757:
			if c.RX8E != nil {
				if skip, _ := c.RX8E.HandleIOT(instr, c); skip {
					c.PC = (c.PC + 1) & w.Mask
				}
			}
		case instr == 06762 || instr == 06764 || instr == 06766 || instr == 06771:
			if c.TC08 != nil {
				if skip, _ := c.TC08.HandleIOT(instr, c); skip {
					c.PC = (c.PC + 1) & w.Mask
				}
			}
		default:
			// Unrecognized IOT: silent no-op.
		}
	}
}

// The following methods satisfy device.CPUAccess so peripheral
// controllers can manipulate AC/L/memory without importing cpu.

func (c *CPU) GetAC() uint16  { return c.AC }
func (c *CPU) SetAC(v uint16) { c.AC = v & w.Mask }
func (c *CPU) GetLink() bool  { return c.L }
func (c *CPU) SetLink(v bool) { c.L = v }

func (c *CPU) ReadMem(addr uint16) uint16 {
	return c.Memory.ReadUnchecked(addr)
}

func (c *CPU) WriteMem(addr, data uint16) {
	c.Memory.WriteUnchecked(addr, data)
}
