/*
 * olive-petrel - PDP-8 CPU: fetch, decode, execute.
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
Package cpu implements the PDP-8 instruction set: memory-reference
instructions (AND, TAD, ISZ, DCA, JMS, JMP) with auto-indexed indirect
addressing, the three operate-instruction groups, and IOT dispatch to
attached peripherals.

Instruction layout (12 bits, opcode in bits 11..9):

	Memory reference (opcodes 0-5):
	+---+---+---+---+---+---+---+---+---+---+---+---+
	| opcode    | I | Z |  page offset (7 bits)      |
	+---+---+---+---+---+---+---+---+---+---+---+---+

	IOT (opcode 6): bits 8..0 select a device and function.
	Operate (opcode 7): group selected by bits 8 and 3, see cpu_operate.go.
*/
package cpu

import (
	"fmt"

	dev "github.com/rsbohn/olive-petrel/device"
	"github.com/rsbohn/olive-petrel/memory"
	w "github.com/rsbohn/olive-petrel/word"
)

// ErrAddressOutOfRange is returned by Read/Write when an address is not a
// valid 12-bit memory location.
var ErrAddressOutOfRange = memory.ErrAddressOutOfRange

const (
	opAND = iota
	opTAD
	opISZ
	opDCA
	opJMS
	opJMP
	opIOT
	opOPR
)

// Auto-index cells: page-zero locations 0010..0017 pre-increment when used
// as an indirect operand.
const (
	autoIndexLow  uint16 = 0010
	autoIndexHigh uint16 = 0017
)

// CPU holds PDP-8 register state and attached peripherals.
type CPU struct {
	Memory *memory.Memory

	AC   uint16
	MQ   uint16
	PC   uint16
	IR   uint16
	L    bool
	HALT bool

	// SwitchRegister, when set, supplies the value OSR reads. Defaults to
	// a function that always returns 0, per the spec's "switch register
	// hook (returns 0)".
	SwitchRegister func() uint16

	Console Console

	LPT  dev.IOTHandler
	TC08 dev.IOTHandler
	RX8E dev.IOTHandler

	table [8]func(*CPU, uint16)
}

// New returns a CPU with freshly zeroed memory.
func New() *CPU {
	c := &CPU{
		Memory:         memory.New(),
		SwitchRegister: func() uint16 { return 0 },
	}
	c.buildTable()
	return c
}

func (c *CPU) buildTable() {
	c.table = [8]func(*CPU, uint16){
		opAND: (*CPU).execAND,
		opTAD: (*CPU).execTAD,
		opISZ: (*CPU).execISZ,
		opDCA: (*CPU).execDCA,
		opJMS: (*CPU).execJMS,
		opJMP: (*CPU).execJMP,
		opIOT: (*CPU).execIOT,
		opOPR: (*CPU).execOperate,
	}
}

// Reset zeroes memory and every register and clears HALT.
func (c *CPU) Reset() {
	c.Memory.Reset()
	c.AC = 0
	c.MQ = 0
	c.PC = 0
	c.IR = 0
	c.L = false
	c.HALT = false
}

// SetPC sets the program counter, masked to 12 bits.
func (c *CPU) SetPC(addr uint16) {
	c.PC = addr & w.Mask
}

// ClearHalt clears the HALT flag so Step/Run can resume.
func (c *CPU) ClearHalt() {
	c.HALT = false
}

// Read reads a memory cell, range-checked.
func (c *CPU) Read(addr uint16) (uint16, error) {
	v, err := c.Memory.Read(addr)
	if err != nil {
		return 0, fmt.Errorf("cpu read: %w", err)
	}
	return v, nil
}

// Write stores a memory cell, range-checked.
func (c *CPU) Write(addr, data uint16) error {
	if err := c.Memory.Write(addr, data); err != nil {
		return fmt.Errorf("cpu write: %w", err)
	}
	return nil
}

// Step executes a single instruction and returns the number of
// instructions executed (0 if HALT was already set, 1 otherwise).
func (c *CPU) Step() (int, error) {
	if c.HALT {
		return 0, nil
	}
	c.IR = c.Memory.ReadUnchecked(c.PC)
	c.PC = (c.PC + 1) & w.Mask
	opcode := (c.IR >> 9) & 07
	c.table[opcode](c, c.IR)
	return 1, nil
}

// Run executes up to maxSteps instructions, stopping early on HALT. It
// returns the number of instructions actually executed.
func (c *CPU) Run(maxSteps int) (int, error) {
	executed := 0
	for executed < maxSteps {
		n, err := c.Step()
		if err != nil {
			return executed, err
		}
		if n == 0 {
			break
		}
		executed += n
	}
	return executed, nil
}

// effectiveAddress resolves the operand address for a memory-reference
// instruction, performing the auto-index pre-increment side effect when
// the operand is an indirect reference through a page-zero auto-index
// cell (0010-0017). That mutation happens exactly once, here, scoped to
// this single instruction's resolution.
func (c *CPU) effectiveAddress(instr uint16) uint16 {
	indirect := instr&0400 != 0
	currentPage := instr&0200 != 0
	offset := instr & 0177

	var base uint16
	if currentPage {
		base = c.PC & w.PageMask
	}
	ea := base | offset

	if !indirect {
		return ea
	}

	if !currentPage && ea >= autoIndexLow && ea <= autoIndexHigh {
		c.Memory.Increment(ea)
	}
	return c.Memory.ReadUnchecked(ea)
}

func (c *CPU) execAND(instr uint16) {
	ea := c.effectiveAddress(instr)
	c.AC &= c.Memory.ReadUnchecked(ea)
}

func (c *CPU) execTAD(instr uint16) {
	ea := c.effectiveAddress(instr)
	sum := uint32(c.AC) + uint32(c.Memory.ReadUnchecked(ea))
	if sum > uint32(w.Mask) {
		c.L = !c.L
	}
	c.AC = uint16(sum) & w.Mask
}

func (c *CPU) execISZ(instr uint16) {
	ea := c.effectiveAddress(instr)
	if c.Memory.Increment(ea) == 0 {
		c.PC = (c.PC + 1) & w.Mask
	}
}

func (c *CPU) execDCA(instr uint16) {
	ea := c.effectiveAddress(instr)
	c.Memory.WriteUnchecked(ea, c.AC)
	c.AC = 0
}

func (c *CPU) execJMS(instr uint16) {
	ea := c.effectiveAddress(instr)
	c.Memory.WriteUnchecked(ea, c.PC)
	c.PC = (ea + 1) & w.Mask
}

func (c *CPU) execJMP(instr uint16) {
	c.PC = c.effectiveAddress(instr)
}
