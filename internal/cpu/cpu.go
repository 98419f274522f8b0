// Package cpu implements the LR35902-family core: registers, flags, the
// interrupt dispatcher, and the table-driven instruction decoder built from
// the primary and CB-prefixed opcode tables in decode.go/cb.go.
package cpu

import (
	"fmt"

	"github.com/pocketcore/gbcore/internal/bus"
)

const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

// Interrupt vector addresses, in fixed dispatch priority order.
var vectors = [5]uint16{0x0040, 0x0048, 0x0050, 0x0058, 0x0060}

// CPU holds the full register file and scheduling flags of the core.
type CPU struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	ime          bool
	imeScheduled bool
	halted       bool
	stopped      bool

	bus *bus.Bus

	// Trace, if non-nil, receives one formatted line per fetched opcode:
	// PC, opcode, mnemonic and AF/BC/DE/HL/SP as they were before it runs.
	Trace func(line string)
}

// UndefinedOpcodeError reports a fetched byte absent from both decode
// tables: one of the eleven illegal primary opcodes.
type UndefinedOpcodeError struct {
	Opcode byte
	PC     uint16
}

func (e *UndefinedOpcodeError) Error() string {
	return fmt.Sprintf("undefined opcode 0x%02X at PC=0x%04X", e.Opcode, e.PC)
}

// New constructs a CPU wired to b, in the zero register state. Call
// ResetNoBoot (or rely on the caller writing PC=0 for a boot ROM run) before
// first use.
func New(b *bus.Bus) *CPU {
	return &CPU{bus: b}
}

// ResetNoBoot applies the post-reset register state of spec.md §3 for a run
// with no boot ROM mounted: PC starts at the cartridge entry point, 0x0100.
func (c *CPU) ResetNoBoot() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.ime = false
	c.imeScheduled = false
	c.halted = false
	c.stopped = false
}

// ResetWithBoot applies the same state but leaves PC at 0x0000 so the bus's
// mounted boot image executes first.
func (c *CPU) ResetWithBoot() {
	c.ResetNoBoot()
	c.PC = 0x0000
}

// SetPC lets a caller (tests, a debugger) force the program counter.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// Bus exposes the underlying bus for tests and tooling.
func (c *CPU) Bus() *bus.Bus { return c.bus }

// Halted reports whether the core is in the low-power HALT wait state.
func (c *CPU) Halted() bool { return c.halted }

// Stopped reports whether STOP was executed; the scheduler uses this to
// skip the timer's Advance while the CPU is stopped (spec.md §4.7).
func (c *CPU) Stopped() bool { return c.stopped }

// IME reports the interrupt master enable flag.
func (c *CPU) IME() bool { return c.ime }

func (c *CPU) setZNHC(z, n, h, carry bool) {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	if carry {
		f |= flagC
	}
	c.F = f
}

func (c *CPU) read8(addr uint16) byte     { return c.bus.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.bus.Write(addr, v) }

func (c *CPU) fetch8() byte {
	b := c.read8(c.PC)
	c.PC++
	return b
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read8(addr))
	hi := uint16(c.read8(addr + 1))
	return lo | hi<<8
}

func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v))
	c.write8(addr+1, byte(v>>8))
}

func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.write16(c.SP, v)
}

func (c *CPU) pop16() uint16 {
	v := c.read16(c.SP)
	c.SP += 2
	return v
}

// 16-bit register pair accessors.
func (c *CPU) getAF() uint16  { return uint16(c.A)<<8 | uint16(c.F&0xF0) }
func (c *CPU) setAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) & 0xF0 }
func (c *CPU) getBC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) getDE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) getHL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

// reg8 reads the z/y-indexed 8-bit operand {B,C,D,E,H,L,(HL),A} used
// throughout the primary and CB tables (spec.md §4.3).
func (c *CPU) reg8(idx byte) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.getHL())
	default:
		return c.A
	}
}

func (c *CPU) setReg8(idx byte, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.getHL(), v)
	default:
		c.A = v
	}
}

// regPair reads the p-indexed 16-bit pair {BC,DE,HL,SP}.
func (c *CPU) regPair(p byte) uint16 {
	switch p {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	default:
		return c.SP
	}
}

func (c *CPU) setRegPair(p byte, v uint16) {
	switch p {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

// regPair2 reads the p-indexed 16-bit pair {BC,DE,HL,AF} used by PUSH/POP.
func (c *CPU) regPair2(p byte) uint16 {
	if p == 3 {
		return c.getAF()
	}
	return c.regPair(p)
}

func (c *CPU) setRegPair2(p byte, v uint16) {
	if p == 3 {
		c.setAF(v)
		return
	}
	c.setRegPair(p, v)
}

func (c *CPU) condTrue(cc byte) bool {
	switch cc {
	case 0:
		return c.F&flagZ == 0
	case 1:
		return c.F&flagZ != 0
	case 2:
		return c.F&flagC == 0
	default:
		return c.F&flagC != 0
	}
}

// Step executes exactly one instruction (or one interrupt dispatch, or one
// HALT no-op) per the algorithm in spec.md §4.3, returning the number of
// machine cycles consumed. err is non-nil only for UndefinedOpcodeError.
func (c *CPU) Step() (cycles int, err error) {
	if cyc := c.dispatchInterrupts(); cyc != 0 {
		return cyc, nil
	}
	if c.halted {
		return 4, nil
	}
	if c.imeScheduled {
		c.ime = true
		c.imeScheduled = false
	}

	pc := c.PC
	op := c.fetch8()
	instr := primaryTable[op]
	if instr.Exec == nil {
		return 4, &UndefinedOpcodeError{Opcode: op, PC: pc}
	}
	if c.Trace != nil {
		c.Trace(fmt.Sprintf("%04X: %02X %s AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X",
			pc, op, instr.Name, c.getAF(), c.getBC(), c.getDE(), c.getHL(), c.SP))
	}
	return instr.Exec(c), nil
}

// dispatchInterrupts implements spec.md §4.3's interrupt dispatcher. A
// nonzero return means the dispatcher itself consumed this Step call.
func (c *CPU) dispatchInterrupts() int {
	pending := c.bus.IF() & c.bus.IE() & 0x1F

	if c.halted {
		if pending != 0 {
			c.halted = false
			if !c.ime {
				return 0 // HALT exits, no vector taken
			}
		} else {
			return 0
		}
	} else if !c.ime {
		return 0
	}

	if pending == 0 {
		return 0
	}

	var bit uint
	for bit = 0; bit < 5; bit++ {
		if pending&(1<<bit) != 0 {
			break
		}
	}
	c.bus.ClearInterrupt(byte(1) << bit)
	c.ime = false
	c.imeScheduled = false
	c.push16(c.PC)
	c.PC = vectors[bit]
	return 20
}
