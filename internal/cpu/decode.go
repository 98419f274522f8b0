package cpu

// Instruction is one entry of the primary or CB-prefixed decode table: a
// name for tracing and an Exec closure that performs the fetch-of-operands,
// execution, and flag updates, returning the machine cycles actually
// consumed (taken vs not-taken, for conditional control flow).
type Instruction struct {
	Name string
	Exec func(c *CPU) int
}

// primaryTable and cbTable are built once at package init from the
// (x,y,z,p,q) classification of spec.md §4.3, indexed directly by opcode
// byte; Step never pattern-matches an opcode at run time.
var primaryTable [256]Instruction

// illegalOpcodes are the eleven primary bytes with no decode table entry.
var illegalOpcodes = map[byte]bool{
	0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true, 0xEB: true,
	0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true,
}

func init() {
	for opcode := 0; opcode < 256; opcode++ {
		op := byte(opcode)
		if illegalOpcodes[op] {
			continue
		}
		primaryTable[op] = buildPrimary(op)
	}
	buildCBTable()
}

func buildPrimary(op byte) Instruction {
	x := (op >> 6) & 0x03
	y := (op >> 3) & 0x07
	z := op & 0x07
	p := (op >> 4) & 0x03
	q := (op >> 3) & 0x01

	switch x {
	case 0:
		return buildPrimaryX0(op, y, z, p, q)
	case 1:
		return buildPrimaryX1(y, z)
	case 2:
		return buildPrimaryX2(y, z)
	default:
		return buildPrimaryX3(op, y, z, p, q)
	}
}

func buildPrimaryX0(op, y, z, p, q byte) Instruction {
	switch z {
	case 0:
		switch {
		case y == 0:
			return Instruction{"NOP", func(c *CPU) int { return 4 }}
		case y == 1:
			return Instruction{"LD (nn),SP", func(c *CPU) int {
				addr := c.fetch16()
				c.write16(addr, c.SP)
				return 20
			}}
		case y == 2:
			return Instruction{"STOP", func(c *CPU) int {
				c.fetch8() // STOP's second byte, conventionally 0x00
				c.stopped = true
				return 4
			}}
		case y == 3:
			return Instruction{"JR e", func(c *CPU) int {
				off := int8(c.fetch8())
				c.PC = uint16(int32(c.PC) + int32(off))
				return 12
			}}
		default:
			cc := y - 4
			return Instruction{"JR cc,e", func(c *CPU) int {
				off := int8(c.fetch8())
				if c.condTrue(cc) {
					c.PC = uint16(int32(c.PC) + int32(off))
					return 12
				}
				return 8
			}}
		}
	case 1:
		if q == 0 {
			return Instruction{"LD rp,nn", func(c *CPU) int {
				c.setRegPair(p, c.fetch16())
				return 12
			}}
		}
		return Instruction{"ADD HL,rp", func(c *CPU) int {
			c.addHL(c.regPair(p))
			return 8
		}}
	case 2:
		return buildIndirectAccumulator(p, q)
	case 3:
		if q == 0 {
			return Instruction{"INC rp", func(c *CPU) int {
				c.setRegPair(p, c.regPair(p)+1)
				return 8
			}}
		}
		return Instruction{"DEC rp", func(c *CPU) int {
			c.setRegPair(p, c.regPair(p)-1)
			return 8
		}}
	case 4:
		if y == 6 {
			return Instruction{"INC (HL)", func(c *CPU) int { c.doINC(6); return 12 }}
		}
		return Instruction{"INC r", func(c *CPU) int { c.doINC(y); return 4 }}
	case 5:
		if y == 6 {
			return Instruction{"DEC (HL)", func(c *CPU) int { c.doDEC(6); return 12 }}
		}
		return Instruction{"DEC r", func(c *CPU) int { c.doDEC(y); return 4 }}
	case 6:
		if y == 6 {
			return Instruction{"LD (HL),n", func(c *CPU) int {
				v := c.fetch8()
				c.write8(c.getHL(), v)
				return 12
			}}
		}
		return Instruction{"LD r,n", func(c *CPU) int {
			c.setReg8(y, c.fetch8())
			return 8
		}}
	default: // z == 7
		return buildAccumulatorFlagOp(y)
	}
}

func buildIndirectAccumulator(p, q byte) Instruction {
	switch {
	case p == 0 && q == 0:
		return Instruction{"LD (BC),A", func(c *CPU) int { c.write8(c.getBC(), c.A); return 8 }}
	case p == 1 && q == 0:
		return Instruction{"LD (DE),A", func(c *CPU) int { c.write8(c.getDE(), c.A); return 8 }}
	case p == 2 && q == 0:
		return Instruction{"LD (HL+),A", func(c *CPU) int {
			hl := c.getHL()
			c.write8(hl, c.A)
			c.setHL(hl + 1)
			return 8
		}}
	case p == 3 && q == 0:
		return Instruction{"LD (HL-),A", func(c *CPU) int {
			hl := c.getHL()
			c.write8(hl, c.A)
			c.setHL(hl - 1)
			return 8
		}}
	case p == 0:
		return Instruction{"LD A,(BC)", func(c *CPU) int { c.A = c.read8(c.getBC()); return 8 }}
	case p == 1:
		return Instruction{"LD A,(DE)", func(c *CPU) int { c.A = c.read8(c.getDE()); return 8 }}
	case p == 2:
		return Instruction{"LD A,(HL+)", func(c *CPU) int {
			hl := c.getHL()
			c.A = c.read8(hl)
			c.setHL(hl + 1)
			return 8
		}}
	default:
		return Instruction{"LD A,(HL-)", func(c *CPU) int {
			hl := c.getHL()
			c.A = c.read8(hl)
			c.setHL(hl - 1)
			return 8
		}}
	}
}

func buildAccumulatorFlagOp(y byte) Instruction {
	switch y {
	case 0:
		return Instruction{"RLCA", func(c *CPU) int {
			res, cy := rlc(c.A)
			c.A = res
			c.setZNHC(false, false, false, cy)
			return 4
		}}
	case 1:
		return Instruction{"RRCA", func(c *CPU) int {
			res, cy := rrc(c.A)
			c.A = res
			c.setZNHC(false, false, false, cy)
			return 4
		}}
	case 2:
		return Instruction{"RLA", func(c *CPU) int {
			res, cy := rl(c.A, c.F&flagC != 0)
			c.A = res
			c.setZNHC(false, false, false, cy)
			return 4
		}}
	case 3:
		return Instruction{"RRA", func(c *CPU) int {
			res, cy := rr(c.A, c.F&flagC != 0)
			c.A = res
			c.setZNHC(false, false, false, cy)
			return 4
		}}
	case 4:
		return Instruction{"DAA", func(c *CPU) int { c.daa(); return 4 }}
	case 5:
		return Instruction{"CPL", func(c *CPU) int { c.cpl(); return 4 }}
	case 6:
		return Instruction{"SCF", func(c *CPU) int { c.scf(); return 4 }}
	default:
		return Instruction{"CCF", func(c *CPU) int { c.ccf(); return 4 }}
	}
}

func buildPrimaryX1(y, z byte) Instruction {
	if y == 6 && z == 6 {
		return Instruction{"HALT", func(c *CPU) int { c.halted = true; return 4 }}
	}
	cycles := 4
	if y == 6 || z == 6 {
		cycles = 8
	}
	return Instruction{"LD r,r'", func(c *CPU) int {
		c.setReg8(y, c.reg8(z))
		return cycles
	}}
}

func buildPrimaryX2(y, z byte) Instruction {
	cycles := 4
	if z == 6 {
		cycles = 8
	}
	apply := func(c *CPU) {
		operand := c.reg8(z)
		switch y {
		case 0:
			c.doADD(operand)
		case 1:
			c.doADC(operand)
		case 2:
			c.doSUB(operand)
		case 3:
			c.doSBC(operand)
		case 4:
			c.doAND(operand)
		case 5:
			c.doXOR(operand)
		case 6:
			c.doOR(operand)
		default:
			c.doCP(operand)
		}
	}
	return Instruction{"ALU A,r", func(c *CPU) int { apply(c); return cycles }}
}

func buildPrimaryX3(op, y, z, p, q byte) Instruction {
	switch z {
	case 0:
		switch {
		case y < 4:
			cc := y
			return Instruction{"RET cc", func(c *CPU) int {
				if c.condTrue(cc) {
					c.PC = c.pop16()
					return 20
				}
				return 8
			}}
		case y == 4:
			return Instruction{"LDH (n),A", func(c *CPU) int {
				n := uint16(c.fetch8())
				c.write8(0xFF00+n, c.A)
				return 12
			}}
		case y == 5:
			return Instruction{"ADD SP,e", func(c *CPU) int {
				off := int8(c.fetch8())
				low := byte(c.SP)
				_, _, _, h, cy := add8(low, byte(off))
				c.SP = uint16(int32(c.SP) + int32(off))
				c.setZNHC(false, false, h, cy)
				return 16
			}}
		case y == 6:
			return Instruction{"LDH A,(n)", func(c *CPU) int {
				n := uint16(c.fetch8())
				c.A = c.read8(0xFF00 + n)
				return 12
			}}
		default:
			return Instruction{"LD HL,SP+e", func(c *CPU) int {
				off := int8(c.fetch8())
				low := byte(c.SP)
				_, _, _, h, cy := add8(low, byte(off))
				c.setHL(uint16(int32(c.SP) + int32(off)))
				c.setZNHC(false, false, h, cy)
				return 12
			}}
		}
	case 1:
		if q == 0 {
			return Instruction{"POP rp2", func(c *CPU) int { c.setRegPair2(p, c.pop16()); return 12 }}
		}
		switch p {
		case 0:
			return Instruction{"RET", func(c *CPU) int { c.PC = c.pop16(); return 16 }}
		case 1:
			return Instruction{"RETI", func(c *CPU) int {
				c.PC = c.pop16()
				c.ime = true
				return 16
			}}
		case 2:
			return Instruction{"JP (HL)", func(c *CPU) int { c.PC = c.getHL(); return 4 }}
		default:
			return Instruction{"LD SP,HL", func(c *CPU) int { c.SP = c.getHL(); return 8 }}
		}
	case 2:
		switch {
		case y < 4:
			cc := y
			return Instruction{"JP cc,nn", func(c *CPU) int {
				addr := c.fetch16()
				if c.condTrue(cc) {
					c.PC = addr
					return 16
				}
				return 12
			}}
		case y == 4:
			return Instruction{"LDH (C),A", func(c *CPU) int {
				c.write8(0xFF00+uint16(c.C), c.A)
				return 8
			}}
		case y == 5:
			return Instruction{"LD (nn),A", func(c *CPU) int {
				c.write8(c.fetch16(), c.A)
				return 16
			}}
		case y == 6:
			return Instruction{"LDH A,(C)", func(c *CPU) int {
				c.A = c.read8(0xFF00 + uint16(c.C))
				return 8
			}}
		default:
			return Instruction{"LD A,(nn)", func(c *CPU) int {
				c.A = c.read8(c.fetch16())
				return 16
			}}
		}
	case 3:
		switch y {
		case 0:
			return Instruction{"JP nn", func(c *CPU) int { c.PC = c.fetch16(); return 16 }}
		case 1:
			return Instruction{"CB prefix", execCBPrefixed}
		case 6:
			return Instruction{"DI", func(c *CPU) int { c.ime = false; c.imeScheduled = false; return 4 }}
		default: // y == 7
			return Instruction{"EI", func(c *CPU) int { c.imeScheduled = true; return 4 }}
		}
	case 4:
		cc := y
		return Instruction{"CALL cc,nn", func(c *CPU) int {
			addr := c.fetch16()
			if c.condTrue(cc) {
				c.push16(c.PC)
				c.PC = addr
				return 24
			}
			return 12
		}}
	case 5:
		if q == 0 {
			return Instruction{"PUSH rp2", func(c *CPU) int { c.push16(c.regPair2(p)); return 16 }}
		}
		return Instruction{"CALL nn", func(c *CPU) int {
			addr := c.fetch16()
			c.push16(c.PC)
			c.PC = addr
			return 24
		}}
	case 6:
		cycles := 8
		apply := func(c *CPU) {
			operand := c.fetch8()
			switch y {
			case 0:
				c.doADD(operand)
			case 1:
				c.doADC(operand)
			case 2:
				c.doSUB(operand)
			case 3:
				c.doSBC(operand)
			case 4:
				c.doAND(operand)
			case 5:
				c.doXOR(operand)
			case 6:
				c.doOR(operand)
			default:
				c.doCP(operand)
			}
		}
		return Instruction{"ALU A,n", func(c *CPU) int { apply(c); return cycles }}
	default: // z == 7: RST y*8
		target := uint16(y) * 8
		return Instruction{"RST", func(c *CPU) int {
			c.push16(c.PC)
			c.PC = target
			return 16
		}}
	}
}
