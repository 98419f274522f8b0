package cpu

// cbTable is the second 256-entry table spec.md §4.3 describes: rotate,
// shift, bit-test, bit-set, and bit-reset operations over the eight targets
// {B,C,D,E,H,L,(HL),A}, indexed by the byte following a 0xCB prefix.
var cbTable [256]Instruction

func buildCBTable() {
	for cb := 0; cb < 256; cb++ {
		op := byte(cb)
		z := op & 0x07
		y := (op >> 3) & 0x07
		g := (op >> 6) & 0x03 // operation group: rotate/BIT/RES/SET
		cbTable[op] = buildCBEntry(g, y, z)
	}
}

func buildCBEntry(g, y, z byte) Instruction {
	cycles := 8
	if z == 6 {
		cycles = 16
	}

	switch g {
	case 0: // rotate/shift/swap
		return Instruction{"CB rot/shift", func(c *CPU) int {
			v := c.reg8(z)
			var res byte
			var cy bool
			switch y {
			case 0:
				res, cy = rlc(v)
			case 1:
				res, cy = rrc(v)
			case 2:
				res, cy = rl(v, c.F&flagC != 0)
			case 3:
				res, cy = rr(v, c.F&flagC != 0)
			case 4:
				res, cy = sla(v)
			case 5:
				res, cy = sra(v)
			case 6:
				res, cy = swap(v), false
			default:
				res, cy = srl(v)
			}
			c.setReg8(z, res)
			c.setZNHC(res == 0, false, false, cy)
			return cycles
		}}
	case 1: // BIT y, r
		return Instruction{"BIT", func(c *CPU) int {
			v := c.reg8(z)
			bitSet := v&(1<<y) != 0
			c.F = (c.F & flagC) | flagH
			if !bitSet {
				c.F |= flagZ
			}
			if z == 6 {
				return 12
			}
			return 8
		}}
	case 2: // RES y, r
		return Instruction{"RES", func(c *CPU) int {
			c.setReg8(z, c.reg8(z)&^(1<<y))
			return cycles
		}}
	default: // SET y, r
		return Instruction{"SET", func(c *CPU) int {
			c.setReg8(z, c.reg8(z)|(1<<y))
			return cycles
		}}
	}
}

// execCBPrefixed is the primary table's entry for opcode 0xCB: fetch the
// second byte and dispatch through cbTable. There are no illegal CB bytes.
// cbTable's cycle counts already cover the full two-byte instruction, so
// the prefix fetch itself adds no further cycles.
func execCBPrefixed(c *CPU) int {
	cb := c.fetch8()
	return cbTable[cb].Exec(c)
}
