package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC1 implements the standard ROM/RAM banking mapper described in
// spec.md §3/§4.2: up to 125 usable 16 KiB ROM banks and up to four 8 KiB
// RAM banks, selected through four write-only control regions.
type MBC1 struct {
	rom []byte
	ram []byte

	romBankCount int // from header, e.g. 4, 8, 128...
	ramBankCount int // 0 if no external RAM

	romBank        byte // 7 bits: low 5 (bank select) | high 2 (bank/RAM select)
	ramBank        byte // 2 bits, meaningful only in mode 1
	ramEnabled     bool
	modeRAMBanking bool // false: mode 0 (ROM banking); true: mode 1 (RAM banking)
}

// NewMBC1 constructs an MBC1 mapper over rom with an optional ramSize bytes
// of external RAM (0 for none).
func NewMBC1(rom []byte, ramSize int) *MBC1 {
	m := &MBC1{rom: rom}
	m.romBankCount = bankCountFromROM(len(rom))
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
		m.ramBankCount = ramSize / 0x2000
		if m.ramBankCount == 0 {
			m.ramBankCount = 1
		}
	}
	m.romBank = 1
	return m
}

func bankCountFromROM(size int) int {
	banks := size / 0x4000
	if banks < 1 {
		return 1
	}
	return banks
}

// Read implements the bank-selection rules of spec.md §4.2.
func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		bank := 0
		if m.modeRAMBanking {
			bank = int(m.romBank & 0x60)
		}
		bank %= m.romBankCount
		off := bank*0x4000 + int(addr)
		return m.romByte(off)

	case addr < 0x8000:
		low5 := m.romBank & 0x1F
		if low5 == 0 {
			low5 = 1
		}
		bank := int(low5) | int(m.romBank&0x60)
		bank %= m.romBankCount
		off := bank*0x4000 + int(addr-0x4000)
		return m.romByte(off)

	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		bank := 0
		if m.modeRAMBanking {
			bank = int(m.ramBank)
		}
		bank %= m.ramBankCount
		off := bank*0x2000 + int(addr-0xA000)
		if off >= 0 && off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF

	default:
		return 0xFF
	}
}

func (m *MBC1) romByte(off int) byte {
	if off >= 0 && off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

// Write decodes the four control regions plus the external-RAM window, per
// the table in spec.md §4.2.
func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		m.romBank = (m.romBank &^ 0x1F) | (value & 0x1F)
	case addr < 0x6000:
		m.romBank = (m.romBank &^ 0x60) | ((value & 0x03) << 5)
		if m.modeRAMBanking {
			m.ramBank = value & 0x03
		}
	case addr < 0x8000:
		m.modeRAMBanking = (value & 0x01) != 0
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		bank := 0
		if m.modeRAMBanking {
			bank = int(m.ramBank)
		}
		if m.ramBankCount > 0 {
			bank %= m.ramBankCount
		}
		off := bank*0x2000 + int(addr-0xA000)
		if off >= 0 && off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

// SaveRAM returns a copy of the external RAM for battery persistence.
func (m *MBC1) SaveRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

// LoadRAM restores external RAM from a previously saved buffer.
func (m *MBC1) LoadRAM(data []byte) {
	copy(m.ram, data)
}

type mbc1State struct {
	RAM            []byte
	RAMBank        byte
	ROMBank        byte
	RAMEnabled     bool
	ModeRAMBanking bool
}

func (m *MBC1) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc1State{
		RAM: m.ram, RAMBank: m.ramBank, ROMBank: m.romBank,
		RAMEnabled: m.ramEnabled, ModeRAMBanking: m.modeRAMBanking,
	})
	return buf.Bytes()
}

func (m *MBC1) LoadState(data []byte) {
	var s mbc1State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	if len(s.RAM) == len(m.ram) {
		copy(m.ram, s.RAM)
	}
	m.ramBank, m.romBank = s.RAMBank, s.ROMBank
	m.ramEnabled, m.modeRAMBanking = s.RAMEnabled, s.ModeRAMBanking
}
