// Package bus implements the flat 16-bit address space shared by every
// other component of the machine. The CPU, the PPU, the timer, and the
// joypad all read and write memory-mapped bytes through a *Bus; the bus
// alone knows how to route cartridge-region accesses to the mapper and how
// to run OAM DMA.
package bus

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/pocketcore/gbcore/internal/cart"
)

// Interrupt bits, in fixed dispatch priority order (spec.md §4.3/§GLOSSARY).
const (
	IntVBlank  = 1 << 0
	IntLCDStat = 1 << 1
	IntTimer   = 1 << 2
	IntSerial  = 1 << 3
	IntJoypad  = 1 << 4
)

// DividerResetter is implemented by the timer so the bus can collapse its
// internal pre-divider on any write to 0xFF04, without the bus importing
// the timer package.
type DividerResetter interface {
	ResetDivider()
}

// LYCRefresher is implemented by the PPU so the bus can refresh the
// STAT.LYC_EQUAL flag immediately on a CPU write to LY or LYC (spec.md
// §4.4 "Writes to LY/LYC"), without the bus importing the ppu package.
type LYCRefresher interface {
	RefreshLYC(b *Bus)
}

// Bus is the single shared mutable resource described in spec.md §3/§4.1.
// It owns every byte-addressable region except cartridge ROM/RAM, which it
// delegates to the attached mapper.
type Bus struct {
	cart cart.Cartridge

	vram [0x2000]byte // 0x8000-0x9FFF
	wram [0x2000]byte // 0xC000-0xDFFF (echoed at 0xE000-0xFDFF)
	oam  [0xA0]byte   // 0xFE00-0xFE9F
	io   [0x80]byte   // 0xFF00-0xFF7F
	hram [0x7F]byte   // 0xFF80-0xFFFE
	ie   byte         // 0xFFFF

	bootROM      []byte
	bootEnabled  bool
	bootEverUsed bool

	timerHook DividerResetter
	lycHook   LYCRefresher
	sw        io.Writer // optional serial byte sink
}

// New constructs a Bus around an already-built cartridge.
func New(c cart.Cartridge) *Bus {
	return &Bus{cart: c}
}

// SetTimerHook wires the timer's divider-reset callback. The Machine calls
// this once after constructing both components.
func (b *Bus) SetTimerHook(h DividerResetter) { b.timerHook = h }

// SetLYCHook wires the PPU's LYC-refresh callback. The Machine calls this
// once after constructing both components.
func (b *Bus) SetLYCHook(h LYCRefresher) { b.lycHook = h }

// SetSerialWriter sets an optional sink for bytes transferred via SB/SC.
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// Cart returns the attached cartridge, so callers can persist battery RAM.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// SetBootROM mounts a 256-byte boot image over 0x0000-0x00FF until disabled
// by a nonzero write to 0xFF50.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = make([]byte, 0x100)
		copy(b.bootROM, data[:0x100])
		b.bootEnabled = true
		b.bootEverUsed = true
	}
}

// BootEnabled reports whether the boot ROM currently shadows 0x0000-0x00FF.
func (b *Bus) BootEnabled() bool { return b.bootEnabled }

// Read implements the access contract of spec.md §4.1.
func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr <= 0x9FFF:
		return b.vram[addr-0x8000]
	case addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr <= 0xFDFF: // echo RAM mirrors 0xC000-0xDDFF
		return b.wram[addr-0x2000-0xC000]
	case addr <= 0xFE9F:
		return b.oam[addr-0xFE00]
	case addr <= 0xFEFF: // unusable region
		return 0xFF
	case addr <= 0xFF7F:
		return b.io[addr-0xFF00]
	case addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	default: // 0xFFFF
		return b.ie
	}
}

// Write implements the access contract of spec.md §4.1, including the
// DIV-reset and OAM-DMA side effects that precede normal dispatch.
func (b *Bus) Write(addr uint16, v byte) {
	switch addr {
	case 0xFF04:
		b.io[0x04] = 0
		if b.timerHook != nil {
			b.timerHook.ResetDivider()
		}
		return
	case 0xFF46:
		b.io[0x46] = v
		b.runOAMDMA(v)
		return
	case 0xFF50:
		if v != 0 {
			b.bootEnabled = false
		}
		return
	case 0xFF44, 0xFF45:
		b.io[addr-0xFF00] = v
		if b.lycHook != nil {
			b.lycHook.RefreshLYC(b)
		}
		return
	case 0xFF01:
		b.io[0x01] = v
		return
	case 0xFF02:
		b.io[0x02] = v & 0x81
		if v&0x80 != 0 {
			if b.sw != nil {
				_, _ = b.sw.Write([]byte{b.io[0x01]})
			}
			b.io[0x02] &^= 0x80
			b.RequestInterrupt(IntSerial)
		}
		return
	}

	switch {
	case addr < 0x8000:
		b.cart.Write(addr, v)
	case addr <= 0x9FFF:
		b.vram[addr-0x8000] = v
	case addr <= 0xBFFF:
		b.cart.Write(addr, v)
	case addr <= 0xDFFF:
		b.wram[addr-0xC000] = v
	case addr <= 0xFDFF:
		b.wram[addr-0x2000-0xC000] = v
	case addr <= 0xFE9F:
		b.oam[addr-0xFE00] = v
	case addr <= 0xFEFF:
		// unusable, writes ignored
	case addr <= 0xFF7F:
		b.io[addr-0xFF00] = v
	case addr <= 0xFFFE:
		b.hram[addr-0xFF80] = v
	default:
		b.ie = v
	}
}

// ReadWord/WriteWord are little-endian word accesses built from two byte
// accesses, so they still traverse every side effect above.
func (b *Bus) ReadWord(addr uint16) uint16 {
	lo := uint16(b.Read(addr))
	hi := uint16(b.Read(addr + 1))
	return lo | hi<<8
}

func (b *Bus) WriteWord(addr uint16, v uint16) {
	b.Write(addr, byte(v))
	b.Write(addr+1, byte(v>>8))
}

// runOAMDMA performs the 160-byte block copy that spec.md §4.1 describes as
// an immediate side effect of writing 0xFF46, rather than the teacher's
// original cycle-stepped version: spec.md explicitly treats OAM DMA as an
// instantaneous transfer from the CPU-visible timing model's perspective.
func (b *Bus) runOAMDMA(srcHigh byte) {
	src := uint16(srcHigh) << 8
	for i := 0; i < 0xA0; i++ {
		b.oam[i] = b.Read(src + uint16(i))
	}
}

// Interrupt register accessors used by the CPU's dispatcher and by every
// peripheral that raises an interrupt.
// IF masks to the five request bits; SetIF stores v as given, so a raw read
// of 0xFF0F returns every bit written.
func (b *Bus) IF() byte { return b.io[0x0F] & 0x1F }
func (b *Bus) SetIF(v byte) { b.io[0x0F] = v }
func (b *Bus) IE() byte { return b.ie }
func (b *Bus) SetIE(v byte) { b.ie = v }

func (b *Bus) RequestInterrupt(bit byte) { b.io[0x0F] |= bit }
func (b *Bus) ClearInterrupt(bit byte)   { b.io[0x0F] &^= bit }

// IOReg/SetIOReg expose a raw 0xFF00-0xFF7F register byte directly, for
// peripherals (PPU/timer/joypad) that keep no register state of their own
// and treat the bus as their register file. addr must be in [0xFF00,0xFF7F].
func (b *Bus) IOReg(addr uint16) byte      { return b.io[addr-0xFF00] }
func (b *Bus) SetIOReg(addr uint16, v byte) { b.io[addr-0xFF00] = v }

// Reset restores the bus to its post-reset state (spec.md §3 "Lifecycles"):
// VRAM/WRAM/OAM/HRAM/IO are zeroed, and the boot ROM overlay re-engages iff
// one was ever mounted.
func (b *Bus) Reset() {
	b.vram = [0x2000]byte{}
	b.wram = [0x2000]byte{}
	b.oam = [0xA0]byte{}
	b.io = [0x80]byte{}
	b.hram = [0x7F]byte{}
	b.ie = 0
	b.bootEnabled = b.bootEverUsed
}

// --- Save/Load state ---

type busState struct {
	VRAM   [0x2000]byte
	WRAM   [0x2000]byte
	OAM    [0xA0]byte
	IO     [0x80]byte
	HRAM   [0x7F]byte
	IE     byte
	BootEn bool
}

// SaveState serializes bus-owned memory only; the cartridge and the
// peripherals are not included and have their own state to snapshot.
func (b *Bus) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(busState{
		VRAM: b.vram, WRAM: b.wram, OAM: b.oam, IO: b.io, HRAM: b.hram,
		IE: b.ie, BootEn: b.bootEnabled,
	})
	return buf.Bytes()
}

func (b *Bus) LoadState(data []byte) {
	var s busState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	b.vram, b.wram, b.oam, b.io, b.hram = s.VRAM, s.WRAM, s.OAM, s.IO, s.HRAM
	b.ie, b.bootEnabled = s.IE, s.BootEn
}
