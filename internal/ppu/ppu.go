// Package ppu implements the scanline picture processing unit described in
// spec.md §4.4: a 456-cycle-per-line, 154-line-per-frame scheduler that
// renders background, window, and sprite layers into a 160x144 framebuffer
// of palette indices and raises VBlank/STAT interrupts.
package ppu

import "github.com/pocketcore/gbcore/internal/bus"

const (
	regLCDC = 0xFF40
	regSTAT = 0xFF41
	regSCY  = 0xFF42
	regSCX  = 0xFF43
	regLY   = 0xFF44
	regLYC  = 0xFF45
	regBGP  = 0xFF47
	regOBP0 = 0xFF48
	regOBP1 = 0xFF49
	regWY   = 0xFF4A
	regWX   = 0xFF4B
)

const (
	lcdcBGWindowEnable    = 1 << 0
	lcdcOBJEnable         = 1 << 1
	lcdcOBJSize           = 1 << 2
	lcdcBGTilemapArea     = 1 << 3
	lcdcTileDataArea      = 1 << 4
	lcdcWindowEnable      = 1 << 5
	lcdcWindowTilemapArea = 1 << 6
	lcdcEnable            = 1 << 7
)

const (
	modeHBlank   = 0
	modeVBlank   = 1
	modeOAM      = 2
	modeTransfer = 3
)

const (
	statLYCFlag      = 1 << 2
	statHBlankEnable = 1 << 3
	statVBlankEnable = 1 << 4
	statOAMEnable    = 1 << 5
	statLYCEnable    = 1 << 6
)

const (
	DefaultLCDC = 0x91
	DefaultSTAT = 0x80
	DefaultBGP  = 0xFC
	DefaultOBP0 = 0xFF
	DefaultOBP1 = 0xFF
)

// LineRegs captures, for one already-rendered scanline, register-derived
// state useful to a caller inspecting frame composition (tests, debuggers).
type LineRegs struct {
	WinLine byte // the window's internal line counter used while rendering this line
}

// PPU holds the picture processing unit's own state: the 160x144
// framebuffer, the within-line dot counter, and the internal window-line
// counter. Everything else (LCDC/STAT/SCX/SCY/LY/LYC/BGP/OBP0/OBP1/WY/WX)
// lives on the bus's IO register file, per spec.md §3.
type PPU struct {
	frame [144][160]byte

	modeClock      int
	winLineCounter byte
	lineWinLine    [144]byte
}

// New constructs a PPU in its zero state; call Reset to apply the
// post-reset register defaults before first use.
func New() *PPU { return &PPU{} }

// Reset restores the PPU's internal counters and writes the default
// register values spec.md §3 assigns at machine reset.
func (p *PPU) Reset(b *bus.Bus) {
	p.frame = [144][160]byte{}
	p.modeClock = 0
	p.winLineCounter = 0
	p.lineWinLine = [144]byte{}

	b.SetIOReg(regLCDC, DefaultLCDC)
	b.SetIOReg(regSTAT, DefaultSTAT)
	b.SetIOReg(regSCY, 0)
	b.SetIOReg(regSCX, 0)
	b.SetIOReg(regLY, 0)
	b.SetIOReg(regLYC, 0)
	b.SetIOReg(regBGP, DefaultBGP)
	b.SetIOReg(regOBP0, DefaultOBP0)
	b.SetIOReg(regOBP1, DefaultOBP1)
	b.SetIOReg(regWY, 0)
	b.SetIOReg(regWX, 0)
}

// Framebuffer returns the current frame: 144 rows of 160 palette indices
// (0..3), already mapped through BGP/OBP0/OBP1.
func (p *PPU) Framebuffer() *[144][160]byte { return &p.frame }

// LineRegs reports window-rendering state captured for the given scanline.
func (p *PPU) LineRegs(ly int) LineRegs { return LineRegs{WinLine: p.lineWinLine[ly]} }

// Advance runs the PPU forward by cycles machine cycles, scheduling the
// mode-2 (OAM search, dots 0-79) / mode-3 (pixel transfer, dots 80-251) /
// mode-0 (HBlank, dots 252-455) sequence within each visible scanline and
// mode 1 (VBlank) on lines 144-153, rendering a scanline's pixels when that
// line ends, and raising VBlank/STAT interrupts exactly as spec.md §4.4
// describes. When the LCD is disabled, mode/LY and the
// framebuffer are left untouched.
func (p *PPU) Advance(b *bus.Bus, cycles int) {
	if b.IOReg(regLCDC)&lcdcEnable == 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		p.modeClock++
		p.updateMode(b)
		if p.modeClock >= 456 {
			p.modeClock -= 456
			p.completeLine(b)
		}
	}
}

func (p *PPU) updateMode(b *bus.Bus) {
	ly := b.IOReg(regLY)
	switch {
	case ly >= 144:
		p.setMode(b, modeVBlank)
	case p.modeClock < 80:
		p.setMode(b, modeOAM)
	case p.modeClock < 80+172:
		p.setMode(b, modeTransfer)
	default:
		p.setMode(b, modeHBlank)
	}
}

func (p *PPU) setMode(b *bus.Bus, mode byte) {
	stat := b.IOReg(regSTAT)
	if stat&0x03 == mode {
		return
	}
	stat = (stat &^ 0x03) | mode
	b.SetIOReg(regSTAT, stat)

	var enableBit byte
	switch mode {
	case modeHBlank:
		enableBit = statHBlankEnable
	case modeVBlank:
		enableBit = statVBlankEnable
	case modeOAM:
		enableBit = statOAMEnable
	default:
		return // mode 3 (pixel transfer) has no STAT interrupt source
	}
	if stat&enableBit != 0 {
		b.RequestInterrupt(bus.IntLCDStat)
	}
}

// completeLine finishes the scanline that just ended: renders it (if
// visible), advances LY with wraparound, switches STAT to the new line's
// first mode (OAM search, or VBlank from line 144), refreshes the LYC
// coincidence flag, and raises VBlank on entry to line 144.
func (p *PPU) completeLine(b *bus.Bus) {
	ly := b.IOReg(regLY)
	if ly < 144 {
		p.renderScanline(b, ly)
	}
	ly = (ly + 1) % 154
	b.SetIOReg(regLY, ly)
	p.updateMode(b)
	refreshLYC(b)
	if ly == 144 {
		b.RequestInterrupt(bus.IntVBlank)
	}
	if ly == 0 {
		p.winLineCounter = 0
	}
}

// RefreshLYC recomputes STAT.LYC_EQUAL from the current LY/LYC bytes and
// raises LCD_STAT if the LYC interrupt source is enabled. It implements
// bus.LYCRefresher so the bus can call it directly on writes to LY or LYC
// (spec.md §4.4 "Writes to LY/LYC") without depending on this package.
func (p *PPU) RefreshLYC(b *bus.Bus) { refreshLYC(b) }

func refreshLYC(b *bus.Bus) {
	ly := b.IOReg(regLY)
	lyc := b.IOReg(regLYC)
	stat := b.IOReg(regSTAT)
	if ly == lyc {
		stat |= statLYCFlag
		b.SetIOReg(regSTAT, stat)
		if stat&statLYCEnable != 0 {
			b.RequestInterrupt(bus.IntLCDStat)
		}
	} else {
		b.SetIOReg(regSTAT, stat&^statLYCFlag)
	}
}

// renderScanline draws one visible line (background, window, sprites) into
// the framebuffer, per the pixel derivation rules in spec.md §4.4.
func (p *PPU) renderScanline(b *bus.Bus, ly byte) {
	lcdc := b.IOReg(regLCDC)
	scx := b.IOReg(regSCX)
	scy := b.IOReg(regSCY)

	var bgColorIDs [160]byte
	if lcdc&lcdcBGWindowEnable != 0 {
		mapBase := uint16(0x9800)
		if lcdc&lcdcBGTilemapArea != 0 {
			mapBase = 0x9C00
		}
		bgColorIDs = RenderBackgroundLine(b, mapBase, lcdc&lcdcTileDataArea != 0, scx, scy, ly)
	}

	var winLineUsed byte
	wy := b.IOReg(regWY)
	wx := b.IOReg(regWX)
	windowActive := lcdc&lcdcWindowEnable != 0 && lcdc&lcdcBGWindowEnable != 0 && ly >= wy && wx <= 166
	if windowActive {
		winLineUsed = p.winLineCounter
		mapBase := uint16(0x9800)
		if lcdc&lcdcWindowTilemapArea != 0 {
			mapBase = 0x9C00
		}
		wxStart := int(wx) - 7
		winRow := RenderWindowLine(b, mapBase, lcdc&lcdcTileDataArea != 0, wxStart, winLineUsed)
		start := wxStart
		if start < 0 {
			start = 0
		}
		for x := start; x < 160; x++ {
			bgColorIDs[x] = winRow[x]
		}
		p.winLineCounter++
	}
	p.lineWinLine[ly] = winLineUsed

	var spriteColors [160]byte
	var spriteOBP1 [160]bool
	if lcdc&lcdcOBJEnable != 0 {
		tall := lcdc&lcdcOBJSize != 0
		sprites := scanOAM(b, ly, tall)
		spriteColors, spriteOBP1 = composeSpriteLineFull(b, sprites, ly, bgColorIDs, tall)
	}

	bgp := b.IOReg(regBGP)
	obp0 := b.IOReg(regOBP0)
	obp1 := b.IOReg(regOBP1)
	for x := 0; x < 160; x++ {
		if spriteColors[x] != 0 {
			pal := obp0
			if spriteOBP1[x] {
				pal = obp1
			}
			p.frame[ly][x] = paletteLookup(pal, spriteColors[x])
			continue
		}
		p.frame[ly][x] = paletteLookup(bgp, bgColorIDs[x])
	}
}

func paletteLookup(palette, colorID byte) byte {
	return (palette >> (colorID * 2)) & 0x03
}
