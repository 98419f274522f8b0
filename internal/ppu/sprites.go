package ppu

import "sort"

// Attribute bits of an OAM entry's fourth byte (spec.md §3 "Sprite").
const (
	SpritePriority   = 1 << 7
	SpriteYFlip      = 1 << 6
	SpriteXFlip      = 1 << 5
	SpritePaletteSel = 1 << 4
)

// Sprite is one OAM entry selected as visible on a given scanline.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

// scanOAM walks all 40 OAM entries and keeps up to the first ten whose
// vertical extent covers ly, then sorts them by descending X so that the
// draw loop's natural left-to-right overwrite implements "lowest X wins"
// (spec.md §4.4 "Sprites").
func scanOAM(mem VRAMReader, ly byte, tall bool) []Sprite {
	height := 8
	if tall {
		height = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := uint16(0xFE00 + i*4)
		y := int(mem.Read(base)) - 16
		if int(ly) < y || int(ly) >= y+height {
			continue
		}
		x := int(mem.Read(base+1)) - 8
		out = append(out, Sprite{
			X: x, Y: y,
			Tile:     mem.Read(base + 2),
			Attr:     mem.Read(base + 3),
			OAMIndex: i,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X > out[j].X
		}
		// Equal X: the lowest OAM index has priority on real hardware, so it
		// must be drawn last (ties resolve by descending OAMIndex here).
		return out[i].OAMIndex > out[j].OAMIndex
	})
	return out
}

// composeSpriteLineFull renders the visible sprites for scanline ly into a
// 160-wide row of raw tile color indices (0 meaning transparent / no
// sprite pixel, so the caller falls back to the background), plus a
// parallel mask recording which pixels should use OBP1 instead of OBP0.
func composeSpriteLineFull(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, obj8x16 bool) (colors [160]byte, useOBP1 [160]bool) {
	height := 8
	if obj8x16 {
		height = 16
	}
	for _, s := range sprites {
		line := int(ly) - s.Y
		if s.Attr&SpriteYFlip != 0 {
			line = height - 1 - line
		}
		tile := s.Tile
		if obj8x16 {
			tile &^= 0x01
			if line >= 8 {
				tile |= 0x01
				line -= 8
			}
		}
		base := uint16(0x8000) + uint16(tile)*16 + uint16(line)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)
		for px := 0; px < 8; px++ {
			x := s.X + px
			if x < 0 || x >= 160 {
				continue
			}
			bit := byte(7 - px)
			if s.Attr&SpriteXFlip != 0 {
				bit = byte(px)
			}
			ci := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
			if ci == 0 {
				continue
			}
			if s.Attr&SpritePriority != 0 && bgci[x] != 0 {
				continue
			}
			colors[x] = ci
			useOBP1[x] = s.Attr&SpritePaletteSel != 0
		}
	}
	return colors, useOBP1
}

// ComposeSpriteLine is the raw-color-index view of composeSpriteLineFull,
// kept as its own entry point because it is the natural unit to test
// against hand-built tile data without wiring up palettes.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, obj8x16 bool) [160]byte {
	colors, _ := composeSpriteLineFull(mem, sprites, ly, bgci, obj8x16)
	return colors
}
