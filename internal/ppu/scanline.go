package ppu

// RenderBackgroundLine assembles the 160 background color indices for
// scanline ly by walking the tile map one tile at a time, starting at the
// tile column SCX falls in, and skipping the sub-tile pixels SCX scrolls
// past within that first tile.
//
//   - mem: VRAM reader (the bus in production, a fake in tests)
//   - mapBase: 0x9800 or 0x9C00, whichever tile map LCDC selects for BG
//   - tileData8000: true selects unsigned $8000 tile addressing, false the
//     signed $8800 mode
//   - scx, scy: the scroll registers
//   - ly: the scanline being drawn (0..143)
func RenderBackgroundLine(mem VRAMReader, mapBase uint16, tileData8000 bool, scx, scy, ly byte) [160]byte {
	var out [160]byte

	bgRow := uint16(ly) + uint16(scy)
	fineY := byte(bgRow & 7)
	mapRow := (bgRow >> 3) & 31
	tileCol := (uint16(scx) >> 3) & 31
	skip := int(scx & 7)

	col := 0
	for col < 160 {
		row := fetchTileRow(mem, mapBase+mapRow*32+tileCol, tileData8000, fineY)

		px := 0
		if col == 0 {
			px = skip
		}
		for ; px < 8 && col < 160; px++ {
			out[col] = row[px]
			col++
		}
		tileCol = (tileCol + 1) & 31
	}
	return out
}

// RenderWindowLine assembles the 160-wide window layer for a scanline,
// starting at screen column wxStart (WX-7, per the window's placement
// rule) and reading tile column 0 of the window's own tile map onward.
// winLine is the window's internal line counter, which only advances on
// rows where the window is actually drawn and is independent of ly/SCY.
// Columns left of wxStart are left at zero; the caller is responsible for
// not overwriting the background there.
func RenderWindowLine(mem VRAMReader, mapBase uint16, tileData8000 bool, wxStart int, winLine byte) [160]byte {
	var out [160]byte
	if wxStart >= 160 {
		return out
	}
	if wxStart < 0 {
		wxStart = 0
	}

	mapRow := (uint16(winLine) >> 3) & 31
	fineY := winLine & 7

	col := wxStart
	tileCol := uint16(0)
	for col < 160 {
		row := fetchTileRow(mem, mapBase+mapRow*32+tileCol, tileData8000, fineY)
		for px := 0; px < 8 && col < 160; px++ {
			out[col] = row[px]
			col++
		}
		tileCol = (tileCol + 1) & 31
	}
	return out
}
