package ppu

// VRAMReader provides read-only access to tile maps and tile data for the
// scanline renderer and the sprite compositor. The bus satisfies this
// directly, since VRAM reads are just ordinary bus reads in the
// 0x8000-0x9FFF window; tests use a plain map-backed fake instead of a
// whole bus.
type VRAMReader interface {
	Read(addr uint16) byte
}

// tileRow is one fetched 8-pixel slice of a background/window tile: eight
// 2-bit color indices (0..3), pixel 0 leftmost.
type tileRow [8]byte

// fetchTileRow reads the tile index at tileIndexAddr, then decodes the row
// fineY (0..7) of that tile's 2bpp bitplane data into color indices.
// tileData8000 selects unsigned $8000 addressing (tile number 0..255 maps
// directly onto $8000..$8FFF); otherwise tile numbers are signed and
// relative to the $9000 block (the familiar $8800 addressing mode).
func fetchTileRow(mem VRAMReader, tileIndexAddr uint16, tileData8000 bool, fineY byte) tileRow {
	tileNum := mem.Read(tileIndexAddr)

	var base uint16
	if tileData8000 {
		base = 0x8000 + uint16(tileNum)*16 + uint16(fineY&7)*2
	} else {
		base = 0x9000 + uint16(int8(tileNum))*16 + uint16(fineY&7)*2
	}
	lo := mem.Read(base)
	hi := mem.Read(base + 1)

	var row tileRow
	for px := 0; px < 8; px++ {
		bit := 7 - byte(px)
		row[px] = ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
	}
	return row
}
