package cart

import (
	"encoding/binary"
	"testing"
)

// romSpec describes the header fields a synthetic test ROM should carry;
// makeHeaderedROM fills in everything else (logo, checksums) so tests only
// have to state what they actually care about.
type romSpec struct {
	title       string
	cartType    byte
	romSizeCode byte
	ramSizeCode byte
	size        int
}

func makeHeaderedROM(spec romSpec) []byte {
	rom := make([]byte, spec.size)
	copy(rom[0x0104:0x0104+len(nintendoLogo)], nintendoLogo[:])

	title := []byte(spec.title)
	if len(title) > 16 {
		title = title[:16]
	}
	copy(rom[0x0134:0x0144], title)

	rom[0x0143] = 0x00
	rom[0x0144], rom[0x0145] = '0', '1'
	rom[0x0146] = 0x00
	rom[0x0147] = spec.cartType
	rom[0x0148] = spec.romSizeCode
	rom[0x0149] = spec.ramSizeCode
	rom[0x014A] = 0x00
	rom[0x014B] = 0x33
	rom[0x014C] = 0x01

	var hsum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		hsum = hsum - rom[addr] - 1
	}
	rom[0x014D] = hsum

	putGlobalChecksum(rom)
	return rom
}

func putGlobalChecksum(rom []byte) {
	var sum uint16
	for i, b := range rom {
		if i == 0x014E || i == 0x014F {
			continue
		}
		sum += uint16(b)
	}
	binary.BigEndian.PutUint16(rom[0x014E:0x0150], sum)
}

func TestParseHeaderDecodesCoreFields(t *testing.T) {
	rom := makeHeaderedROM(romSpec{title: "TEST", cartType: 0x01, romSizeCode: 0x01, ramSizeCode: 0x02, size: 64 * 1024})

	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.Title != "TEST" {
		t.Fatalf("Title got %q want %q", h.Title, "TEST")
	}
	if h.CartType != 0x01 || h.CartTypeStr != "MBC1 (variants)" {
		t.Fatalf("CartType got %#02x / %s", h.CartType, h.CartTypeStr)
	}
	if h.ROMSizeBytes != 64*1024 || h.ROMBanks != 4 {
		t.Fatalf("ROM size decode got %d bytes / %d banks", h.ROMSizeBytes, h.ROMBanks)
	}
	if h.RAMSizeBytes != 8*1024 {
		t.Fatalf("RAM size decode got %d", h.RAMSizeBytes)
	}
	if !HeaderChecksumOK(rom) {
		t.Fatalf("HeaderChecksumOK = false, want true")
	}

	var wantGlobal uint16
	for i, b := range rom {
		if i == 0x014E || i == 0x014F {
			continue
		}
		wantGlobal += uint16(b)
	}
	if h.GlobalChecksum != wantGlobal {
		t.Fatalf("GlobalChecksum got %#04x want %#04x", h.GlobalChecksum, wantGlobal)
	}
}

// TestDecodeROMSizeTable exercises every ROM size code ParseHeader
// understands, including the three oddball Pocket/bootleg codes (0x52-0x54)
// that don't follow the doubling pattern of the rest of the table.
func TestDecodeROMSizeTable(t *testing.T) {
	cases := []struct {
		code        byte
		wantBytes   int
		wantBanks   int
	}{
		{0x00, 32 * 1024, 2},
		{0x01, 64 * 1024, 4},
		{0x02, 128 * 1024, 8},
		{0x03, 256 * 1024, 16},
		{0x04, 512 * 1024, 32},
		{0x05, 1 * 1024 * 1024, 64},
		{0x06, 2 * 1024 * 1024, 128},
		{0x07, 4 * 1024 * 1024, 256},
		{0x08, 8 * 1024 * 1024, 512},
		{0x52, 1152 * 1024, 72},
		{0x53, 1280 * 1024, 80},
		{0x54, 1536 * 1024, 96},
		{0xFE, 0, 0}, // unknown code decodes to zero, not an error
	}
	for _, c := range cases {
		gotBytes, gotBanks := decodeROMSize(c.code)
		if gotBytes != c.wantBytes || gotBanks != c.wantBanks {
			t.Fatalf("decodeROMSize(%#02x) = (%d, %d) want (%d, %d)", c.code, gotBytes, gotBanks, c.wantBytes, c.wantBanks)
		}
	}
}

func TestDecodeRAMSizeTable(t *testing.T) {
	cases := []struct {
		code byte
		want int
	}{
		{0x00, 0},
		{0x02, 8 * 1024},
		{0x03, 32 * 1024},
		{0x04, 128 * 1024},
		{0x05, 64 * 1024},
	}
	for _, c := range cases {
		if got := decodeRAMSize(c.code); got != c.want {
			t.Fatalf("decodeRAMSize(%#02x) = %d want %d", c.code, got, c.want)
		}
	}
}

func TestCartTypeStringFallsBackToUnsupported(t *testing.T) {
	if s := cartTypeString(0x1B); s != "Unsupported" {
		t.Fatalf("cartTypeString(0x1B) = %q want Unsupported", s)
	}
	if s := cartTypeString(0x00); s != "ROM ONLY" {
		t.Fatalf("cartTypeString(0x00) = %q want ROM ONLY", s)
	}
}

func TestHeaderChecksumDetectsCorruption(t *testing.T) {
	rom := makeHeaderedROM(romSpec{title: "TEST", size: 32 * 1024})
	if !HeaderChecksumOK(rom) {
		t.Fatalf("HeaderChecksumOK = false on a freshly built ROM")
	}
	rom[0x0134] ^= 0xFF
	if HeaderChecksumOK(rom) {
		t.Fatalf("HeaderChecksumOK = true, want false after corruption")
	}
}

func TestParseHeaderRejectsShortROM(t *testing.T) {
	short := make([]byte, 0x140) // too small to reach 0x014F
	if _, err := ParseHeader(short); err == nil {
		t.Fatalf("expected error on too-small ROM, got nil")
	}
}
