package cart

// romOnlyROMEnd and the external RAM window bounds mirror the address
// decoding every MBC variant also has to do; keeping them named here makes
// it obvious at a glance which address ranges a bankless cartridge still
// has opinions about.
const (
	romOnlyROMEnd   = 0x8000
	romOnlyRAMStart = 0xA000
	romOnlyRAMEnd   = 0xC000
)

// ROMOnly is cartridge type 0x00: a single fixed 32KiB ROM bank, no
// switchable banking, and no external RAM. Any access to the external RAM
// window reads back open-bus 0xFF and is dropped on write, same as a real
// cartridge edge with nothing wired to those pins.
type ROMOnly struct {
	rom []byte
}

var _ Cartridge = (*ROMOnly)(nil)

// NewROMOnly wraps rom as a bankless cartridge. rom is used directly
// (not copied); the caller must not mutate it afterward.
func NewROMOnly(rom []byte) *ROMOnly {
	return &ROMOnly{rom: rom}
}

func (c *ROMOnly) Read(addr uint16) byte {
	if addr < romOnlyROMEnd {
		if int(addr) >= len(c.rom) {
			return 0xFF
		}
		return c.rom[addr]
	}
	// Everything else, including the 0xA000-0xBFFF RAM window this
	// cartridge doesn't populate, reads as open bus.
	return 0xFF
}

// Write is a no-op: a ROM-only cartridge has no control registers and no
// RAM to accept writes into.
func (c *ROMOnly) Write(addr uint16, value byte) {}

// SaveState/LoadState are empty: there is no banking register or RAM to
// persist for this cartridge type.
func (c *ROMOnly) SaveState() []byte      { return nil }
func (c *ROMOnly) LoadState(data []byte) {}
