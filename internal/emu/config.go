package emu

import "io"

// Config contains settings that affect emulation behavior but not its
// observable correctness: tracing and the optional boot image.
type Config struct {
	// Trace, if non-nil, receives one line per executed CPU instruction,
	// written just before it runs ("PC, opcode, mnemonic, AF/BC/DE/HL/SP").
	Trace io.Writer

	// BootROM, if non-empty, is mounted over 0x0000-0x00FF until the
	// program writes a nonzero value to 0xFF50 (spec.md §3).
	BootROM []byte
}
