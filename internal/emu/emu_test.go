package emu

import (
	"testing"

	"github.com/pocketcore/gbcore/internal/bus"
	"github.com/pocketcore/gbcore/internal/joypad"
)

// testROM builds a minimal ROM-only cartridge image with a header claiming
// type 0x00 (ROM ONLY) and a 32KiB size code, large enough to satisfy
// ParseHeader, with code bytes planted at 0x0100 (the post-boot entry
// point).
func testROM(t *testing.T, code []byte) []byte {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[0x0100:], code)
	rom[0x0147] = 0x00 // ROM ONLY
	rom[0x0148] = 0x00 // 32KiB
	rom[0x0149] = 0x00 // no RAM
	return rom
}

func newMachine(t *testing.T, code []byte) *Machine {
	t.Helper()
	m := New(Config{})
	if err := m.LoadCartridge(testROM(t, code)); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	return m
}

func TestMachine_ResetDefaultsWithoutBootROM(t *testing.T) {
	m := newMachine(t, []byte{0x00})
	snap := m.CPUSnapshot()
	if snap.PC != 0x0100 {
		t.Fatalf("PC got %#04x want 0x0100", snap.PC)
	}
	if snap.SP != 0xFFFE {
		t.Fatalf("SP got %#04x want 0xFFFE", snap.SP)
	}
	if m.bus.IE() != 0x00 || m.bus.IF() != 0x01 {
		t.Fatalf("IE/IF got %#02x/%#02x want 0x00/0x01 (masked to 5 bits)", m.bus.IE(), m.bus.IF())
	}
}

func TestMachine_ResetWithBootROMStartsAtZero(t *testing.T) {
	boot := make([]byte, 0x100)
	m := New(Config{BootROM: boot})
	if err := m.LoadCartridge(testROM(t, []byte{0x00})); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if snap := m.CPUSnapshot(); snap.PC != 0x0000 {
		t.Fatalf("PC got %#04x want 0x0000 with boot ROM mounted", snap.PC)
	}
}

func TestMachine_StepInstructionReturnsCPUCycles(t *testing.T) {
	m := newMachine(t, []byte{0x00}) // NOP
	cycles, err := m.StepInstruction()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycles != 4 {
		t.Fatalf("NOP cycles got %d want 4", cycles)
	}
	if snap := m.CPUSnapshot(); snap.PC != 0x0101 {
		t.Fatalf("PC got %#04x want 0x0101", snap.PC)
	}
}

func TestMachine_StepInstructionPropagatesUndefinedOpcode(t *testing.T) {
	m := newMachine(t, []byte{0xD3}) // illegal
	if _, err := m.StepInstruction(); err == nil {
		t.Fatalf("expected an error for an illegal opcode")
	}
}

// TestMachine_BreakpointStopsStepFrame spins on an infinite JP to itself and
// checks that StepFrame halts on the breakpoint well before the ~70224
// cycle frame budget.
func TestMachine_BreakpointStopsStepFrame(t *testing.T) {
	m := newMachine(t, []byte{0xC3, 0x00, 0x01}) // JP 0x0100
	m.AddBreakpoint(0x0100)

	// StepFrame checks the breakpoint before stepping, and the CPU already
	// starts at 0x0100 post-reset, so it fires immediately.
	total, hit, err := m.StepFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Fatalf("expected breakpoint hit")
	}
	if total >= cyclesPerFrame {
		t.Fatalf("expected early exit, got total=%d (frame budget %d)", total, cyclesPerFrame)
	}
}

func TestMachine_StepFrameRunsFullBudgetWithoutBreakpoint(t *testing.T) {
	m := newMachine(t, []byte{0x00}) // NOP; falls through into zeroed ROM (more NOPs)
	total, hit, err := m.StepFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Fatalf("did not expect a breakpoint hit")
	}
	if total < cyclesPerFrame {
		t.Fatalf("expected at least a full frame of cycles, got %d", total)
	}
}

// TestMachine_InterruptPriorityEndToEnd is scenario S4, driven through the
// Machine's own StepInstruction rather than the CPU directly.
func TestMachine_InterruptPriorityEndToEnd(t *testing.T) {
	// ime is unexported on CPU; reach it via EI executed one instruction
	// earlier in ROM instead of poking internals directly.
	m := newMachine(t, []byte{0xFB, 0x00}) // EI; NOP
	m.bus.SetIE(0x1F)
	m.bus.SetIF(0x1F)

	if _, err := m.StepInstruction(); err != nil { // EI
		t.Fatalf("EI step: %v", err)
	}
	if _, err := m.StepInstruction(); err != nil { // NOP, ime now active
		t.Fatalf("NOP step: %v", err)
	}

	cycles, err := m.StepInstruction() // interrupt should dispatch now
	if err != nil {
		t.Fatalf("dispatch step: %v", err)
	}
	if cycles != 20 {
		t.Fatalf("dispatch cycles got %d want 20", cycles)
	}
	if snap := m.CPUSnapshot(); snap.PC != 0x0040 {
		t.Fatalf("PC got %#04x want 0x0040 (VBLANK vector)", snap.PC)
	}
	if m.bus.IF() != 0x1E {
		t.Fatalf("IF got %#02x want 0x1E", m.bus.IF())
	}
}

func TestMachine_ButtonPressRaisesJoypadInterrupt(t *testing.T) {
	m := newMachine(t, []byte{0x00})
	m.bus.SetIOReg(0xFF00, 0x20) // select D-pad
	m.bus.SetIF(0x00)

	m.PressButton(joypad.Down)
	if m.bus.IF()&bus.IntJoypad == 0 {
		t.Fatalf("expected JOYPAD interrupt flag set after pressing Down")
	}

	m.bus.SetIF(0x00)
	m.ReleaseButton(joypad.Down)
	if m.bus.IF()&bus.IntJoypad != 0 {
		t.Fatalf("releasing a button must not raise the joypad interrupt")
	}
}

func TestMachine_AdvanceAccumulatesFractionalCycles(t *testing.T) {
	m := newMachine(t, []byte{0x00})
	// One machine-cycle tick is ~238ns; ask for a handful of nanoseconds at
	// a time and confirm the fractional remainder eventually produces a
	// real step instead of silently discarding time.
	var total int
	for i := 0; i < 10; i++ {
		n, err := m.Advance(50)
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		total += n
	}
	if total == 0 {
		t.Fatalf("expected the accumulated remainder to eventually pay down at least one cycle")
	}
}

func TestMachine_BreakpointManagement(t *testing.T) {
	m := newMachine(t, []byte{0x00})
	m.AddBreakpoint(0x1234)
	m.AddBreakpoint(0x5678)
	if len(m.Breakpoints()) != 2 {
		t.Fatalf("expected 2 breakpoints, got %d", len(m.Breakpoints()))
	}
	m.RemoveBreakpoint(0x1234)
	bps := m.Breakpoints()
	if len(bps) != 1 || bps[0] != 0x5678 {
		t.Fatalf("expected only 0x5678 left, got %v", bps)
	}
}

func TestMachine_HasBreakpoint(t *testing.T) {
	m := newMachine(t, []byte{0x00})
	if m.HasBreakpoint(0x1234) {
		t.Fatalf("fresh machine should have no breakpoints")
	}
	m.AddBreakpoint(0x1234)
	if !m.HasBreakpoint(0x1234) {
		t.Fatalf("expected 0x1234 to be a breakpoint after AddBreakpoint")
	}
	if m.HasBreakpoint(0x5678) {
		t.Fatalf("0x5678 was never added as a breakpoint")
	}
	m.RemoveBreakpoint(0x1234)
	if m.HasBreakpoint(0x1234) {
		t.Fatalf("expected 0x1234 to no longer be a breakpoint after RemoveBreakpoint")
	}
}

func TestMachine_ClearBreakpoints(t *testing.T) {
	m := newMachine(t, []byte{0x00})
	m.AddBreakpoint(0x1234)
	m.AddBreakpoint(0x5678)
	m.ClearBreakpoints()
	if len(m.Breakpoints()) != 0 {
		t.Fatalf("expected no breakpoints after ClearBreakpoints, got %v", m.Breakpoints())
	}
	if m.HasBreakpoint(0x1234) || m.HasBreakpoint(0x5678) {
		t.Fatalf("ClearBreakpoints left stale entries")
	}
}
