package joypad

import (
	"testing"

	"github.com/pocketcore/gbcore/internal/bus"
	"github.com/pocketcore/gbcore/internal/cart"
)

func newHarness(t *testing.T) *bus.Bus {
	t.Helper()
	return bus.New(cart.NewROMOnly(make([]byte, 32*1024)))
}

func TestJoypad_DPadSelection(t *testing.T) {
	b := newHarness(t)
	j := New()

	b.Write(0xFF00, 0x20) // select D-pad (P14 low, P15 high)
	j.Press(b, Right)

	got := b.Read(0xFF00)
	if got&0x01 != 0 {
		t.Fatalf("Right should read as pressed (bit0=0), got %02X", got)
	}
	if got&0x0E != 0x0E {
		t.Fatalf("other dpad bits should read high, got %02X", got)
	}
}

func TestJoypad_ButtonSelection(t *testing.T) {
	b := newHarness(t)
	j := New()

	b.Write(0xFF00, 0x10) // select buttons (P15 low, P14 high)
	j.Press(b, A)
	j.Press(b, Start)

	got := b.Read(0xFF00)
	if got&0x01 != 0 {
		t.Fatalf("A should read as pressed, got %02X", got)
	}
	if got&0x08 != 0 {
		t.Fatalf("Start should read as pressed, got %02X", got)
	}
	if got&0x06 != 0x06 {
		t.Fatalf("B/Select should read high, got %02X", got)
	}
}

func TestJoypad_EdgeTriggeredInterrupt(t *testing.T) {
	b := newHarness(t)
	j := New()
	b.Write(0xFF00, 0x20) // select D-pad

	j.Refresh(b)
	if b.IF()&bus.IntJoypad != 0 {
		t.Fatalf("no press yet, interrupt should not be requested")
	}

	j.Press(b, Down)
	if b.IF()&bus.IntJoypad == 0 {
		t.Fatalf("press should raise joypad interrupt on 1->0 transition")
	}

	b.SetIF(b.IF() &^ bus.IntJoypad)
	j.Refresh(b) // still held, no new transition
	if b.IF()&bus.IntJoypad != 0 {
		t.Fatalf("holding the button should not re-raise the interrupt")
	}
}

func TestJoypad_NoSelectionReadsAllHigh(t *testing.T) {
	b := newHarness(t)
	j := New()
	b.Write(0xFF00, 0x30) // neither group selected
	j.Press(b, A)
	j.Press(b, Up)

	got := b.Read(0xFF00)
	if got&0x0F != 0x0F {
		t.Fatalf("with no group selected, low nibble should read all-high, got %02X", got)
	}
}
