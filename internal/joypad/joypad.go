// Package joypad implements the P1/JOYP register composition and the
// edge-triggered joypad interrupt described in spec.md §4.6.
package joypad

import "github.com/pocketcore/gbcore/internal/bus"

const regP1 = 0xFF00

// Button identifies one of the eight physical inputs. The bit layout
// matches spec.md §4.6: Right/A share bit0, Left/B share bit1,
// Up/Select share bit2, Down/Start share bit3, selected by P1 bit4/bit5.
type Button byte

const (
	Right Button = 1 << 0
	Left  Button = 1 << 1
	Up    Button = 1 << 2
	Down  Button = 1 << 3
	A     Button = 1 << 4
	B     Button = 1 << 5
	Select Button = 1 << 6
	Start  Button = 1 << 7
)

// Joypad tracks which buttons are currently held and the last composed P1
// lower nibble, so it can detect the 1->0 transition spec.md requires for
// raising the joypad interrupt.
type Joypad struct {
	pressed  Button
	prevLow4 byte
}

// New constructs a Joypad with no buttons held.
func New() *Joypad { return &Joypad{prevLow4: 0x0F} }

// Press marks buttons as held and immediately refreshes P1, so a press that
// arrives between Advance calls can still raise the interrupt promptly.
func (j *Joypad) Press(b *bus.Bus, buttons Button) {
	j.pressed |= buttons
	j.Refresh(b)
}

// Release marks buttons as no longer held.
func (j *Joypad) Release(b *bus.Bus, buttons Button) {
	j.pressed &^= buttons
	j.Refresh(b)
}

// Refresh recomputes the P1 register from the current selection bits
// (written by the CPU into bits 4-5 of 0xFF00) and the currently held
// buttons, requesting IntJoypad on any 1->0 transition of the low nibble.
func (j *Joypad) Refresh(b *bus.Bus) {
	sel := b.IOReg(regP1) & 0x30

	low4 := byte(0x0F)
	if sel&0x10 == 0 { // P14 low selects the D-pad
		if j.pressed&Right != 0 {
			low4 &^= 0x01
		}
		if j.pressed&Left != 0 {
			low4 &^= 0x02
		}
		if j.pressed&Up != 0 {
			low4 &^= 0x04
		}
		if j.pressed&Down != 0 {
			low4 &^= 0x08
		}
	}
	if sel&0x20 == 0 { // P15 low selects the buttons
		if j.pressed&A != 0 {
			low4 &^= 0x01
		}
		if j.pressed&B != 0 {
			low4 &^= 0x02
		}
		if j.pressed&Select != 0 {
			low4 &^= 0x04
		}
		if j.pressed&Start != 0 {
			low4 &^= 0x08
		}
	}

	falling := j.prevLow4 &^ low4
	if falling != 0 {
		b.RequestInterrupt(bus.IntJoypad)
	}
	j.prevLow4 = low4

	b.SetIOReg(regP1, 0xC0|sel|low4)
}

// Reset releases every button and sets the edge detector back to the idle
// (all-high) nibble; P1 itself is rewritten on the next Refresh.
func (j *Joypad) Reset() {
	j.pressed = 0
	j.prevLow4 = 0x0F
}
