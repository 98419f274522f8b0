// Package timer implements the DIV/TIMA/TMA/TAC free-running divider
// described in spec.md §4.5. The Timer holds only the two cycle
// accumulators; DIV/TIMA/TMA/TAC themselves live on the bus's IO register
// file like every other memory-mapped register.
package timer

import "github.com/pocketcore/gbcore/internal/bus"

const (
	regDIV  = 0xFF04
	regTIMA = 0xFF05
	regTMA  = 0xFF06
	regTAC  = 0xFF07
)

// tacPeriods maps TAC bits 1..0 to the TIMA increment period in machine
// cycles (spec.md §4.5).
var tacPeriods = [4]int{256, 4, 16, 64}

// Timer tracks the two cycle accumulators that drive DIV and TIMA forward.
// The bus's write hook on 0xFF04 resets both of them via ResetDivider, so
// DIV and TIMA share the same "any write restarts the whole divider" rule.
type Timer struct {
	divAccumulator  int
	timaAccumulator int
}

// New constructs a Timer in its post-reset state.
func New() *Timer { return &Timer{} }

// ResetDivider implements bus.DividerResetter. A write to 0xFF04 resets the
// register to zero and, per spec.md §4.5, both of the timer's internal
// accumulators, guaranteeing a full 256 cycles must elapse before DIV next
// increments.
func (t *Timer) ResetDivider() {
	t.divAccumulator = 0
	t.timaAccumulator = 0
}

// Reset restores the timer to its power-on state.
func (t *Timer) Reset() { t.ResetDivider() }

// Advance runs the timer forward by cycles machine cycles, mutating DIV and
// TIMA on the bus per the contract in spec.md §4.5.
func (t *Timer) Advance(b *bus.Bus, cycles int) {
	t.divAccumulator += cycles
	for t.divAccumulator >= 256 {
		t.divAccumulator -= 256
		b.SetIOReg(regDIV, b.IOReg(regDIV)+1)
	}

	tac := b.IOReg(regTAC)
	if tac&0x04 == 0 {
		return
	}
	period := tacPeriods[tac&0x03]

	t.timaAccumulator += cycles
	for t.timaAccumulator >= period {
		t.timaAccumulator -= period
		tima := b.IOReg(regTIMA)
		if tima == 0xFF {
			b.SetIOReg(regTIMA, b.IOReg(regTMA))
			b.RequestInterrupt(bus.IntTimer)
		} else {
			b.SetIOReg(regTIMA, tima+1)
		}
	}
}
