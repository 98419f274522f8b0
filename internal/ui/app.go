// Package ui drives the core with a real window: an ebiten.Game that maps
// the keyboard onto the eight physical buttons and blits the palette-index
// framebuffer to the screen every frame.
package ui

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/pocketcore/gbcore/internal/emu"
	"github.com/pocketcore/gbcore/internal/joypad"
)

const (
	screenW = 160
	screenH = 144
)

// shade is the classic four-tone DMG palette, darkest last.
var shade = [4]color.RGBA{
	{0xE0, 0xF0, 0xE7, 0xFF},
	{0x8B, 0xA3, 0x94, 0xFF},
	{0x55, 0x64, 0x58, 0xFF},
	{0x20, 0x2A, 0x24, 0xFF},
}

var keymap = map[ebiten.Key]joypad.Button{
	ebiten.KeyArrowRight: joypad.Right,
	ebiten.KeyArrowLeft:  joypad.Left,
	ebiten.KeyArrowUp:    joypad.Up,
	ebiten.KeyArrowDown:  joypad.Down,
	ebiten.KeyZ:          joypad.A,
	ebiten.KeyX:          joypad.B,
	ebiten.KeyBackspace:  joypad.Select,
	ebiten.KeyEnter:      joypad.Start,
}

// App is a thin ebiten.Game wrapper around an emu.Machine.
type App struct {
	cfg     Config
	machine *emu.Machine
	img     *ebiten.Image
	rgba    []byte
	last    time.Time
}

// NewApp constructs an App ready to Run. machine must already have a
// cartridge loaded.
func NewApp(cfg Config, machine *emu.Machine) *App {
	cfg.Defaults()
	return &App{
		cfg:     cfg,
		machine: machine,
		img:     ebiten.NewImage(screenW, screenH),
		rgba:    make([]byte, screenW*screenH*4),
	}
}

// Run opens the window and blocks until it is closed.
func (a *App) Run() error {
	ebiten.SetWindowSize(screenW*a.cfg.Scale, screenH*a.cfg.Scale)
	ebiten.SetWindowTitle(a.cfg.Title)
	a.last = time.Now()
	return ebiten.RunGame(a)
}

// Update polls the keyboard and advances the machine by the elapsed
// wall-clock time since the last frame (spec.md §4.7's advance(wall_time)).
func (a *App) Update() error {
	for key, button := range keymap {
		switch {
		case inpututil.IsKeyJustPressed(key):
			a.machine.PressButton(button)
		case inpututil.IsKeyJustReleased(key):
			a.machine.ReleaseButton(button)
		}
	}

	now := time.Now()
	elapsed := now.Sub(a.last)
	a.last = now
	if _, err := a.machine.Advance(elapsed); err != nil {
		return fmt.Errorf("advance: %w", err)
	}
	return nil
}

// Draw converts the PPU's palette-index framebuffer to RGBA and blits it.
func (a *App) Draw(screen *ebiten.Image) {
	fb := a.machine.Framebuffer()
	i := 0
	for y := 0; y < screenH; y++ {
		for x := 0; x < screenW; x++ {
			c := shade[fb[y][x]&0x03]
			a.rgba[i+0] = c.R
			a.rgba[i+1] = c.G
			a.rgba[i+2] = c.B
			a.rgba[i+3] = c.A
			i += 4
		}
	}
	a.img.WritePixels(a.rgba)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(a.cfg.Scale), float64(a.cfg.Scale))
	screen.DrawImage(a.img, op)
	ebitenutil.DebugPrint(screen, "")
}

// Layout fixes the logical screen size to the console's native resolution.
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}
