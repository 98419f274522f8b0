// Command gbemu is the windowed front end: load a ROM, optionally an
// boot image, and either open a window or run a fixed number of frames
// headless for scripted checks.
package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pocketcore/gbcore/internal/cart"
	"github.com/pocketcore/gbcore/internal/emu"
	"github.com/pocketcore/gbcore/internal/ui"
)

type cliFlags struct {
	ROMPath string
	BootROM string
	Scale   int
	Title   string
	Trace   bool
	SaveRAM bool

	Headless bool
	Frames   int
	PNGOut   string
	Expect   string
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&f.BootROM, "bootrom", "", "optional DMG boot ROM")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gbemu", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "CPU trace log to stdout")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")

	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func runHeadless(m *emu.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	for i := 0; i < frames; i++ {
		if _, _, err := m.StepFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	dur := time.Since(start)

	rgba := framebufferRGBA(m)
	crc := crc32.ChecksumIEEE(rgba)
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(rgba, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

// framebufferRGBA converts the PPU's palette-index framebuffer to a flat
// RGBA byte slice using the classic four-tone DMG shades.
func framebufferRGBA(m *emu.Machine) []byte {
	shades := [4][4]byte{
		{0xE0, 0xF0, 0xE7, 0xFF},
		{0x8B, 0xA3, 0x94, 0xFF},
		{0x55, 0x64, 0x58, 0xFF},
		{0x20, 0x2A, 0x24, 0xFF},
	}
	fb := m.Framebuffer()
	out := make([]byte, 160*144*4)
	i := 0
	for y := 0; y < 144; y++ {
		for x := 0; x < 160; x++ {
			c := shades[fb[y][x]&0x03]
			copy(out[i:i+4], c[:])
			i += 4
		}
	}
	return out
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func main() {
	f := parseFlags()
	if f.ROMPath == "" {
		log.Fatal("-rom is required")
	}
	rom := mustRead(f.ROMPath)
	boot := mustRead(f.BootROM)

	if h, err := cart.ParseHeader(rom); err == nil {
		log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
	}

	emuCfg := emu.Config{BootROM: boot}
	if f.Trace {
		emuCfg.Trace = os.Stdout
	}
	m := emu.New(emuCfg)
	if err := m.LoadCartridge(rom); err != nil {
		log.Fatalf("load cart: %v", err)
	}

	savPath := strings.TrimSuffix(f.ROMPath, ".gb") + ".sav"
	if f.SaveRAM {
		if bb, ok := m.Cart().(cart.BatteryBacked); ok {
			if data, err := os.ReadFile(savPath); err == nil {
				bb.LoadRAM(data)
				log.Printf("loaded save RAM: %s (%d bytes)", savPath, len(data))
			}
		}
	}

	saveBattery := func() {
		if !f.SaveRAM {
			return
		}
		bb, ok := m.Cart().(cart.BatteryBacked)
		if !ok {
			return
		}
		data := bb.SaveRAM()
		if len(data) == 0 {
			return
		}
		if err := os.WriteFile(savPath, data, 0644); err == nil {
			log.Printf("wrote %s", savPath)
		}
	}

	if f.Headless {
		if err := runHeadless(m, f.Frames, f.PNGOut, f.Expect); err != nil {
			log.Fatal(err)
		}
		saveBattery()
		return
	}

	app := ui.NewApp(ui.Config{Title: f.Title, Scale: f.Scale}, m)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
	saveBattery()
}
