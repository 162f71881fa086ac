package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"isovoxel/internal/sim/control"
	"isovoxel/internal/sim/world/terrain/gen"
	"isovoxel/internal/sim/world/visibility"
)

type Tuning struct {
	Gen      gen.Config        `yaml:"gen"`
	View     visibility.Config `yaml:"view"`
	Control  control.Config    `yaml:"control"`
	Viewport Viewport          `yaml:"viewport"`

	// FrameHz drives the headless frame loop; the desktop viewer follows the display.
	FrameHz int `yaml:"frame_hz"`
}

type Viewport struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

func Defaults() Tuning {
	return Tuning{
		Gen:     gen.DefaultConfig(),
		View:    visibility.DefaultConfig(),
		Control: control.DefaultConfig(),
		Viewport: Viewport{
			Width:  1280,
			Height: 720,
			Title:  "Isometric Minecraft",
		},
		FrameHz: 60,
	}
}

// Load reads a tuning file on top of Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if err := t.Gen.Validate(); err != nil {
		return fmt.Errorf("gen: %w", err)
	}
	if t.View.BlockSize <= 0 || t.View.ChunkDivisor <= 0 {
		return fmt.Errorf("view: block_size and chunk_divisor must be positive")
	}
	if t.View.MarginTiles < 0 {
		return fmt.Errorf("view: margin_tiles must be >= 0")
	}
	if t.Control.Decay < 0 || t.Control.Decay > 1 {
		return fmt.Errorf("control: decay %v outside [0,1]", t.Control.Decay)
	}
	if t.Viewport.Width <= 0 || t.Viewport.Height <= 0 {
		return fmt.Errorf("viewport: size must be positive")
	}
	if t.FrameHz <= 0 {
		return fmt.Errorf("frame_hz must be positive")
	}
	return nil
}
