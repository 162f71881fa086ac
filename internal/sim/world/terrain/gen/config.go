package gen

import (
	"fmt"

	"isovoxel/internal/sim/noise"
)

// Config holds every generation constant. Defaults reproduce the reference
// world shape; changing the order in which they apply changes the world.
type Config struct {
	SizeX int `yaml:"size_x"`
	SizeY int `yaml:"size_y"`
	SizeZ int `yaml:"size_z"`

	// Height map: HeightOctaves octaves at base frequency 1/SizeX, 1/SizeZ.
	// HeightBias is added inside the octave loop.
	HeightOctaves int     `yaml:"height_octaves"`
	HeightBias    float64 `yaml:"height_bias"`
	// StrataScale converts a height sample into the Grass boundary in cells.
	StrataScale float64 `yaml:"strata_scale"`

	CaveFreqXY    float64 `yaml:"cave_freq_xy"`
	CaveFreqZ     float64 `yaml:"cave_freq_z"`
	CaveAmplitude float64 `yaml:"cave_amplitude"`
	CaveThreshold float64 `yaml:"cave_threshold"`

	// Cells below WaterLevel that are not solid become Water.
	WaterLevel int `yaml:"water_level"`
	// One in VeinChance cells at y=1 becomes Bedrock.
	VeinChance int `yaml:"vein_chance"`
	// One in TreeChance eligible columns gets a tree.
	TreeChance int `yaml:"tree_chance"`

	FlowerFreq      float64 `yaml:"flower_freq"`
	FlowerThreshold float64 `yaml:"flower_threshold"`
	// Flowers are only placed in the first FlowerRegion x FlowerRegion columns.
	FlowerRegion int `yaml:"flower_region"`

	Noise noise.Params `yaml:"noise"`
}

func DefaultConfig() Config {
	return Config{
		SizeX: 128,
		SizeY: 64,
		SizeZ: 128,

		HeightOctaves: 16,
		HeightBias:    0.025,
		StrataScale:   16,

		CaveFreqXY:    6,
		CaveFreqZ:     4,
		CaveAmplitude: 6,
		CaveThreshold: 0.65,

		WaterLevel: 4,
		VeinChance: 3,
		TreeChance: 100,

		FlowerFreq:      6,
		FlowerThreshold: 0.5,
		FlowerRegion:    64,

		Noise: noise.DefaultParams(),
	}
}

func (c Config) Validate() error {
	if c.SizeX <= 0 || c.SizeY <= 0 || c.SizeZ <= 0 {
		return fmt.Errorf("world size must be positive: %dx%dx%d", c.SizeX, c.SizeY, c.SizeZ)
	}
	if c.SizeY < 2 {
		return fmt.Errorf("world height %d leaves no room above the floor", c.SizeY)
	}
	if c.HeightOctaves <= 0 {
		return fmt.Errorf("height_octaves must be positive")
	}
	if c.VeinChance <= 0 || c.TreeChance <= 0 {
		return fmt.Errorf("vein_chance and tree_chance must be positive")
	}
	if c.FlowerRegion < 0 {
		return fmt.Errorf("flower_region must not be negative")
	}
	if c.Noise.N <= 0 {
		return fmt.Errorf("noise.n must be positive")
	}
	return nil
}

// surfaceY is where decorations look for the Grass top of a column.
// It deliberately uses SizeY/4 rather than StrataScale.
func (c Config) surfaceY(h float64) int {
	return c.clampY(h * float64(c.SizeY) / 4)
}

func (c Config) aboveY(h float64) int {
	return c.clampY(h*float64(c.SizeY)/4 + 1)
}

// clampY truncates v into [0, SizeY-1]; negative heights saturate to the floor.
func (c Config) clampY(v float64) int {
	if v < 0 {
		return 0
	}
	y := int(v)
	if y > c.SizeY-1 {
		return c.SizeY - 1
	}
	return y
}
