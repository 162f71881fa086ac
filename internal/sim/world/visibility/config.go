package visibility

type Config struct {
	// BlockSize is the on-screen edge of one voxel tile in pixels.
	BlockSize float64 `yaml:"block_size"`
	// ChunkDivisor scales the scan window: window cells = viewport px / (BlockSize * ChunkDivisor).
	ChunkDivisor float64 `yaml:"chunk_divisor"`
	// MarginTiles widens the viewport test on every side.
	MarginTiles float64 `yaml:"margin_tiles"`
}

func DefaultConfig() Config {
	return Config{BlockSize: 84, ChunkDivisor: 7, MarginTiles: 2}
}
