package gen

import (
	"math/rand"

	"isovoxel/internal/sim/noise"
	"isovoxel/internal/sim/voxel"
	"isovoxel/internal/sim/world/terrain/store"
)

// Stats describes what decoration passes placed.
type Stats struct {
	// Trees holds the stamp origin of every placed tree, in placement order.
	Trees   [][3]int
	Flowers int
}

// Generate builds a complete grid. All randomness comes from rng, all
// coherent noise from n, so equal inputs give byte-identical grids.
func Generate(cfg Config, n noise.Sampler, rng *rand.Rand) (*store.Grid, Stats) {
	heights := heightMap(cfg, n)
	caves := caveField(cfg, n)

	g := store.NewGrid(cfg.SizeX, cfg.SizeY, cfg.SizeZ)
	assemble(g, cfg, heights, caves, rng)

	var st Stats
	st.Trees = placeTrees(g, cfg, heights, rng)
	st.Flowers = placeFlowers(g, cfg, n, heights, rng)
	return g, st
}

// heightMap returns one sample per column, indexed x*SizeZ+z.
func heightMap(cfg Config, n noise.Sampler) []float64 {
	out := make([]float64, cfg.SizeX*cfg.SizeZ)
	sx := 1 / float64(cfg.SizeX)
	sz := 1 / float64(cfg.SizeZ)
	for x := 0; x < cfg.SizeX; x++ {
		for z := 0; z < cfg.SizeZ; z++ {
			out[x*cfg.SizeZ+z] = noise.Fractal2D(n, float64(x), float64(z), sx, sz, cfg.HeightOctaves, cfg.HeightBias)
		}
	}
	return out
}

// caveField returns one unnormalized 3D sample per cell, in grid order.
func caveField(cfg Config, n noise.Sampler) []float64 {
	out := make([]float64, cfg.SizeX*cfg.SizeY*cfg.SizeZ)
	fx, fy, fz := float64(cfg.SizeX), float64(cfg.SizeY), float64(cfg.SizeZ)
	i := 0
	for x := 0; x < cfg.SizeX; x++ {
		for y := 0; y < cfg.SizeY; y++ {
			for z := 0; z < cfg.SizeZ; z++ {
				out[i] = noise.Scaled3D(n,
					float64(x)/fx, float64(y)/fy, float64(z)/fz,
					cfg.CaveFreqXY, cfg.CaveFreqXY, cfg.CaveFreqZ,
				) * cfg.CaveAmplitude
				i++
			}
		}
	}
	return out
}

// assemble fills every cell. Check order is floor, cave, vein, height bands.
func assemble(g *store.Grid, cfg Config, heights, caves []float64, rng *rand.Rand) {
	i := 0
	for x := 0; x < cfg.SizeX; x++ {
		for y := 0; y < cfg.SizeY; y++ {
			for z := 0; z < cfg.SizeZ; z++ {
				g.Cells[i] = classify(cfg, y, heights[x*cfg.SizeZ+z], caves[i], rng)
				i++
			}
		}
	}
}

func classify(cfg Config, y int, height, cave float64, rng *rand.Rand) voxel.Type {
	switch {
	case y == 0:
		return voxel.Bedrock
	case cave > cfg.CaveThreshold:
		return openCell(cfg, y)
	case y == 1 && rng.Intn(cfg.VeinChance) == 0:
		return voxel.Bedrock
	}
	top := height * cfg.StrataScale
	fy := float64(y)
	switch {
	case fy < top-3:
		return voxel.Stone
	case fy < top-1:
		return voxel.Dirt
	case fy < top:
		return voxel.Grass
	default:
		return openCell(cfg, y)
	}
}

// openCell is the content of a non-solid cell.
func openCell(cfg Config, y int) voxel.Type {
	if y < cfg.WaterLevel {
		return voxel.Water
	}
	return voxel.Air
}

func placeTrees(g *store.Grid, cfg Config, heights []float64, rng *rand.Rand) [][3]int {
	// The clearance probe reads z = SizeY-1 rather than the column's own z.
	probeZ := min(cfg.SizeY-1, cfg.SizeZ-1)
	tree := Tree()

	var out [][3]int
	for x := 0; x < cfg.SizeX; x++ {
		for z := 0; z < cfg.SizeZ; z++ {
			h := heights[x*cfg.SizeZ+z]
			sy := cfg.surfaceY(h)
			if g.At(x, sy, z) != voxel.Grass || g.At(x, cfg.aboveY(h), probeZ) != voxel.Air {
				continue
			}
			if rng.Intn(cfg.TreeChance) != 0 {
				continue
			}
			Stamp(g, tree, x, sy, z)
			out = append(out, [3]int{x, sy, z})
		}
	}
	return out
}

func placeFlowers(g *store.Grid, cfg Config, n noise.Sampler, heights []float64, rng *rand.Rand) int {
	patches := make([]bool, cfg.SizeX*cfg.SizeZ)
	fx, fz := float64(cfg.SizeX), float64(cfg.SizeZ)
	for x := 0; x < cfg.SizeX; x++ {
		for z := 0; z < cfg.SizeZ; z++ {
			v := n.Sample2D(float64(x)/fx*cfg.FlowerFreq, float64(z)/fz*cfg.FlowerFreq)
			patches[x*cfg.SizeZ+z] = v > cfg.FlowerThreshold
		}
	}

	placed := 0
	rx := min(cfg.FlowerRegion, cfg.SizeX)
	rz := min(cfg.FlowerRegion, cfg.SizeZ)
	for x := 0; x < rx; x++ {
		for z := 0; z < rz; z++ {
			h := heights[x*cfg.SizeZ+z]
			if g.At(x, cfg.surfaceY(h), z) != voxel.Grass {
				continue
			}
			ay := cfg.aboveY(h)
			if !patches[x*cfg.SizeZ+z] || g.At(x, ay, z) != voxel.Air {
				continue
			}
			if rng.Intn(2) == 0 {
				g.Set(x, ay, z, voxel.Rose)
			} else {
				g.Set(x, ay, z, voxel.Dandelion)
			}
			placed++
		}
	}
	return placed
}
