package store

import (
	"fmt"

	"isovoxel/internal/sim/voxel"
)

func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.SizeX && y >= 0 && y < g.SizeY && z >= 0 && z < g.SizeZ
}

// At returns the cell at (x,y,z). Out-of-range coordinates are a programming error.
func (g *Grid) At(x, y, z int) voxel.Type {
	if !g.InBounds(x, y, z) {
		panic(fmt.Sprintf("grid: (%d,%d,%d) outside %dx%dx%d", x, y, z, g.SizeX, g.SizeY, g.SizeZ))
	}
	return g.Cells[g.index(x, y, z)]
}

// Lookup is At without the panic.
func (g *Grid) Lookup(x, y, z int) (voxel.Type, bool) {
	if !g.InBounds(x, y, z) {
		return voxel.Air, false
	}
	return g.Cells[g.index(x, y, z)], true
}

// Set writes a cell and reports whether (x,y,z) was in range.
func (g *Grid) Set(x, y, z int, t voxel.Type) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	g.Cells[g.index(x, y, z)] = t
	return true
}
