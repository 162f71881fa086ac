package store

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"isovoxel/internal/sim/voxel"
)

// Reader is read-only access to a generated grid.
type Reader interface {
	Size() (x, y, z int)
	InBounds(x, y, z int) bool
	At(x, y, z int) voxel.Type
}

// Grid is a dense world of SizeX*SizeY*SizeZ cells stored in one flat buffer.
// Y is vertical. Cells are laid out x-major, then y, then z.
type Grid struct {
	SizeX, SizeY, SizeZ int
	Cells               []voxel.Type
}

func NewGrid(sx, sy, sz int) *Grid {
	return &Grid{
		SizeX: sx,
		SizeY: sy,
		SizeZ: sz,
		Cells: make([]voxel.Type, sx*sy*sz),
	}
}

func (g *Grid) index(x, y, z int) int {
	return (x*g.SizeY+y)*g.SizeZ + z
}

func (g *Grid) Size() (int, int, int) { return g.SizeX, g.SizeY, g.SizeZ }

// Digest hashes the cell buffer; equal grids have equal digests.
func (g *Grid) Digest() uint64 {
	h := xxhash.New()
	var tmp [12]byte
	binary.LittleEndian.PutUint32(tmp[0:], uint32(g.SizeX))
	binary.LittleEndian.PutUint32(tmp[4:], uint32(g.SizeY))
	binary.LittleEndian.PutUint32(tmp[8:], uint32(g.SizeZ))
	_, _ = h.Write(tmp[:])
	buf := make([]byte, 0, 4096)
	for _, c := range g.Cells {
		buf = append(buf, byte(c))
		if len(buf) == cap(buf) {
			_, _ = h.Write(buf)
			buf = buf[:0]
		}
	}
	_, _ = h.Write(buf)
	return h.Sum64()
}

// Counts tallies cells by type.
func (g *Grid) Counts() map[voxel.Type]int {
	out := make(map[voxel.Type]int, 10)
	for _, c := range g.Cells {
		out[c]++
	}
	return out
}

func (g *Grid) Clone() *Grid {
	cells := make([]voxel.Type, len(g.Cells))
	copy(cells, g.Cells)
	return &Grid{SizeX: g.SizeX, SizeY: g.SizeY, SizeZ: g.SizeZ, Cells: cells}
}
