package store

import (
	"fmt"

	snapv1 "isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/sim/encoding"
)

// ExportGrid converts a grid into its snapshot form.
func ExportGrid(g *Grid) snapv1.GridV1 {
	return snapv1.GridV1{
		SizeX:  g.SizeX,
		SizeY:  g.SizeY,
		SizeZ:  g.SizeZ,
		Voxels: encoding.EncodeRLE(g.Cells),
	}
}

// ImportGrid rebuilds a grid from a snapshot.
func ImportGrid(s snapv1.GridV1) (*Grid, error) {
	if s.SizeX <= 0 || s.SizeY <= 0 || s.SizeZ <= 0 {
		return nil, fmt.Errorf("snapshot grid has invalid size %dx%dx%d", s.SizeX, s.SizeY, s.SizeZ)
	}
	n := s.SizeX * s.SizeY * s.SizeZ
	cells, err := encoding.DecodeRLE(s.Voxels, n)
	if err != nil {
		return nil, fmt.Errorf("snapshot grid: %w", err)
	}
	if len(cells) != n {
		return nil, fmt.Errorf("snapshot grid cells length mismatch: got %d want %d", len(cells), n)
	}
	return &Grid{SizeX: s.SizeX, SizeY: s.SizeY, SizeZ: s.SizeZ, Cells: cells}, nil
}
