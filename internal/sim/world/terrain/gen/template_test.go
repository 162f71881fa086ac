package gen

import (
	"errors"
	"testing"

	"isovoxel/internal/sim/voxel"
	"isovoxel/internal/sim/world/terrain/store"
)

func TestTree_Shape(t *testing.T) {
	tr := Tree()
	if tr.SX != 5 || tr.SY != 7 || tr.SZ != 5 {
		t.Fatalf("tree dims %dx%dx%d", tr.SX, tr.SY, tr.SZ)
	}
	for dy := 0; dy < 5; dy++ {
		if tr.At(2, dy, 2) != voxel.Log {
			t.Fatalf("trunk missing at dy=%d", dy)
		}
	}
	if tr.Count(voxel.Log) != 5 {
		t.Fatalf("expected 5 log cells, got %d", tr.Count(voxel.Log))
	}
	for dy := 0; dy < 3; dy++ {
		for dx := 0; dx < 5; dx++ {
			for dz := 0; dz < 5; dz++ {
				if (dx != 2 || dz != 2) && tr.At(dx, dy, dz) != voxel.Air {
					t.Fatalf("bare trunk level dy=%d has %v at (%d,%d)", dy, tr.At(dx, dy, dz), dx, dz)
				}
			}
		}
	}
	if tr.At(2, 6, 2) != voxel.Leaves {
		t.Fatalf("expected leaves on top")
	}
}

func TestStamp_AirCellsLeaveTargetUntouched(t *testing.T) {
	g := store.NewGrid(12, 12, 12)
	for i := range g.Cells {
		g.Cells[i] = voxel.Stone
	}
	tr := Tree()
	ox, oy, oz := 3, 2, 4
	written := Stamp(g, tr, ox, oy, oz)

	nonAir := 0
	for dx := 0; dx < tr.SX; dx++ {
		for dy := 0; dy < tr.SY; dy++ {
			for dz := 0; dz < tr.SZ; dz++ {
				want := tr.At(dx, dy, dz)
				got := g.At(ox+dx, oy+dy, oz+dz)
				if want == voxel.Air {
					if got != voxel.Stone {
						t.Fatalf("air template cell clobbered (%d,%d,%d): %v", dx, dy, dz, got)
					}
					continue
				}
				nonAir++
				if got != want {
					t.Fatalf("cell (%d,%d,%d): got %v want %v", dx, dy, dz, got, want)
				}
			}
		}
	}
	if written != nonAir {
		t.Fatalf("written=%d want %d", written, nonAir)
	}
}

func TestStamp_SkipsOutOfBounds(t *testing.T) {
	g := store.NewGrid(4, 4, 4)
	// The 5x7x5 tree overhangs a 4x4x4 grid on every positive axis.
	written := Stamp(g, Tree(), 0, 0, 0)
	if written == 0 {
		t.Fatalf("expected some in-range cells")
	}
	if g.At(2, 3, 2) != voxel.Log {
		t.Fatalf("trunk not written inside the grid")
	}
	if written >= Tree().Count(voxel.Leaves)+Tree().Count(voxel.Log) {
		t.Fatalf("out-of-range cells were counted: %d", written)
	}
	if Stamp(g, Tree(), -10, -10, -10) != 0 {
		t.Fatalf("fully outside stamp wrote cells")
	}
}

func TestParseTemplate(t *testing.T) {
	tpl, err := ParseTemplate([][][]string{{{"air", "LOG"}, {"leaves", "Stone"}}})
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if tpl.At(0, 0, 1) != voxel.Log || tpl.At(0, 1, 1) != voxel.Stone {
		t.Fatalf("unexpected cells")
	}

	_, err = ParseTemplate([][][]string{{{"air", "cobble"}}})
	var ue *voxel.UnknownVoxelTypeError
	if !errors.As(err, &ue) || ue.Name != "cobble" {
		t.Fatalf("expected UnknownVoxelTypeError, got %v", err)
	}

	if _, err := NewTemplate([][][]voxel.Type{{{voxel.Air}, {voxel.Air, voxel.Air}}}); err == nil {
		t.Fatalf("expected ragged template error")
	}
}
