package store

import (
	"testing"

	snapv1 "isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/sim/voxel"
)

func TestGrid_SetAndBounds(t *testing.T) {
	g := NewGrid(4, 3, 2)
	if !g.Set(3, 2, 1, voxel.Stone) {
		t.Fatalf("Set in range returned false")
	}
	if g.At(3, 2, 1) != voxel.Stone {
		t.Fatalf("At mismatch")
	}
	for _, p := range [][3]int{{-1, 0, 0}, {4, 0, 0}, {0, 3, 0}, {0, 0, 2}} {
		if g.Set(p[0], p[1], p[2], voxel.Dirt) {
			t.Fatalf("Set out of range %v returned true", p)
		}
		if _, ok := g.Lookup(p[0], p[1], p[2]); ok {
			t.Fatalf("Lookup out of range %v ok", p)
		}
	}
	if g.Counts()[voxel.Stone] != 1 || g.Counts()[voxel.Air] != 23 {
		t.Fatalf("unexpected counts %v", g.Counts())
	}
}

func TestGrid_AtPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewGrid(2, 2, 2).At(2, 0, 0)
}

func TestGrid_IndexDistinct(t *testing.T) {
	g := NewGrid(3, 4, 5)
	seen := map[int]bool{}
	for x := 0; x < 3; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 5; z++ {
				i := g.index(x, y, z)
				if i < 0 || i >= len(g.Cells) || seen[i] {
					t.Fatalf("bad index %d for (%d,%d,%d)", i, x, y, z)
				}
				seen[i] = true
			}
		}
	}
}

func TestGrid_Digest(t *testing.T) {
	a := NewGrid(8, 8, 8)
	a.Set(1, 2, 3, voxel.Log)
	b := a.Clone()
	if a.Digest() != b.Digest() {
		t.Fatalf("clone digest mismatch")
	}
	b.Set(1, 2, 3, voxel.Leaves)
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignored a changed cell")
	}
}

func TestExportAndImportGridRoundTrip(t *testing.T) {
	g := NewGrid(5, 4, 3)
	g.Set(0, 0, 0, voxel.Bedrock)
	g.Set(4, 3, 2, voxel.Dandelion)
	g.Set(2, 1, 1, voxel.Water)

	imported, err := ImportGrid(ExportGrid(g))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if imported.Digest() != g.Digest() {
		t.Fatalf("digest mismatch after round trip")
	}
	if imported.At(4, 3, 2) != voxel.Dandelion {
		t.Fatalf("unexpected cell %v", imported.At(4, 3, 2))
	}
}

func TestImportGridRejectsInvalidShape(t *testing.T) {
	exported := ExportGrid(NewGrid(2, 2, 2))
	exported.SizeX = 3
	if _, err := ImportGrid(exported); err == nil {
		t.Fatalf("expected error for short cell buffer")
	}
	if _, err := ImportGrid(snapv1.GridV1{}); err == nil {
		t.Fatalf("expected error for empty grid")
	}
}
