package gen

import (
	"fmt"

	"isovoxel/internal/sim/voxel"
	"isovoxel/internal/sim/world/terrain/store"
)

// Template is an immutable stamp. Air cells leave the target untouched.
type Template struct {
	SX, SY, SZ int
	cells      []voxel.Type
}

// NewTemplate copies layers indexed [dx][dy][dz]. All rows must have equal length.
func NewTemplate(layers [][][]voxel.Type) (Template, error) {
	if len(layers) == 0 || len(layers[0]) == 0 || len(layers[0][0]) == 0 {
		return Template{}, fmt.Errorf("template is empty")
	}
	t := Template{SX: len(layers), SY: len(layers[0]), SZ: len(layers[0][0])}
	t.cells = make([]voxel.Type, 0, t.SX*t.SY*t.SZ)
	for dx, layer := range layers {
		if len(layer) != t.SY {
			return Template{}, fmt.Errorf("layer %d has %d rows, want %d", dx, len(layer), t.SY)
		}
		for dy, row := range layer {
			if len(row) != t.SZ {
				return Template{}, fmt.Errorf("layer %d row %d has %d cells, want %d", dx, dy, len(row), t.SZ)
			}
			t.cells = append(t.cells, row...)
		}
	}
	return t, nil
}

// ParseTemplate builds a template from type names.
func ParseTemplate(layers [][][]string) (Template, error) {
	typed := make([][][]voxel.Type, len(layers))
	for dx, layer := range layers {
		typed[dx] = make([][]voxel.Type, len(layer))
		for dy, row := range layer {
			typed[dx][dy] = make([]voxel.Type, len(row))
			for dz, name := range row {
				v, err := voxel.Parse(name)
				if err != nil {
					return Template{}, fmt.Errorf("template cell [%d][%d][%d]: %w", dx, dy, dz, err)
				}
				typed[dx][dy][dz] = v
			}
		}
	}
	return NewTemplate(typed)
}

func (t Template) At(dx, dy, dz int) voxel.Type {
	return t.cells[(dx*t.SY+dy)*t.SZ+dz]
}

// Flip reverses the dy and dz axes. Layers are authored top row first, so
// flipping puts row 0 at the bottom of the stamp.
func (t Template) Flip() Template {
	out := Template{SX: t.SX, SY: t.SY, SZ: t.SZ, cells: make([]voxel.Type, len(t.cells))}
	for dx := 0; dx < t.SX; dx++ {
		for dy := 0; dy < t.SY; dy++ {
			for dz := 0; dz < t.SZ; dz++ {
				out.cells[(dx*t.SY+dy)*t.SZ+dz] = t.At(dx, t.SY-1-dy, t.SZ-1-dz)
			}
		}
	}
	return out
}

// Count returns how many cells of type v the template holds.
func (t Template) Count(v voxel.Type) int {
	n := 0
	for _, c := range t.cells {
		if c == v {
			n++
		}
	}
	return n
}

// Stamp overlays t with its origin at (x,y,z). Non-Air template cells
// overwrite the grid; cells outside the grid are skipped. It returns the
// number of cells written.
func Stamp(g *store.Grid, t Template, x, y, z int) int {
	written := 0
	for dx := 0; dx < t.SX; dx++ {
		for dy := 0; dy < t.SY; dy++ {
			for dz := 0; dz < t.SZ; dz++ {
				v := t.At(dx, dy, dz)
				if v == voxel.Air {
					continue
				}
				if g.Set(x+dx, y+dy, z+dz, v) {
					written++
				}
			}
		}
	}
	return written
}

const (
	__ = voxel.Air
	lv = voxel.Leaves
	lg = voxel.Log
)

// treeLayers is drawn top row first; Tree flips it for stamping.
var treeLayers = [][][]voxel.Type{
	{
		{__, __, __, __, __},
		{__, __, __, __, __},
		{__, lv, lv, lv, lv},
		{lv, lv, lv, lv, lv},
		{__, __, __, __, __},
		{__, __, __, __, __},
		{__, __, __, __, __},
	},
	{
		{__, __, lv, __, __},
		{__, __, lv, __, __},
		{lv, lv, lv, lv, lv},
		{lv, lv, lv, lv, lv},
		{__, __, __, __, __},
		{__, __, __, __, __},
		{__, __, __, __, __},
	},
	{
		{__, lv, lv, lv, __},
		{__, lv, lv, lv, __},
		{lv, lv, lg, lv, lv},
		{lv, lv, lg, lv, lv},
		{__, __, lg, __, __},
		{__, __, lg, __, __},
		{__, __, lg, __, __},
	},
	{
		{__, __, lv, __, __},
		{__, __, lv, __, __},
		{lv, lv, lv, lv, lv},
		{lv, lv, lv, lv, lv},
		{__, __, __, __, __},
		{__, __, __, __, __},
		{__, __, __, __, __},
	},
	{
		{__, __, __, __, __},
		{__, __, __, __, __},
		{__, lv, lv, lv, lv},
		{__, lv, lv, lv, lv},
		{__, __, __, __, __},
		{__, __, __, __, __},
		{__, __, __, __, __},
	},
}

var tree = mustTemplate(treeLayers).Flip()

// Tree returns the stamping-oriented tree: 5 wide in x, 7 tall, 5 deep in z,
// trunk at (2, 0..4, 2).
func Tree() Template { return tree }

func mustTemplate(layers [][][]voxel.Type) Template {
	t, err := NewTemplate(layers)
	if err != nil {
		panic(err)
	}
	return t
}
