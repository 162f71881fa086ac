package visibility

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"isovoxel/internal/sim/voxel"
	"isovoxel/internal/sim/world/terrain/store"
)

// OcclusionSteps is how far the diagonal occlusion probe walks.
const OcclusionSteps = 4

// Viewport reports the current render surface size in pixels.
type Viewport interface {
	Size() (w, h int)
}

// VisibleVoxel is one voxel projected relative to a viewpoint.
type VisibleVoxel struct {
	ScreenX float64
	ScreenY float64
	Type    voxel.Type
	Pos     [3]int
}

// Set is an immutable visible-voxel list. A new Set replaces the old one
// wholesale on every recompute.
type Set struct {
	Seq       uint64
	Viewpoint mgl64.Vec3
	Width     int
	Height    int
	Voxels    []VisibleVoxel
}

type State int

const (
	Stale State = iota
	Fresh
)

func (s State) String() string {
	if s == Fresh {
		return "fresh"
	}
	return "stale"
}

// Engine caches the visible set for the last viewpoint it saw.
type Engine struct {
	cfg  Config
	grid store.Reader

	state      State
	last       mgl64.Vec3
	recomputes uint64
	cur        atomic.Pointer[Set]
}

// New returns a Stale engine; the first Update always recomputes.
func New(cfg Config, grid store.Reader) *Engine {
	e := &Engine{cfg: cfg, grid: grid}
	e.cur.Store(&Set{})
	return e
}

func (e *Engine) State() State { return e.state }

// Recomputes counts how many times the visible set has been rebuilt.
func (e *Engine) Recomputes() uint64 { return e.recomputes }

// Visible returns the current set. Callers must not modify it.
func (e *Engine) Visible() *Set { return e.cur.Load() }

// Invalidate forces the next Update to recompute.
func (e *Engine) Invalidate() { e.state = Stale }

// Update recomputes the visible set when offset differs from the last used
// viewpoint after rounding each axis to one decimal. It reports whether a
// recompute happened.
func (e *Engine) Update(offset mgl64.Vec3, vp Viewport) bool {
	if e.state == Fresh && Quantize(offset) == Quantize(e.last) {
		return false
	}
	e.state = Stale
	e.recompute(offset, vp)
	return true
}

func (e *Engine) recompute(offset mgl64.Vec3, vp Viewport) {
	w, h := vp.Size()
	x0, x1, z0, z1 := Window(e.cfg, e.grid, offset, w, h)
	_, sizeY, _ := e.grid.Size()

	margin := e.cfg.MarginTiles * e.cfg.BlockSize
	minX, maxX := -margin, float64(w)+margin
	minY, maxY := -margin, float64(h)+margin

	var out []VisibleVoxel
	for x := x0; x < x1; x++ {
		for y := 0; y < sizeY; y++ {
			for z := z0; z < z1; z++ {
				sx, sy := Project(e.cfg, x, y, z, offset)
				if sx < minX || sx > maxX || sy < minY || sy > maxY {
					continue
				}
				if Occluded(e.grid, x, y, z) {
					continue
				}
				t := e.grid.At(x, y, z)
				if t == voxel.Air {
					continue
				}
				out = append(out, VisibleVoxel{ScreenX: sx, ScreenY: sy, Type: t, Pos: [3]int{x, y, z}})
			}
		}
	}

	e.recomputes++
	e.cur.Store(&Set{
		Seq:       e.recomputes,
		Viewpoint: offset,
		Width:     w,
		Height:    h,
		Voxels:    out,
	})
	e.last = offset
	e.state = Fresh
}

// Window returns the [x0,x1) x [z0,z1) column range scanned for a viewpoint.
func Window(cfg Config, grid store.Reader, offset mgl64.Vec3, w, h int) (x0, x1, z0, z1 int) {
	sx, _, sz := grid.Size()
	chunkX := min(int(float64(w)/cfg.BlockSize/cfg.ChunkDivisor), sx)
	chunkZ := min(int(float64(h)/cfg.BlockSize/cfg.ChunkDivisor), sz)

	halfX := float64(chunkX) / 2 * cfg.BlockSize
	halfZ := float64(chunkZ) / 2 * cfg.BlockSize
	x0 = clampCol(offset.X()-halfX, sx)
	x1 = clampCol(offset.X()+halfX, sx)
	z0 = clampCol(offset.Z()-halfZ, sz)
	z1 = clampCol(offset.Z()+halfZ, sz)
	return x0, x1, z0, z1
}

func clampCol(v float64, size int) int {
	if v <= 0 {
		return 0
	}
	if v >= float64(size) {
		return size
	}
	return int(v)
}

// Project maps grid coordinates to screen coordinates relative to offset.
func Project(cfg Config, x, y, z int, offset mgl64.Vec3) (float64, float64) {
	dx := float64(x) - offset.X()
	dy := float64(y) - offset.Y()
	dz := float64(z) - offset.Z()
	sx := (dx - dz) * cfg.BlockSize / 2
	sy := (dx+dz)*cfg.BlockSize/4 - dy*cfg.BlockSize/2
	return sx, sy
}

// Occluded walks (x+i, y+i, z+i) for i in 1..OcclusionSteps and reports
// whether an opaque cell sits on that diagonal inside the grid.
func Occluded(grid store.Reader, x, y, z int) bool {
	for i := 1; i <= OcclusionSteps; i++ {
		if !grid.InBounds(x+i, y+i, z+i) {
			return false
		}
		if grid.At(x+i, y+i, z+i).Opaque() {
			return true
		}
	}
	return false
}

// Quantize rounds each axis to one decimal place.
func Quantize(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{round1(v[0]), round1(v[1]), round1(v[2])}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
