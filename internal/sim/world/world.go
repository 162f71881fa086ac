package world

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"isovoxel/internal/sim/control"
	"isovoxel/internal/sim/noise"
	"isovoxel/internal/sim/world/terrain/gen"
	"isovoxel/internal/sim/world/terrain/store"
	"isovoxel/internal/sim/world/visibility"
)

type Config struct {
	ID   string
	Seed int64

	Gen     gen.Config
	View    visibility.Config
	Control control.Config
}

// World owns the generated grid, the visibility cache and the viewpoint
// controller. The grid is never mutated after New/FromSnapshot returns.
type World struct {
	cfg Config

	grid    *store.Grid
	stats   gen.Stats
	genTime time.Duration

	engine *visibility.Engine
	ctrl   *control.Controller

	frame  uint64
	lastW  int
	lastH  int
	latest atomic.Pointer[FrameStats]
}

// New generates the world synchronously. It is the only place randomness
// and noise are seeded, both from cfg.Seed.
func New(cfg Config) (*World, error) {
	if err := cfg.Gen.Validate(); err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	start := time.Now()
	field := noise.New(cfg.Seed, cfg.Gen.Noise)
	rng := rand.New(rand.NewSource(cfg.Seed))
	g, st := gen.Generate(cfg.Gen, field, rng)
	return newWorld(cfg, g, st, time.Since(start)), nil
}

func newWorld(cfg Config, g *store.Grid, st gen.Stats, genTime time.Duration) *World {
	return &World{
		cfg:     cfg,
		grid:    g,
		stats:   st,
		genTime: genTime,
		engine:  visibility.New(cfg.View, g),
		ctrl:    control.New(cfg.Control),
	}
}

func (w *World) ID() string     { return w.cfg.ID }
func (w *World) Seed() int64    { return w.cfg.Seed }
func (w *World) Config() Config { return w.cfg }

func (w *World) Grid() store.Reader { return w.grid }

// Digest identifies the generated grid contents.
func (w *World) Digest() uint64 { return w.grid.Digest() }

func (w *World) GenStats() gen.Stats { return w.stats }

// GenTime is how long generation took; zero for a world loaded from a snapshot.
func (w *World) GenTime() time.Duration { return w.genTime }

func (w *World) Visible() *visibility.Set { return w.engine.Visible() }

func (w *World) Viewpoint() mgl64.Vec3 { return w.ctrl.Viewpoint() }

func (w *World) Recomputes() uint64 { return w.engine.Recomputes() }
