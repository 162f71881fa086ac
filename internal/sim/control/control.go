package control

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

type Key uint8

const (
	KeyUp Key = 1 << iota
	KeyDown
	KeyLeft
	KeyRight
)

// Input answers key-down queries for the current frame.
type Input interface {
	KeyDown(k Key) bool
}

type Config struct {
	Accel  float64 `yaml:"accel"`
	Decay  float64 `yaml:"decay"`
	Speed  float64 `yaml:"speed"`
	StartX float64 `yaml:"start_x"`
	StartZ float64 `yaml:"start_z"`
}

func DefaultConfig() Config {
	return Config{Accel: 1, Decay: 0.9, Speed: 2, StartX: -20, StartZ: -4}
}

// Controller turns directional input into a scrolling viewpoint. Only X and
// Z move; Y stays 0.
type Controller struct {
	cfg    Config
	offset mgl64.Vec2
	vel    mgl64.Vec2
}

func New(cfg Config) *Controller {
	return &Controller{cfg: cfg, offset: mgl64.Vec2{cfg.StartX, cfg.StartZ}}
}

// Step applies one frame of input over dt seconds and returns the new viewpoint.
func (c *Controller) Step(dt float64, in Input) mgl64.Vec3 {
	if in != nil {
		if in.KeyDown(KeyUp) {
			c.vel[1] -= c.cfg.Accel
		}
		if in.KeyDown(KeyDown) {
			c.vel[1] += c.cfg.Accel
		}
		if in.KeyDown(KeyLeft) {
			c.vel[0] -= c.cfg.Accel
		}
		if in.KeyDown(KeyRight) {
			c.vel[0] += c.cfg.Accel
		}
	}
	c.offset = c.offset.Add(c.vel.Mul(dt * c.cfg.Speed))
	c.vel = c.vel.Mul(c.cfg.Decay)
	return c.Viewpoint()
}

func (c *Controller) Viewpoint() mgl64.Vec3 {
	return mgl64.Vec3{c.offset[0], 0, c.offset[1]}
}

func (c *Controller) Velocity() mgl64.Vec2 { return c.vel }

// KeySet is an Input backed by a bitmask that another goroutine may update.
type KeySet struct {
	bits atomic.Uint32
}

func (s *KeySet) KeyDown(k Key) bool { return s.bits.Load()&uint32(k) != 0 }

// Store replaces the whole key state.
func (s *KeySet) Store(up, down, left, right bool) {
	var b uint32
	if up {
		b |= uint32(KeyUp)
	}
	if down {
		b |= uint32(KeyDown)
	}
	if left {
		b |= uint32(KeyLeft)
	}
	if right {
		b |= uint32(KeyRight)
	}
	s.bits.Store(b)
}
