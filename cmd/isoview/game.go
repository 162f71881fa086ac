package main

import (
	"fmt"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	persistlog "isovoxel/internal/persistence/log"
	"isovoxel/internal/render"
	"isovoxel/internal/sim/control"
	"isovoxel/internal/sim/world"
)

type game struct {
	w        *world.World
	renderer *render.Renderer
	frameLog *persistlog.FrameLog
	log      *log.Logger

	vp       world.FixedViewport
	last     world.FrameStats
	drawTime time.Duration
}

func newGame(w *world.World, r *render.Renderer, fl *persistlog.FrameLog, logger *log.Logger) *game {
	return &game{w: w, renderer: r, frameLog: fl, log: logger}
}

func (g *game) Update() error {
	dt := 1 / float64(ebiten.TPS())
	g.last = g.w.Frame(dt, keyboard{}, g.vp)
	if g.frameLog != nil {
		if err := g.frameLog.WriteFrame(g.last, g.drawTime); err != nil {
			g.log.Printf("frame log: %v", err)
			g.frameLog = nil
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	start := time.Now()
	g.renderer.Draw(surface{screen}, g.w.Visible(), g.w.Viewpoint())
	g.drawTime = time.Since(start)

	h := screen.Bounds().Dy()
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("FPS: %.0f", ebiten.ActualFPS()), 10, 10)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Took %d milliseconds to draw", g.drawTime.Milliseconds()), 10, h-60)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Took %d milliseconds to update visibility", g.last.UpdateTime.Milliseconds()), 10, h-45)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Took %d milliseconds to generate world", g.w.GenTime().Milliseconds()), 10, h-30)
}

// Layout follows the window so the visible window grows with it.
func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.vp = world.FixedViewport{W: outsideW, H: outsideH}
	return outsideW, outsideH
}

// keyboard maps WASD onto the controller's directions.
type keyboard struct{}

func (keyboard) KeyDown(k control.Key) bool {
	switch k {
	case control.KeyUp:
		return ebiten.IsKeyPressed(ebiten.KeyW)
	case control.KeyDown:
		return ebiten.IsKeyPressed(ebiten.KeyS)
	case control.KeyLeft:
		return ebiten.IsKeyPressed(ebiten.KeyA)
	case control.KeyRight:
		return ebiten.IsKeyPressed(ebiten.KeyD)
	}
	return false
}

// surface adapts an ebiten screen to render.Surface.
type surface struct{ dst *ebiten.Image }

func (s surface) DrawTexture(h render.Handle, x, y, size float64) {
	img, ok := h.(*ebiten.Image)
	if !ok {
		return
	}
	b := img.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(size/float64(b.Dx()), size/float64(b.Dy()))
	op.GeoM.Translate(x, y)
	s.dst.DrawImage(img, op)
}

func (s surface) DrawRect(x, y, size float64, c color.RGBA) {
	vector.DrawFilledRect(s.dst, float32(x), float32(y), float32(size), float32(size), c, false)
}
