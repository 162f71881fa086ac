package world

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"isovoxel/internal/sim/control"
	"isovoxel/internal/sim/world/visibility"
)

// FrameStats describes one frame step.
type FrameStats struct {
	Frame      uint64        `json:"frame"`
	Viewpoint  mgl64.Vec3    `json:"viewpoint"`
	Recomputed bool          `json:"recomputed"`
	UpdateTime time.Duration `json:"update_time"`
	Visible    int           `json:"visible"`
	Recomputes uint64        `json:"recomputes"`
}

// Frame advances the controller by dt seconds and brings the visible set up
// to date. A viewport size change invalidates the cached set.
// Frame must not be called concurrently with itself.
func (w *World) Frame(dt float64, in control.Input, vp visibility.Viewport) FrameStats {
	w.frame++
	vpW, vpH := vp.Size()
	if vpW != w.lastW || vpH != w.lastH {
		w.engine.Invalidate()
		w.lastW, w.lastH = vpW, vpH
	}

	offset := w.ctrl.Step(dt, in)
	start := time.Now()
	recomputed := w.engine.Update(offset, vp)
	elapsed := time.Since(start)

	st := FrameStats{
		Frame:      w.frame,
		Viewpoint:  offset,
		Recomputed: recomputed,
		UpdateTime: elapsed,
		Visible:    len(w.engine.Visible().Voxels),
		Recomputes: w.engine.Recomputes(),
	}
	w.latest.Store(&st)
	return st
}

// LastFrame returns the most recent frame stats. Safe to call from any goroutine.
func (w *World) LastFrame() FrameStats {
	if p := w.latest.Load(); p != nil {
		return *p
	}
	return FrameStats{}
}

// Run steps frames at hz until ctx is cancelled. onFrame, if set, is called
// on the loop goroutine after every frame.
func (w *World) Run(ctx context.Context, hz int, in control.Input, vp visibility.Viewport, onFrame func(FrameStats, *visibility.Set)) error {
	if hz <= 0 {
		hz = 60
	}
	interval := time.Second / time.Duration(hz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			st := w.Frame(dt, in, vp)
			if onFrame != nil {
				onFrame(st, w.engine.Visible())
			}
		}
	}
}

// FixedViewport is a Viewport of constant size.
type FixedViewport struct {
	W, H int
}

func (v FixedViewport) Size() (int, int) { return v.W, v.H }
