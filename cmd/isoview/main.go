package main

import (
	"flag"
	"image"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	persistlog "isovoxel/internal/persistence/log"
	"isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/render"
	"isovoxel/internal/sim/tuning"
	"isovoxel/internal/sim/world"
)

func main() {
	var (
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (ignored with -snapshot)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		assetsDir  = flag.String("assets", "./assets", "directory holding <type>.ase textures")
		snapPath   = flag.String("snapshot", "", "load a world snapshot instead of generating")
		dataDir    = flag.String("data", "", "write frame diagnostics under <data>/worlds/<world>/frames (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[isoview] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}

	textures, err := render.LoadTextures(*assetsDir, render.LoaderFunc(func(img image.Image) (render.Handle, error) {
		return ebiten.NewImageFromImage(img), nil
	}))
	if err != nil {
		logger.Fatalf("load textures: %v", err)
	}

	cfg := world.ConfigFromTuning(*worldID, *seed, tune)
	var w *world.World
	if p := strings.TrimSpace(*snapPath); p != "" {
		snap, err := snapshot.ReadSnapshot(p)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		w, err = world.FromSnapshot(cfg, snap)
		if err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
	} else {
		w, err = world.New(cfg)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
	}
	logger.Printf("World generation took %d micros (%f seconds)", w.GenTime().Microseconds(), w.GenTime().Seconds())

	var frameLog *persistlog.FrameLog
	if *dataDir != "" {
		frameLog = persistlog.NewFrameLog(*dataDir, w.ID())
		defer frameLog.Close()
		if err := frameLog.WriteGen(w); err != nil {
			logger.Printf("frame log: %v", err)
		}
	}

	g := newGame(w, render.New(tune.View.BlockSize, textures), frameLog, logger)
	g.vp = world.FixedViewport{W: tune.Viewport.Width, H: tune.Viewport.Height}

	ebiten.SetWindowTitle(tune.Viewport.Title)
	ebiten.SetWindowSize(tune.Viewport.Width, tune.Viewport.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		logger.Fatalf("run: %v", err)
	}
}
