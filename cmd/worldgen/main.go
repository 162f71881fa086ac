package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"isovoxel/internal/persistence/archive"
	"isovoxel/internal/persistence/indexdb"
	"isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/sim/tuning"
	"isovoxel/internal/sim/voxel"
	"isovoxel/internal/sim/world"
)

func main() {
	var (
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		out        = flag.String("out", "", "snapshot output path (default: <data>/worlds/<world>/snapshots/<seed>.snap.zst)")
		indexPath  = flag.String("index", "", "sqlite index to record the world in (optional)")
		doArchive  = flag.Bool("archive", false, "copy the snapshot into <data>/worlds/<world>/archives")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[worldgen] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	w, err := world.New(world.ConfigFromTuning(*worldID, *seed, tune))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	fmt.Printf("World generation took %d micros (%f seconds)\n", w.GenTime().Microseconds(), w.GenTime().Seconds())
	fmt.Println(describe(w))

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	path := strings.TrimSpace(*out)
	if path == "" {
		path = filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", *seed))
	}
	snap := w.ExportSnapshot()
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Fatalf("write snapshot: %v", err)
	}
	h, err := snapshot.ReadHeader(path)
	if err != nil {
		logger.Fatalf("read back snapshot: %v", err)
	}
	if h.Digest != snap.Header.Digest {
		logger.Fatalf("snapshot digest mismatch: wrote=%s read=%s", snap.Header.Digest, h.Digest)
	}
	logger.Printf("wrote %s digest=%s", path, h.Digest)

	if *doArchive {
		dst, ok, err := archive.ArchiveWorldSnapshot(worldDir, path, snap)
		if err != nil {
			logger.Fatalf("archive: %v", err)
		}
		if ok {
			logger.Printf("archived %s", dst)
		} else {
			logger.Printf("already archived at %s", dst)
		}
	}

	if *indexPath != "" {
		idx, err := indexdb.OpenSQLite(*indexPath)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		sx, sy, sz := w.Grid().Size()
		idx.RecordWorld(indexdb.WorldRow{
			RunID:        indexdb.NewRunID(),
			WorldID:      w.ID(),
			Seed:         w.Seed(),
			Digest:       h.Digest,
			SizeX:        sx,
			SizeY:        sy,
			SizeZ:        sz,
			Trees:        len(w.GenStats().Trees),
			Flowers:      w.GenStats().Flowers,
			GenMicros:    w.GenTime().Microseconds(),
			SnapshotPath: path,
		})
		if err := idx.Close(); err != nil {
			logger.Fatalf("close index: %v", err)
		}
	}
}

// describe summarizes a world: size, decorations and per-type cell counts.
func describe(w *world.World) string {
	sx, sy, sz := w.Grid().Size()
	counts := map[voxel.Type]int{}
	for x := 0; x < sx; x++ {
		for y := 0; y < sy; y++ {
			for z := 0; z < sz; z++ {
				counts[w.Grid().At(x, y, z)]++
			}
		}
	}
	types := make([]voxel.Type, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "world=%s seed=%d size=%dx%dx%d trees=%d flowers=%d digest=%s\n",
		w.ID(), w.Seed(), sx, sy, sz, len(w.GenStats().Trees), w.GenStats().Flowers, world.FormatDigest(w.Digest()))
	for _, t := range types {
		fmt.Fprintf(&b, "  %-10s %d\n", t, counts[t])
	}
	return strings.TrimRight(b.String(), "\n")
}
