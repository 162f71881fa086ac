package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "isovoxel/internal/persistence/log"
	"isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/sim/tuning"
	"isovoxel/internal/sim/world"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		framesDir = flag.String("frames", "", "frames dir containing frames-*.jsonl.zst (optional)")
		verify    = flag.Bool("verify", true, "regenerate the world from the snapshot's seed and parameters and compare digests")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d world=%s seed=%d size=%dx%dx%d trees=%d flowers=%d digest=%s\n",
		snap.Header.Version, snap.Header.WorldID, snap.Seed,
		snap.Grid.SizeX, snap.Grid.SizeY, snap.Grid.SizeZ, len(snap.Trees), snap.Flowers, snap.Header.Digest)

	loaded, err := world.FromSnapshot(world.ConfigFromTuning(snap.Header.WorldID, snap.Seed, tuning.Defaults()), snap)
	if err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}

	if *verify {
		regen, err := world.New(loaded.Config())
		if err != nil {
			fmt.Fprintln(os.Stderr, "regenerate:", err)
			os.Exit(1)
		}
		if regen.Digest() != loaded.Digest() {
			fmt.Fprintf(os.Stderr, "digest mismatch: snapshot=%s regenerated=%s\n",
				world.FormatDigest(loaded.Digest()), world.FormatDigest(regen.Digest()))
			os.Exit(1)
		}
		if len(regen.GenStats().Trees) != len(snap.Trees) || regen.GenStats().Flowers != snap.Flowers {
			fmt.Fprintf(os.Stderr, "decoration mismatch: trees %d/%d flowers %d/%d\n",
				len(regen.GenStats().Trees), len(snap.Trees), regen.GenStats().Flowers, snap.Flowers)
			os.Exit(1)
		}
		fmt.Printf("regenerate ok: digest=%s gen=%s\n", world.FormatDigest(regen.Digest()), regen.GenTime())
	}

	if *framesDir == "" {
		return
	}
	files, err := listFrameFiles(*framesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list frames:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no frames files found in", *framesDir)
		os.Exit(1)
	}

	var sum frameSummary
	for _, path := range files {
		recs, err := persistlog.ReadRecords(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "frames:", err)
			os.Exit(1)
		}
		for _, r := range recs {
			sum.add(r)
		}
	}
	fmt.Println(sum.String())
}

func listFrameFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "frames-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

type frameSummary struct {
	gens       int
	frames     int
	recomputes int
	updateUS   []int64
	maxVisible int
}

func (s *frameSummary) add(r persistlog.Record) {
	switch r.Kind {
	case persistlog.KindGen:
		s.gens++
	case persistlog.KindFrame:
		s.frames++
		if r.Recomputed {
			s.recomputes++
			s.updateUS = append(s.updateUS, r.UpdateMicros)
		}
		if r.Visible > s.maxVisible {
			s.maxVisible = r.Visible
		}
	}
}

func (s *frameSummary) String() string {
	var p50, p99 int64
	if n := len(s.updateUS); n > 0 {
		sorted := append([]int64(nil), s.updateUS...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		p50 = sorted[n/2]
		p99 = sorted[(n*99)/100]
	}
	return fmt.Sprintf("frames: gens=%d logged=%d recomputes=%d update_us p50=%d p99=%d max_visible=%d",
		s.gens, s.frames, s.recomputes, p50, p99, s.maxVisible)
}
