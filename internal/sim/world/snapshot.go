package world

import (
	"fmt"
	"strconv"

	"isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/sim/noise"
	"isovoxel/internal/sim/world/terrain/gen"
	"isovoxel/internal/sim/world/terrain/store"
)

func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	trees := make([][3]int, len(w.stats.Trees))
	copy(trees, w.stats.Trees)
	c := w.cfg.Gen
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Seed:    w.cfg.Seed,
			Digest:  FormatDigest(w.grid.Digest()),
		},
		Seed: w.cfg.Seed,
		Gen: snapshot.GenV1{
			HeightOctaves:   c.HeightOctaves,
			HeightBias:      c.HeightBias,
			StrataScale:     c.StrataScale,
			CaveFreqXY:      c.CaveFreqXY,
			CaveFreqZ:       c.CaveFreqZ,
			CaveAmplitude:   c.CaveAmplitude,
			CaveThreshold:   c.CaveThreshold,
			WaterLevel:      c.WaterLevel,
			VeinChance:      c.VeinChance,
			TreeChance:      c.TreeChance,
			FlowerFreq:      c.FlowerFreq,
			FlowerThreshold: c.FlowerThreshold,
			FlowerRegion:    c.FlowerRegion,
			PerlinAlpha:     c.Noise.Alpha,
			PerlinBeta:      c.Noise.Beta,
			PerlinN:         c.Noise.N,
		},
		Grid:    store.ExportGrid(w.grid),
		Trees:   trees,
		Flowers: w.stats.Flowers,
	}
}

// FromSnapshot restores a world without regenerating it. Generation
// parameters come from the snapshot; view and control come from cfg.
func FromSnapshot(cfg Config, s snapshot.SnapshotV1) (*World, error) {
	if s.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	g, err := store.ImportGrid(s.Grid)
	if err != nil {
		return nil, fmt.Errorf("snapshot grid: %w", err)
	}
	if s.Header.Digest != "" {
		if got := FormatDigest(g.Digest()); got != s.Header.Digest {
			return nil, fmt.Errorf("snapshot digest mismatch: header=%s grid=%s", s.Header.Digest, got)
		}
	}

	if s.Header.WorldID != "" {
		cfg.ID = s.Header.WorldID
	}
	cfg.Seed = s.Seed
	cfg.Gen = gen.Config{
		SizeX:           g.SizeX,
		SizeY:           g.SizeY,
		SizeZ:           g.SizeZ,
		HeightOctaves:   s.Gen.HeightOctaves,
		HeightBias:      s.Gen.HeightBias,
		StrataScale:     s.Gen.StrataScale,
		CaveFreqXY:      s.Gen.CaveFreqXY,
		CaveFreqZ:       s.Gen.CaveFreqZ,
		CaveAmplitude:   s.Gen.CaveAmplitude,
		CaveThreshold:   s.Gen.CaveThreshold,
		WaterLevel:      s.Gen.WaterLevel,
		VeinChance:      s.Gen.VeinChance,
		TreeChance:      s.Gen.TreeChance,
		FlowerFreq:      s.Gen.FlowerFreq,
		FlowerThreshold: s.Gen.FlowerThreshold,
		FlowerRegion:    s.Gen.FlowerRegion,
		Noise: noise.Params{
			Alpha: s.Gen.PerlinAlpha,
			Beta:  s.Gen.PerlinBeta,
			N:     s.Gen.PerlinN,
		},
	}

	trees := make([][3]int, len(s.Trees))
	copy(trees, s.Trees)
	return newWorld(cfg, g, gen.Stats{Trees: trees, Flowers: s.Flowers}, 0), nil
}

func FormatDigest(d uint64) string {
	return strconv.FormatUint(d, 16)
}
