package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Seed    int64  `json:"seed"`
	Digest  string `json:"digest"`
}

// SnapshotV1 is a fully generated world. Loading one skips generation.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed int64  `json:"seed"`
	Gen  GenV1  `json:"gen"`
	Grid GridV1 `json:"grid"`

	Trees   [][3]int `json:"trees,omitempty"`
	Flowers int      `json:"flowers"`
}

// GenV1 records the generation parameters the grid was built with.
type GenV1 struct {
	HeightOctaves   int     `json:"height_octaves"`
	HeightBias      float64 `json:"height_bias"`
	StrataScale     float64 `json:"strata_scale"`
	CaveFreqXY      float64 `json:"cave_freq_xy"`
	CaveFreqZ       float64 `json:"cave_freq_z"`
	CaveAmplitude   float64 `json:"cave_amplitude"`
	CaveThreshold   float64 `json:"cave_threshold"`
	WaterLevel      int     `json:"water_level"`
	VeinChance      int     `json:"vein_chance"`
	TreeChance      int     `json:"tree_chance"`
	FlowerFreq      float64 `json:"flower_freq"`
	FlowerThreshold float64 `json:"flower_threshold"`
	FlowerRegion    int     `json:"flower_region"`
	PerlinAlpha     float64 `json:"perlin_alpha"`
	PerlinBeta      float64 `json:"perlin_beta"`
	PerlinN         int32   `json:"perlin_n"`
}

type GridV1 struct {
	SizeX int `json:"size_x"`
	SizeY int `json:"size_y"`
	SizeZ int `json:"size_z"`
	// Voxels is the x-major cell buffer, run-length encoded.
	Voxels string `json:"voxels"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is duplicated inside the gob body.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}
