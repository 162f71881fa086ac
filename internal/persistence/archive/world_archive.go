package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"isovoxel/internal/persistence/snapshot"
)

type WorldArchiveMeta struct {
	WorldID   string `json:"world_id"`
	Seed      int64  `json:"seed"`
	Digest    string `json:"digest"`
	Size      [3]int `json:"size"`
	Trees     int    `json:"trees"`
	Flowers   int    `json:"flowers"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// Dir is where a generated world with this seed and digest is archived.
func Dir(worldDir string, seed int64, digest string) string {
	return filepath.Join(worldDir, "archives", fmt.Sprintf("seed_%d_%s", seed, digest))
}

// ArchiveWorldSnapshot copies a snapshot into `worldDir/archives/seed_<seed>_<digest>/`
// next to a meta.json. A world already archived under the same digest is left
// alone and reported with archived=false.
func ArchiveWorldSnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	if snap.Header.Digest == "" {
		return "", false, fmt.Errorf("snapshot has no digest")
	}
	archiveDir := Dir(worldDir, snap.Seed, snap.Header.Digest)
	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if _, err := os.Stat(filepath.Join(archiveDir, "meta.json")); err == nil {
		return dst, false, nil
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := WorldArchiveMeta{
		WorldID:   snap.Header.WorldID,
		Seed:      snap.Seed,
		Digest:    snap.Header.Digest,
		Size:      [3]int{snap.Grid.SizeX, snap.Grid.SizeY, snap.Grid.SizeZ},
		Trees:     len(snap.Trees),
		Flowers:   snap.Flowers,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

func ReadMeta(archiveDir string) (WorldArchiveMeta, error) {
	var m WorldArchiveMeta
	b, err := os.ReadFile(filepath.Join(archiveDir, "meta.json"))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("meta.json: %w", err)
	}
	return m, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
