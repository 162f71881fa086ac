package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"isovoxel/internal/persistence/archive"
	"isovoxel/internal/persistence/indexdb"
	"isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/sim/world"
	"isovoxel/internal/transport/observer"
)

func metricsHandler(w *world.World, obs *observer.Server, idx indexdb.Index) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		id := w.ID()
		f := w.LastFrame()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP isovoxel_frame Frames stepped since start.\n")
		fmt.Fprintf(rw, "# TYPE isovoxel_frame counter\n")
		fmt.Fprintf(rw, "isovoxel_frame{world=%q} %d\n", id, f.Frame)
		fmt.Fprintf(rw, "# HELP isovoxel_visibility_recomputes Visible-set recomputes since start.\n")
		fmt.Fprintf(rw, "# TYPE isovoxel_visibility_recomputes counter\n")
		fmt.Fprintf(rw, "isovoxel_visibility_recomputes{world=%q} %d\n", id, f.Recomputes)
		fmt.Fprintf(rw, "# HELP isovoxel_visible_voxels Voxels in the current visible set.\n")
		fmt.Fprintf(rw, "# TYPE isovoxel_visible_voxels gauge\n")
		fmt.Fprintf(rw, "isovoxel_visible_voxels{world=%q} %d\n", id, f.Visible)
		fmt.Fprintf(rw, "# HELP isovoxel_update_ms Last visibility update duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE isovoxel_update_ms gauge\n")
		fmt.Fprintf(rw, "isovoxel_update_ms{world=%q} %.3f\n", id, float64(f.UpdateTime.Microseconds())/1000)
		fmt.Fprintf(rw, "# HELP isovoxel_gen_ms World generation duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE isovoxel_gen_ms gauge\n")
		fmt.Fprintf(rw, "isovoxel_gen_ms{world=%q} %.3f\n", id, float64(w.GenTime().Microseconds())/1000)
		fmt.Fprintf(rw, "# HELP isovoxel_viewpoint Current viewpoint.\n")
		fmt.Fprintf(rw, "# TYPE isovoxel_viewpoint gauge\n")
		fmt.Fprintf(rw, "isovoxel_viewpoint{world=%q,axis=%q} %.3f\n", id, "x", f.Viewpoint.X())
		fmt.Fprintf(rw, "isovoxel_viewpoint{world=%q,axis=%q} %.3f\n", id, "z", f.Viewpoint.Z())
		if obs != nil {
			fmt.Fprintf(rw, "# HELP isovoxel_observers Connected observer sessions.\n")
			fmt.Fprintf(rw, "# TYPE isovoxel_observers gauge\n")
			fmt.Fprintf(rw, "isovoxel_observers{world=%q} %d\n", id, obs.Sessions())
		}
		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# HELP isovoxel_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE isovoxel_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "isovoxel_index_queue_depth{world=%q} %d\n", id, st.QueueDepth)
			fmt.Fprintf(rw, "# HELP isovoxel_index_dropped_total Index rows dropped under load.\n")
			fmt.Fprintf(rw, "# TYPE isovoxel_index_dropped_total counter\n")
			fmt.Fprintf(rw, "isovoxel_index_dropped_total{world=%q,kind=%q} %d\n", id, "world", st.DropWorld)
			fmt.Fprintf(rw, "isovoxel_index_dropped_total{world=%q,kind=%q} %d\n", id, "frame", st.DropFrame)
		}
	}
}

// snapshotHandler writes the current world to <worldDir>/snapshots on POST from
// loopback and archives it once per digest.
func snapshotHandler(w *world.World, worldDir string, idx indexdb.Index, runID string, logger *log.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		snap := w.ExportSnapshot()
		path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", w.Seed()))
		rw.Header().Set("Content-Type", "application/json")
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			if logger != nil {
				logger.Printf("snapshot write: %v", err)
			}
			rw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		archived, _, err := archive.ArchiveWorldSnapshot(worldDir, path, snap)
		if err != nil && logger != nil {
			logger.Printf("snapshot archive: %v", err)
		}
		if idx != nil {
			idx.RecordWorld(indexdb.WorldRow{
				RunID:        runID,
				WorldID:      w.ID(),
				Seed:         w.Seed(),
				Digest:       snap.Header.Digest,
				SnapshotPath: path,
			})
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "path": path, "digest": snap.Header.Digest, "archive": archived})
	}
}
