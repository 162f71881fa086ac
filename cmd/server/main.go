package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"isovoxel/internal/persistence/indexdb"
	persistlog "isovoxel/internal/persistence/log"
	"isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/sim/control"
	"isovoxel/internal/sim/tuning"
	"isovoxel/internal/sim/world"
	"isovoxel/internal/sim/world/visibility"
	"isovoxel/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when generating a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the world/frame index")
		snapPath   = flag.String("snapshot", "", "path to a world snapshot to load instead of generating")
		saveSnap   = flag.Bool("save_snapshot", true, "write a snapshot after generating a fresh world")
		logEvery   = flag.Int("log_every", 60, "also log idle frames every N frames (recomputes are always logged)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	// Optional: read-model index backend (does not affect world contents).
	idx, err := openRuntimeIndex(worldDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	cfg := world.ConfigFromTuning(*worldID, *seed, tune)
	var w *world.World
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		w, err = world.FromSnapshot(cfg, snap)
		if err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("loaded snapshot=%s seed=%d digest=%s", filepath.Base(snapshotToLoad), w.Seed(), world.FormatDigest(w.Digest()))
	} else {
		w, err = world.New(cfg)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		logger.Printf("World generation took %d micros (%f seconds)", w.GenTime().Microseconds(), w.GenTime().Seconds())
		if *saveSnap {
			snapshotToLoad = filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", w.Seed()))
			if err := snapshot.WriteSnapshot(snapshotToLoad, w.ExportSnapshot()); err != nil {
				logger.Printf("snapshot write: %v", err)
				snapshotToLoad = ""
			}
		}
	}

	runID := indexdb.NewRunID()
	if idx != nil {
		sx, sy, sz := w.Grid().Size()
		idx.RecordWorld(indexdb.WorldRow{
			RunID:        runID,
			WorldID:      w.ID(),
			Seed:         w.Seed(),
			Digest:       world.FormatDigest(w.Digest()),
			SizeX:        sx,
			SizeY:        sy,
			SizeZ:        sz,
			Trees:        len(w.GenStats().Trees),
			Flowers:      w.GenStats().Flowers,
			GenMicros:    w.GenTime().Microseconds(),
			SnapshotPath: snapshotToLoad,
		})
	}

	frameLog := persistlog.NewFrameLog(*dataDir, *worldID)
	defer frameLog.Close()
	if err := frameLog.WriteGen(w); err != nil {
		logger.Printf("frame log: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	keys := &control.KeySet{}
	obsSrv := observer.NewServer(w, keys, observer.Params{
		BlockSize: tune.View.BlockSize,
		Viewport:  [2]int{tune.Viewport.Width, tune.Viewport.Height},
		FrameHz:   tune.FrameHz,
	}, logger)

	vp := world.FixedViewport{W: tune.Viewport.Width, H: tune.Viewport.Height}
	onFrame := func(st world.FrameStats, set *visibility.Set) {
		obsSrv.Publish(st, set)
		if !st.Recomputed && (*logEvery <= 0 || st.Frame%uint64(*logEvery) != 0) {
			return
		}
		if err := frameLog.WriteFrame(st, 0); err != nil {
			logger.Printf("frame log: %v", err)
		}
		if idx != nil {
			idx.RecordFrame(indexdb.FrameRow{
				RunID:        runID,
				Frame:        st.Frame,
				ViewX:        st.Viewpoint.X(),
				ViewY:        st.Viewpoint.Y(),
				ViewZ:        st.Viewpoint.Z(),
				Recomputed:   st.Recomputed,
				Visible:      st.Visible,
				Recomputes:   st.Recomputes,
				UpdateMicros: st.UpdateTime.Microseconds(),
			})
		}
	}
	loopDone := startFrameLoop(ctx, w, tune.FrameHz, keys, vp, onFrame, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, obsSrv, idx))
	mux.HandleFunc("/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/observer/ws", obsSrv.WSHandler())
	mux.HandleFunc("/admin/v1/snapshot", snapshotHandler(w, worldDir, idx, runID, logger))

	if envBool("ISOVOXEL_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (ISOVOXEL_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	// The frame loop writes to frameLog and idx; both close on return.
	cancel()
	<-loopDone
}

// startFrameLoop runs w.Run on its own goroutine. The returned channel is
// closed once the loop has stopped and onFrame will not be called again.
func startFrameLoop(ctx context.Context, w *world.World, hz int, in control.Input, vp visibility.Viewport, onFrame func(world.FrameStats, *visibility.Set), logger *log.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx, hz, in, vp, onFrame); err != nil && err != context.Canceled && logger != nil {
			logger.Printf("frame loop stopped: %v", err)
		}
	}()
	return done
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
