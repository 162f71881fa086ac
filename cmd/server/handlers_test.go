package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"isovoxel/internal/persistence/snapshot"
	"isovoxel/internal/sim/tuning"
	"isovoxel/internal/sim/world"
)

func testWorld(t *testing.T) *world.World {
	t.Helper()
	tune := tuning.Defaults()
	tune.Gen.SizeX, tune.Gen.SizeY, tune.Gen.SizeZ = 16, 12, 16
	w, err := world.New(world.ConfigFromTuning("w_test", 5, tune))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func TestMetricsHandler(t *testing.T) {
	w := testWorld(t)
	w.Frame(1.0/60, nil, world.FixedViewport{W: 640, H: 480})

	rec := httptest.NewRecorder()
	metricsHandler(w, nil, nil)(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`isovoxel_frame{world="w_test"} 1`,
		`isovoxel_visibility_recomputes{world="w_test"} 1`,
		`isovoxel_viewpoint{world="w_test",axis="x"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "isovoxel_index_queue_depth") {
		t.Fatalf("index metrics without an index")
	}
}

func TestSnapshotHandler(t *testing.T) {
	w := testWorld(t)
	dir := t.TempDir()
	h := snapshotHandler(w, dir, nil, "run", nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/admin/v1/snapshot", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		b, _ := io.ReadAll(rec.Body)
		t.Fatalf("status %d: %s", rec.Code, b)
	}
	var resp struct {
		OK      bool   `json:"ok"`
		Path    string `json:"path"`
		Digest  string `json:"digest"`
		Archive string `json:"archive"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Digest != world.FormatDigest(w.Digest()) {
		t.Fatalf("unexpected response %+v", resp)
	}
	h2, err := snapshot.ReadHeader(resp.Path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h2.WorldID != "w_test" || h2.Seed != 5 {
		t.Fatalf("header %+v", h2)
	}
	if _, err := os.Stat(resp.Archive); err != nil {
		t.Fatalf("archive copy: %v", err)
	}
}

func TestOpenRuntimeIndex_Backends(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("ISOVOXEL_INDEX_BACKEND", "none")
	idx, err := openRuntimeIndex(dir, false, nil)
	if err != nil || idx != nil {
		t.Fatalf("none backend: idx=%v err=%v", idx, err)
	}

	t.Setenv("ISOVOXEL_INDEX_BACKEND", "postgres")
	t.Setenv("ISOVOXEL_INDEX_DSN", "")
	if _, err := openRuntimeIndex(dir, false, nil); err == nil {
		t.Fatalf("postgres without dsn should fail")
	}

	t.Setenv("ISOVOXEL_INDEX_BACKEND", "bogus")
	if _, err := openRuntimeIndex(dir, false, nil); err == nil {
		t.Fatalf("unknown backend should fail")
	}

	t.Setenv("ISOVOXEL_INDEX_BACKEND", "")
	idx, err = openRuntimeIndex(dir, false, nil)
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir + "/index/world.sqlite"); err != nil {
		t.Fatalf("sqlite file: %v", err)
	}

	if idx, err := openRuntimeIndex(dir, true, nil); err != nil || idx != nil {
		t.Fatalf("disabled: idx=%v err=%v", idx, err)
	}
}
