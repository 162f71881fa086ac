package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"isovoxel/internal/observerproto"
	"isovoxel/internal/sim/control"
	"isovoxel/internal/sim/world"
	"isovoxel/internal/sim/world/terrain/gen"
	"isovoxel/internal/sim/world/visibility"
)

func newTestWorld(t *testing.T) *world.World {
	t.Helper()
	g := gen.DefaultConfig()
	g.SizeX, g.SizeY, g.SizeZ = 24, 16, 24
	w, err := world.New(world.Config{
		ID:      "obs",
		Seed:    9,
		Gen:     g,
		View:    visibility.DefaultConfig(),
		Control: control.Config{Accel: 1, Decay: 0.9, Speed: 2},
	})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func newTestServer(t *testing.T) (*Server, *world.World, *control.KeySet, *httptest.Server) {
	t.Helper()
	w := newTestWorld(t)
	keys := &control.KeySet{}
	s := NewServer(w, keys, Params{BlockSize: 84, Viewport: [2]int{1280, 720}, FrameHz: 60}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/observer/ws", s.WSHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, w, keys, srv
}

func dial(t *testing.T, srv *httptest.Server, sub observerproto.SubscribeMsg) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) observerproto.FrameMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f observerproto.FrameMsg
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestBootstrap(t *testing.T) {
	_, w, _, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/observer/bootstrap")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.WorldID != "obs" || b.WorldParams.Size != [3]int{24, 16, 24} || b.WorldParams.Seed != 9 {
		t.Fatalf("unexpected bootstrap %+v", b)
	}
	if b.Digest != world.FormatDigest(w.Digest()) {
		t.Fatalf("digest %s", b.Digest)
	}
	if len(b.VoxelPalette) == 0 || b.VoxelPalette[0] != "air" {
		t.Fatalf("palette %v", b.VoxelPalette)
	}
}

func TestWS_RejectsMissingSubscribe(t *testing.T) {
	_, _, _, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteJSON(observerproto.KeysMsg{Type: observerproto.TypeKeys, ProtocolVersion: observerproto.Version})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestWS_FramesCarryVoxelsOnlyWhenChanged(t *testing.T) {
	s, w, _, srv := newTestServer(t)
	conn := dial(t, srv, observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version, MaxVoxels: 5})
	waitFor(t, "session", func() bool { return s.Sessions() == 1 })

	vp := world.FixedViewport{W: 1280, H: 720}
	st := w.Frame(1.0/60, nil, vp)
	s.Publish(st, w.Visible())
	f := readFrame(t, conn)
	if f.Type != observerproto.TypeFrame || f.Frame != 1 || !f.Recomputed {
		t.Fatalf("first frame %+v", f)
	}
	if f.Total != len(w.Visible().Voxels) {
		t.Fatalf("total %d, set %d", f.Total, len(w.Visible().Voxels))
	}
	wantN := f.Total
	if wantN > 5 {
		wantN = 5
		if !f.Truncated {
			t.Fatalf("expected truncated flag")
		}
	}
	if len(f.Voxels) != wantN {
		t.Fatalf("voxels %d want %d", len(f.Voxels), wantN)
	}

	st = w.Frame(1.0/60, nil, vp)
	s.Publish(st, w.Visible())
	f = readFrame(t, conn)
	if f.Frame != 2 || f.Recomputed || len(f.Voxels) != 0 {
		t.Fatalf("unchanged frame should be light: %+v", f)
	}
}

func TestWS_KeysRequireControl(t *testing.T) {
	s, _, keys, srv := newTestServer(t)
	watcher := dial(t, srv, observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version})
	driver := dial(t, srv, observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version, Control: true})
	waitFor(t, "sessions", func() bool { return s.Sessions() == 2 })

	_ = watcher.WriteJSON(observerproto.KeysMsg{Type: observerproto.TypeKeys, ProtocolVersion: observerproto.Version, Left: true})
	_ = driver.WriteJSON(observerproto.KeysMsg{Type: observerproto.TypeKeys, ProtocolVersion: observerproto.Version, Up: true})
	waitFor(t, "driver keys", func() bool { return keys.KeyDown(control.KeyUp) })
	if keys.KeyDown(control.KeyLeft) {
		t.Fatalf("watcher without control changed keys")
	}

	_ = driver.Close()
	waitFor(t, "driver leave", func() bool { return s.Sessions() == 1 })
	if keys.KeyDown(control.KeyUp) {
		t.Fatalf("keys should be released when the driver leaves")
	}
}
