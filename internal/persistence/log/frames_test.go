package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"isovoxel/internal/sim/world"
)

func TestFrameLog_RotatesPerHour(t *testing.T) {
	dir := t.TempDir()
	l := NewFrameLog(dir, "w1")
	now := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if err := l.WriteFrame(world.FrameStats{Frame: 1}, 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := l.Path()
	now = now.Add(2 * time.Minute)
	if err := l.WriteFrame(world.FrameStats{Frame: 2}, 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := l.Path()
	if l.Lines() != 1 {
		t.Fatalf("lines after rotation = %d", l.Lines())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if filepath.Base(first) != "frames-2024-03-01-10.jsonl.zst" || filepath.Base(second) != "frames-2024-03-01-11.jsonl.zst" {
		t.Fatalf("unexpected paths %s %s", first, second)
	}
	if filepath.Dir(first) != filepath.Join(dir, "worlds", "w1", "frames") {
		t.Fatalf("unexpected dir %s", filepath.Dir(first))
	}
	for i, p := range []string{first, second} {
		got, err := ReadRecords(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if len(got) != 1 || got[0].Frame != uint64(i+1) || got[0].TimeMS != now.Add(time.Duration(i-1)*2*time.Minute).UnixMilli() {
			t.Fatalf("file %s: %+v", p, got)
		}
	}
}

func TestFrameLog_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 2; i++ {
		l := NewFrameLog(dir, "w1")
		l.now = func() time.Time { return now }
		if err := l.WriteFrame(world.FrameStats{Frame: uint64(i)}, 0); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	recs, err := ReadRecords(filepath.Join(dir, "worlds", "w1", "frames", "frames-2024-03-01-10.jsonl.zst"))
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(recs) != 2 || recs[0].Frame != 1 || recs[1].Frame != 2 {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestFrameLog_WritesFrames(t *testing.T) {
	dir := t.TempDir()
	l := NewFrameLog(dir, "w1")
	st := world.FrameStats{
		Frame:      3,
		Viewpoint:  mgl64.Vec3{1.5, 0, -4},
		Recomputed: true,
		UpdateTime: 1500 * time.Microsecond,
		Visible:    42,
		Recomputes: 2,
	}
	if err := l.WriteFrame(st, 250*time.Microsecond); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	path := l.Path()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file missing: %v", err)
	}

	recs, err := ReadRecords(path)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("want 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.Kind != KindFrame || r.WorldID != "w1" || r.Frame != 3 || !r.Recomputed {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.UpdateMicros != 1500 || r.DrawMicros != 250 || r.Visible != 42 || r.Viewpoint != [3]float64{1.5, 0, -4} {
		t.Fatalf("unexpected timings %+v", r)
	}
}
