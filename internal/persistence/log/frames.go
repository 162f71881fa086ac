package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"isovoxel/internal/sim/world"
)

const (
	KindGen   = "gen"
	KindFrame = "frame"
)

// Record is one diagnostics line. Gen records fill the generation fields,
// frame records the per-frame ones.
type Record struct {
	Kind    string `json:"kind"`
	WorldID string `json:"world_id"`
	TimeMS  int64  `json:"ts_ms"`

	Seed      int64  `json:"seed,omitempty"`
	Digest    string `json:"digest,omitempty"`
	GenMicros int64  `json:"gen_us,omitempty"`
	Trees     int    `json:"trees,omitempty"`
	Flowers   int    `json:"flowers,omitempty"`

	Frame        uint64     `json:"frame,omitempty"`
	Viewpoint    [3]float64 `json:"viewpoint,omitempty"`
	Recomputed   bool       `json:"recomputed,omitempty"`
	UpdateMicros int64      `json:"update_us,omitempty"`
	DrawMicros   int64      `json:"draw_us,omitempty"`
	Visible      int        `json:"visible,omitempty"`
	Recomputes   uint64     `json:"recomputes,omitempty"`
}

// FrameLog appends records as JSON lines to zstd files under
// <data>/worlds/<id>/frames, one file per UTC hour. Lines are buffered by
// the encoder and reach disk on rotation or Close.
type FrameLog struct {
	dir     string
	worldID string
	now     func() time.Time

	mu    sync.Mutex
	hour  string
	file  *os.File
	zw    *zstd.Encoder
	enc   *json.Encoder
	lines int
}

func NewFrameLog(dataDir, worldID string) *FrameLog {
	return &FrameLog{
		dir:     filepath.Join(dataDir, "worlds", worldID, "frames"),
		worldID: worldID,
		now:     time.Now,
	}
}

func (l *FrameLog) WriteGen(w *world.World) error {
	st := w.GenStats()
	return l.append(Record{
		Kind:      KindGen,
		Seed:      w.Seed(),
		Digest:    world.FormatDigest(w.Digest()),
		GenMicros: w.GenTime().Microseconds(),
		Trees:     len(st.Trees),
		Flowers:   st.Flowers,
	})
}

// WriteFrame records one frame; draw is zero for headless frames.
func (l *FrameLog) WriteFrame(st world.FrameStats, draw time.Duration) error {
	return l.append(Record{
		Kind:         KindFrame,
		Frame:        st.Frame,
		Viewpoint:    [3]float64{st.Viewpoint.X(), st.Viewpoint.Y(), st.Viewpoint.Z()},
		Recomputed:   st.Recomputed,
		UpdateMicros: st.UpdateTime.Microseconds(),
		DrawMicros:   draw.Microseconds(),
		Visible:      st.Visible,
		Recomputes:   st.Recomputes,
	})
}

func (l *FrameLog) append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now().UTC()
	if hour := t.Format("2006-01-02-15"); hour != l.hour {
		if err := l.openLocked(hour); err != nil {
			return err
		}
	}
	rec.WorldID = l.worldID
	rec.TimeMS = t.UnixMilli()
	if err := l.enc.Encode(rec); err != nil {
		return err
	}
	l.lines++
	return nil
}

// Path returns the file currently being written, or "" before the first record.
func (l *FrameLog) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hour == "" {
		return ""
	}
	return l.pathFor(l.hour)
}

// Lines counts records written to the current file.
func (l *FrameLog) Lines() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines
}

func (l *FrameLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *FrameLog) openLocked(hour string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.pathFor(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.file, l.zw, l.enc = f, zw, json.NewEncoder(zw)
	l.hour = hour
	l.lines = 0
	return nil
}

func (l *FrameLog) closeLocked() error {
	var err error
	if l.zw != nil {
		err = l.zw.Close()
		l.zw = nil
	}
	if l.file != nil {
		if cerr := l.file.Close(); err == nil {
			err = cerr
		}
		l.file = nil
	}
	l.enc = nil
	return err
}

func (l *FrameLog) pathFor(hour string) string {
	return filepath.Join(l.dir, fmt.Sprintf("frames-%s.jsonl.zst", hour))
}

// ReadRecords decodes every record of a closed frames file. Appended
// sessions in the same hour are separate zstd frames and decode in order.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var out []Record
	dec := json.NewDecoder(zr)
	for {
		var r Record
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("%s record %d: %w", path, len(out)+1, err)
		}
		out = append(out, r)
	}
}
