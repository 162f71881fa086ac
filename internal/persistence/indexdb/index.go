package indexdb

import (
	"time"

	"github.com/google/uuid"
)

// Index is a secondary, queryable record of generated worlds and frame
// timings. Writes are queued and may be dropped under load; the JSONL
// diagnostics logs remain the source of truth.
type Index interface {
	RecordWorld(r WorldRow)
	RecordFrame(r FrameRow)
	Stats() QueueStats
	Close() error
}

type WorldRow struct {
	RunID        string
	WorldID      string
	Seed         int64
	Digest       string
	SizeX        int
	SizeY        int
	SizeZ        int
	Trees        int
	Flowers      int
	GenMicros    int64
	SnapshotPath string
	RecordedAt   time.Time
}

type FrameRow struct {
	RunID        string
	Frame        uint64
	ViewX        float64
	ViewY        float64
	ViewZ        float64
	Recomputed   bool
	Visible      int
	Recomputes   uint64
	UpdateMicros int64
	DrawMicros   int64
}

type QueueStats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropWorld     uint64 `json:"drop_world_total"`
	DropFrame     uint64 `json:"drop_frame_total"`
	WriteErrors   uint64 `json:"write_errors_total"`
}

// NewRunID identifies one process lifetime of a world.
func NewRunID() string { return uuid.NewString() }
