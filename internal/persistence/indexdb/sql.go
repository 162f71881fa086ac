package indexdb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type dialect struct {
	name    string
	pragmas []string

	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS worlds (
		run_id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		seed BIGINT NOT NULL,
		digest TEXT NOT NULL,
		size_x INTEGER NOT NULL,
		size_y INTEGER NOT NULL,
		size_z INTEGER NOT NULL,
		trees INTEGER NOT NULL,
		flowers INTEGER NOT NULL,
		gen_us BIGINT NOT NULL,
		snapshot_path TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_worlds_world_seed ON worlds(world_id, seed);`,
	`CREATE TABLE IF NOT EXISTS frames (
		run_id TEXT NOT NULL,
		frame BIGINT NOT NULL,
		view_x DOUBLE PRECISION NOT NULL,
		view_y DOUBLE PRECISION NOT NULL,
		view_z DOUBLE PRECISION NOT NULL,
		recomputed INTEGER NOT NULL,
		visible INTEGER NOT NULL,
		recomputes BIGINT NOT NULL,
		update_us BIGINT NOT NULL,
		draw_us BIGINT NOT NULL,
		PRIMARY KEY (run_id, frame)
	);`,
}

const (
	upsertWorld = `INSERT INTO worlds(run_id,world_id,seed,digest,size_x,size_y,size_z,trees,flowers,gen_us,snapshot_path,recorded_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET digest=excluded.digest, snapshot_path=excluded.snapshot_path, recorded_at=excluded.recorded_at`
	upsertFrame = `INSERT INTO frames(run_id,frame,view_x,view_y,view_z,recomputed,visible,recomputes,update_us,draw_us)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(run_id,frame) DO NOTHING`
)

// rebind rewrites ? placeholders for dialects that number them.
func rebind(d dialect, q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

type reqKind int

const (
	reqWorld reqKind = iota + 1
	reqFrame
)

type req struct {
	kind  reqKind
	world WorldRow
	frame FrameRow
}

// SQLIndex is an Index over database/sql with a single writer goroutine.
type SQLIndex struct {
	db      *sql.DB
	dialect dialect

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends against close(ch); senders hold the read lock.
	mu     sync.RWMutex
	closed bool

	dropWorld   atomic.Uint64
	dropFrame   atomic.Uint64
	writeErrors atomic.Uint64
}

func openSQL(db *sql.DB, d dialect, queue int) (*SQLIndex, error) {
	for _, p := range d.pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, err
		}
	}
	for _, s := range schema {
		if _, err := db.Exec(s); err != nil {
			return nil, err
		}
	}
	s := &SQLIndex{
		db:      db,
		dialect: d,
		ch:      make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func (s *SQLIndex) Dialect() string { return s.dialect.name }

func (s *SQLIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLIndex) RecordWorld(r WorldRow) {
	if s == nil {
		return
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	if !s.enqueue(req{kind: reqWorld, world: r}) {
		s.dropWorld.Add(1)
	}
}

func (s *SQLIndex) RecordFrame(r FrameRow) {
	if s == nil {
		return
	}
	if !s.enqueue(req{kind: reqFrame, frame: r}) {
		s.dropFrame.Add(1)
	}
}

// enqueue never blocks. It reports false only when the queue is full;
// requests after Close are ignored.
func (s *SQLIndex) enqueue(r req) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- r:
		return true
	default:
		// Drop if the indexer falls behind.
		return false
	}
}

func (s *SQLIndex) Stats() QueueStats {
	if s == nil {
		return QueueStats{}
	}
	return QueueStats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropWorld:     s.dropWorld.Load(),
		DropFrame:     s.dropFrame.Load(),
		WriteErrors:   s.writeErrors.Load(),
	}
}

func (s *SQLIndex) loop() {
	ctx := context.Background()
	insertWorld, _ := s.db.Prepare(rebind(s.dialect, upsertWorld))
	insertFrame, _ := s.db.Prepare(rebind(s.dialect, upsertFrame))
	defer func() {
		if insertWorld != nil {
			_ = insertWorld.Close()
		}
		if insertFrame != nil {
			_ = insertFrame.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.writeErrors.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.writeErrors.Add(1)
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqWorld:
			w := r.world
			if insertWorld == nil {
				continue
			}
			if _, err := tx.Stmt(insertWorld).Exec(
				w.RunID,
				w.WorldID,
				w.Seed,
				w.Digest,
				w.SizeX, w.SizeY, w.SizeZ,
				w.Trees,
				w.Flowers,
				w.GenMicros,
				w.SnapshotPath,
				w.RecordedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqFrame:
			f := r.frame
			if insertFrame == nil {
				continue
			}
			recomputed := 0
			if f.Recomputed {
				recomputed = 1
			}
			if _, err := tx.Stmt(insertFrame).Exec(
				f.RunID,
				int64(f.Frame),
				f.ViewX, f.ViewY, f.ViewZ,
				recomputed,
				f.Visible,
				int64(f.Recomputes),
				f.UpdateMicros,
				f.DrawMicros,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
