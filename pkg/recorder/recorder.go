// Package recorder persists tracking samples and reception status changes to SQLite.
//
// A Recorder is a tracking.Listener. Callbacks only enqueue; a background writer
// commits rows in batches, so a slow disk never stalls frame delivery. Samples that
// do not fit in the queue are dropped and counted.
package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// ErrClosed is returned by operations on a closed recorder.
var ErrClosed = errors.New("recorder: closed")

// Option configures a Recorder.
type Option func(*options)

type options struct {
	bufferSize    int
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
}

// WithBufferSize sets how many pending rows may queue before samples are dropped.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithBatchSize sets the maximum number of rows committed per transaction.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithFlushInterval sets how long a partial batch may wait before it is committed.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// row is one queued write. Exactly one of sample, status or sync is set.
type row struct {
	sample *Sample
	status *statusRow
	sync   chan error
}

type statusRow struct {
	status tracking.ReceptionStatus
	at     time.Time
}

// Recorder writes samples to a SQLite database.
type Recorder struct {
	db     *sql.DB
	opts   options
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan row
	done   chan struct{}

	written atomic.Uint64
	dropped atomic.Uint64
	skipped atomic.Uint64
}

var _ tracking.Listener = (*Recorder)(nil)

var insertSampleSQL = fmt.Sprintf(
	"INSERT INTO samples (ts, wall_ms, %s) VALUES (?, ?%s)",
	strings.Join(ChannelNames[:], ", "),
	strings.Repeat(", ?", ChannelCount),
)

func schema() string {
	cols := make([]string, 0, ChannelCount)
	for _, name := range ChannelNames {
		cols = append(cols, name+" REAL NOT NULL")
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts REAL NOT NULL,
			wall_ms INTEGER NOT NULL,
			%s
		);
		CREATE TABLE IF NOT EXISTS status_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			wall_ms INTEGER NOT NULL,
			status TEXT NOT NULL
		);
	`, strings.Join(cols, ",\n\t\t\t"))
}

// Open creates or opens the database at path and starts the writer.
// Use ":memory:" for a throwaway database.
func Open(path string, opts ...Option) (*Recorder, error) {
	o := options{
		bufferSize:    1024,
		batchSize:     128,
		flushInterval: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Component("recorder")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}
	// One connection so :memory: databases are shared by the writer and readers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema()); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: create tables: %w", err)
	}

	r := &Recorder{
		db:     db,
		opts:   o,
		logger: o.logger.With("path", path),
		queue:  make(chan row, o.bufferSize),
		done:   make(chan struct{}),
	}
	go r.writeLoop()
	r.logger.Info("recording started")
	return r, nil
}

// OnTrackingFrame queues a sample. Frames without user state are skipped.
func (r *Recorder) OnTrackingFrame(f *tracking.Frame, ts tracking.Timestamp) {
	s, ok := SampleFromFrame(f, time.Now())
	if !ok {
		r.skipped.Add(1)
		return
	}
	r.enqueue(row{sample: &s})
}

// OnReceptionStatusChanged queues a status event.
func (r *Recorder) OnReceptionStatusChanged(status tracking.ReceptionStatus) {
	r.enqueue(row{status: &statusRow{status: status, at: time.Now()}})
}

func (r *Recorder) enqueue(rw row) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- rw:
	default:
		if r.dropped.Add(1)%100 == 1 {
			r.logger.Warn("recorder queue full, dropping", "dropped", r.dropped.Load())
		}
	}
}

// Sync blocks until every row queued before the call is committed.
func (r *Recorder) Sync(ctx context.Context) error {
	done := make(chan error, 1)

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrClosed
	}
	select {
	case r.queue <- row{sync: done}:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) writeLoop() {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.flushInterval)
	defer ticker.Stop()

	batch := make([]row, 0, r.opts.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := r.commit(batch)
		if err != nil {
			r.logger.Error("batch not written", "rows", len(batch), "error", err)
		}
		batch = batch[:0]
		return err
	}

	for {
		select {
		case rw, ok := <-r.queue:
			if !ok {
				flush()
				return
			}
			if rw.sync != nil {
				rw.sync <- flush()
				continue
			}
			batch = append(batch, rw)
			if len(batch) >= r.opts.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (r *Recorder) commit(batch []row) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sampleStmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		return err
	}
	defer sampleStmt.Close()

	samples := 0
	args := make([]any, 0, ChannelCount+2)
	for _, rw := range batch {
		switch {
		case rw.sample != nil:
			args = args[:0]
			args = append(args, float64(rw.sample.Timestamp), rw.sample.WallClock.UnixMilli())
			for _, v := range rw.sample.Channels {
				args = append(args, float64(v))
			}
			if _, err := sampleStmt.Exec(args...); err != nil {
				return err
			}
			samples++
		case rw.status != nil:
			if _, err := tx.Exec(
				"INSERT INTO status_events (wall_ms, status) VALUES (?, ?)",
				rw.status.at.UnixMilli(), rw.status.status.String(),
			); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.written.Add(uint64(samples))
	return nil
}

// Count returns the number of committed samples.
func (r *Recorder) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&n); err != nil {
		return 0, fmt.Errorf("recorder: count: %w", err)
	}
	return n, nil
}

// Latest returns up to n committed samples, newest first.
func (r *Recorder) Latest(n int) ([]Sample, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := r.db.Query(fmt.Sprintf(
		"SELECT ts, wall_ms, %s FROM samples ORDER BY id DESC LIMIT ?",
		strings.Join(ChannelNames[:], ", "),
	), n)
	if err != nil {
		return nil, fmt.Errorf("recorder: query: %w", err)
	}
	defer rows.Close()

	out := make([]Sample, 0, n)
	for rows.Next() {
		var (
			ts     float64
			wallMS int64
			vals   [ChannelCount]float64
		)
		dest := make([]any, 0, ChannelCount+2)
		dest = append(dest, &ts, &wallMS)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("recorder: scan: %w", err)
		}
		s := Sample{Timestamp: tracking.Timestamp(ts), WallClock: time.UnixMilli(wallMS)}
		for i, v := range vals {
			s.Channels[i] = float32(v)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StatusEvent is a recorded reception status change.
type StatusEvent struct {
	Status    tracking.ReceptionStatus `json:"status"`
	WallClock time.Time                `json:"wall_clock"`
}

// StatusEvents returns all recorded status changes, oldest first.
func (r *Recorder) StatusEvents() ([]StatusEvent, error) {
	rows, err := r.db.Query("SELECT wall_ms, status FROM status_events ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("recorder: query: %w", err)
	}
	defer rows.Close()

	var out []StatusEvent
	for rows.Next() {
		var (
			wallMS int64
			name   string
		)
		if err := rows.Scan(&wallMS, &name); err != nil {
			return nil, fmt.Errorf("recorder: scan: %w", err)
		}
		var st tracking.ReceptionStatus
		if err := st.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("recorder: %w", err)
		}
		out = append(out, StatusEvent{Status: st, WallClock: time.UnixMilli(wallMS)})
	}
	return out, rows.Err()
}

// Stats summarizes recorder activity.
type Stats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Skipped uint64 `json:"skipped"`
	Pending int    `json:"pending"`
}

// GetStats returns recorder statistics.
func (r *Recorder) GetStats() Stats {
	return Stats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Skipped: r.skipped.Load(),
		Pending: len(r.queue),
	}
}

// Close flushes pending rows and closes the database. Callbacks after Close are ignored.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	st := r.GetStats()
	r.logger.Info("recording stopped", "written", st.Written, "dropped", st.Dropped)
	return r.db.Close()
}
