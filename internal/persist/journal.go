package persist

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/tickrun/internal/core/schedule"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// JournalEntry is one schedule run as stored in tick_journal.
type JournalEntry struct {
	Schedule   string
	Tick       int64
	StartedAt  time.Time
	DurationUS int64
	Systems    int32
	Replanned  bool
	Dropped    int32
	Error      *string // nil on success
}

func entryFrom(r schedule.TickReport) JournalEntry {
	e := JournalEntry{
		Schedule:   r.Schedule,
		Tick:       int64(r.Tick),
		StartedAt:  r.Started.UTC(),
		DurationUS: r.Duration.Microseconds(),
		Systems:    int32(r.Systems),
		Replanned:  r.Replanned,
		Dropped:    int32(r.Dropped),
	}
	if r.Err != nil {
		msg := r.Err.Error()
		e.Error = &msg
	}
	return e
}

// BatchWriter stores journal entries.
type BatchWriter interface {
	WriteBatch(ctx context.Context, entries []JournalEntry) error
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteBatch inserts entries in a single transaction.
func (r *JournalRepo) WriteBatch(ctx context.Context, entries []JournalEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tick_journal (schedule, tick, started_at, duration_us, systems, replanned, dropped, error)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.Schedule, e.Tick, e.StartedAt, e.DurationUS, e.Systems, e.Replanned, e.Dropped, e.Error,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Journal is a schedule.Observer that batches tick reports and hands full
// batches to a writer goroutine, so a slow database never stalls a tick.
// Batches that do not fit the queue are dropped and counted.
type Journal struct {
	w    BatchWriter
	log  *zap.Logger
	size int

	mu  sync.Mutex
	buf []JournalEntry

	batches chan []JournalEntry
	dropped atomic.Uint64
}

func NewJournal(w BatchWriter, batchSize int, log *zap.Logger) *Journal {
	if batchSize <= 0 {
		batchSize = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{
		w:       w,
		log:     log,
		size:    batchSize,
		buf:     make([]JournalEntry, 0, batchSize),
		batches: make(chan []JournalEntry, 8),
	}
}

func (j *Journal) ScheduleRan(r schedule.TickReport) {
	j.mu.Lock()
	j.buf = append(j.buf, entryFrom(r))
	var full []JournalEntry
	if len(j.buf) >= j.size {
		full = j.buf
		j.buf = make([]JournalEntry, 0, j.size)
	}
	j.mu.Unlock()

	if full == nil {
		return
	}
	select {
	case j.batches <- full:
	default:
		j.dropped.Add(uint64(len(full)))
		j.log.Warn("journal queue full, batch dropped", zap.Int("entries", len(full)))
	}
}

// Dropped counts entries discarded because the writer fell behind or a
// write failed.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// Run writes batches until ctx is done, then writes whatever is queued or
// buffered with a short grace period.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case b := <-j.batches:
			j.write(ctx, b)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return j.Flush(flushCtx)
		}
	}
}

// Flush writes every queued batch and the partial buffer. A failed batch
// does not stop the rest; its entries are counted as dropped and the errors
// are combined.
func (j *Journal) Flush(ctx context.Context) error {
	var errs error
drain:
	for {
		select {
		case b := <-j.batches:
			errs = multierr.Append(errs, j.write(ctx, b))
		default:
			break drain
		}
	}
	j.mu.Lock()
	rest := j.buf
	j.buf = make([]JournalEntry, 0, j.size)
	j.mu.Unlock()
	if len(rest) > 0 {
		errs = multierr.Append(errs, j.write(ctx, rest))
	}
	return errs
}

func (j *Journal) write(ctx context.Context, b []JournalEntry) error {
	start := time.Now()
	if err := j.w.WriteBatch(ctx, b); err != nil {
		j.dropped.Add(uint64(len(b)))
		j.log.Error("journal write failed", zap.Int("entries", len(b)), zap.Error(err))
		return err
	}
	j.log.Debug("journal batch written",
		zap.Int("entries", len(b)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
