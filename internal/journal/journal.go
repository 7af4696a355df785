package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/session-keeper/internal/status"
)

// DB is the subset of *pgxpool.Pool the journal needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config configures a Writer.
type Config struct {
	Table         string        // Optionally schema-qualified
	BatchSize     int           // Flush when this many rows are pending
	FlushInterval time.Duration // Flush at least this often
	BufferSize    int           // Publish queue size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:         "session_events",
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		BufferSize:    1000,
	}
}

// Stats counts journal activity.
type Stats struct {
	Inserts int64 // Rows written
	Flushes int64 // Successful batches
	Errors  int64 // Failed batches
	Dropped int64 // Entries dropped on a full buffer
}

// eventRow is one journal row.
type eventRow struct {
	Time      time.Time
	AccountID string
	Severity  string
	Message   string
}

// Writer batches status entries into a table.
type Writer struct {
	cfg    Config
	db     DB
	logger *slog.Logger
	runID  string
	table  string

	input   chan status.Entry
	dropped atomic.Int64

	// Batching
	batch   []eventRow
	batchMu sync.Mutex

	// Lifecycle
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool

	// Metrics
	stats Stats
}

// New creates a journal writer. Nothing is written until Start.
func New(cfg Config, db DB, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Table == "" {
		cfg.Table = def.Table
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "journal"),
		runID:  uuid.NewString(),
		table:  pgx.Identifier(strings.Split(cfg.Table, ".")).Sanitize(),
		input:  make(chan status.Entry, cfg.BufferSize),
		batch:  make([]eventRow, 0, cfg.BatchSize),
	}
}

// RunID identifies this process's rows.
func (w *Writer) RunID() string {
	return w.runID
}

// Publish queues an entry. It never blocks.
func (w *Writer) Publish(e status.Entry) {
	select {
	case w.input <- e:
	default:
		w.dropped.Add(1)
	}
}

// Start creates the table if needed and begins consuming entries.
func (w *Writer) Start(ctx context.Context) error {
	if err := w.ensureTable(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.started.Store(true)

	w.wg.Add(1)
	go w.consumeLoop(loopCtx)

	w.logger.Info("journal started",
		"table", w.cfg.Table,
		"run_id", w.runID,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains queued entries and performs a final flush using ctx.
func (w *Writer) Stop(ctx context.Context) error {
	if !w.started.Load() {
		return nil
	}
	w.logger.Info("stopping journal")

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal stop timed out")
		return ctx.Err()
	}

	// Drain what is still queued
drain:
	for {
		select {
		case e := <-w.input:
			w.add(e)
		default:
			break drain
		}
	}

	w.flush(ctx)
	stats := w.Stats()
	w.logger.Info("journal stopped",
		"inserts", stats.Inserts,
		"errors", stats.Errors,
		"dropped", stats.Dropped,
	)
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	s := w.stats
	s.Dropped = w.dropped.Load()
	return s
}

func (w *Writer) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			time       TIMESTAMPTZ NOT NULL,
			run_id     UUID        NOT NULL,
			account_id TEXT        NOT NULL,
			severity   TEXT        NOT NULL,
			message    TEXT        NOT NULL
		)`, w.table)
	if _, err := w.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create journal table %s: %w", w.cfg.Table, err)
	}
	return nil
}

// consumeLoop accumulates entries and flushes on size or interval.
func (w *Writer) consumeLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-w.input:
			if w.add(e) {
				w.flush(ctx)
			}
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// add appends an entry and reports whether the batch is full.
func (w *Writer) add(e status.Entry) bool {
	row := eventRow{
		Time:      e.Time,
		AccountID: e.AccountID,
		Severity:  e.Severity.String(),
		Message:   e.Message,
	}

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// flush writes the current batch. Failed batches are counted and dropped.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]eventRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch))
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed events",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

func (w *Writer) batchInsert(ctx context.Context, rows []eventRow) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (time, run_id, account_id, severity, message) VALUES ($1, $2, $3, $4, $5)`,
		w.table,
	)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query, r.Time, w.runID, r.AccountID, r.Severity, r.Message)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
