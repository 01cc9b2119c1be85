package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS detection_events (
		request_id      TEXT PRIMARY KEY,
		timestamp       TIMESTAMPTZ NOT NULL,
		source          TEXT NOT NULL,
		message_preview TEXT NOT NULL,
		message_hash    TEXT NOT NULL,
		message_size    BIGINT NOT NULL,
		safe            BOOLEAN NOT NULL,
		reason          TEXT NOT NULL,
		pattern         TEXT NOT NULL DEFAULT '',
		latency_ms      REAL NOT NULL
	)
`

var postgresColumns = []string{
	"request_id", "timestamp", "source",
	"message_preview", "message_hash", "message_size",
	"safe", "reason", "pattern", "latency_ms",
}

// PostgresWriter writes detection events to Postgres asynchronously using COPY.
type PostgresWriter struct {
	*batcher
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresWriter opens a pool, ensures the events table exists, and starts the flush loop.
func NewPostgresWriter(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresWriter, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create detection_events table: %w", err)
	}

	w := &PostgresWriter{
		pool:   pool,
		logger: logger,
	}
	w.batcher = newBatcher("postgres", bufferSize, flushBatch, flushInterval, w.flush, logger)
	return w, nil
}

// Close drains buffered events and closes the pool.
func (w *PostgresWriter) Close() {
	w.batcher.Close()
	w.pool.Close()
}

func (w *PostgresWriter) flush(events []*DetectionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := w.pool.CopyFrom(ctx,
		pgx.Identifier{"detection_events"},
		postgresColumns,
		pgx.CopyFromRows(postgresRows(events)),
	)
	if err != nil {
		w.logger.Error("postgres copy failed",
			zap.Int("batch_size", len(events)),
			zap.Error(err),
		)
		return
	}
	if int(n) != len(events) {
		w.logger.Warn("postgres copy wrote fewer rows than batched",
			zap.Int64("written", n),
			zap.Int("batch_size", len(events)),
		)
	}
}

// postgresRows returns COPY rows in postgresColumns order.
func postgresRows(events []*DetectionEvent) [][]any {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			e.RequestID,
			e.Timestamp,
			e.Source,
			e.MessagePreview,
			e.MessageHash,
			int64(e.MessageSize),
			e.Safe,
			e.Reason,
			e.Pattern,
			e.LatencyMs,
		})
	}
	return rows
}
