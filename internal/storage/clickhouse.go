package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

const clickhouseSchema = `
	CREATE TABLE IF NOT EXISTS detection_events (
		request_id      String,
		timestamp       DateTime64(3, 'UTC'),
		source          LowCardinality(String),
		message_preview String,
		message_hash    FixedString(64),
		message_size    UInt32,
		safe            UInt8,
		reason          LowCardinality(String),
		pattern         LowCardinality(String),
		latency_ms      Float32
	)
	ENGINE = MergeTree
	ORDER BY (timestamp, request_id)
`

const clickhouseInsert = `
	INSERT INTO detection_events (
		request_id, timestamp, source,
		message_preview, message_hash, message_size,
		safe, reason, pattern, latency_ms
	)
`

// ClickHouseWriter writes detection events to ClickHouse asynchronously.
// Write() is non-blocking: events are buffered and batch-inserted in a background goroutine.
type ClickHouseWriter struct {
	*batcher
	conn   driver.Conn
	logger *zap.Logger
}

// NewClickHouseWriter connects, ensures the events table exists, and starts the flush loop.
// TLS follows the DSN (?secure=true).
func NewClickHouseWriter(ctx context.Context, dsn string, logger *zap.Logger) (*ClickHouseWriter, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	if err := conn.Exec(ctx, clickhouseSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create detection_events table: %w", err)
	}

	w := &ClickHouseWriter{
		conn:   conn,
		logger: logger,
	}
	w.batcher = newBatcher("clickhouse", bufferSize, flushBatch, flushInterval, w.flush, logger)
	return w, nil
}

// Close drains buffered events and closes the connection.
func (w *ClickHouseWriter) Close() {
	w.batcher.Close()
	if err := w.conn.Close(); err != nil {
		w.logger.Warn("clickhouse close failed", zap.Error(err))
	}
}

func (w *ClickHouseWriter) flush(events []*DetectionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := w.conn.PrepareBatch(ctx, clickhouseInsert)
	if err != nil {
		w.logger.Error("clickhouse prepare batch failed", zap.Error(err))
		return
	}

	for _, e := range events {
		if err := batch.Append(clickhouseRow(e)...); err != nil {
			w.logger.Error("clickhouse append event failed",
				zap.String("request_id", e.RequestID),
				zap.Error(err),
			)
		}
	}

	if err := batch.Send(); err != nil {
		w.logger.Error("clickhouse batch send failed",
			zap.Int("batch_size", len(events)),
			zap.Error(err),
		)
	}
}

// clickhouseRow returns the column values for one event in clickhouseInsert order.
func clickhouseRow(e *DetectionEvent) []any {
	var safe uint8
	if e.Safe {
		safe = 1
	}
	return []any{
		e.RequestID,
		e.Timestamp,
		e.Source,
		e.MessagePreview,
		e.MessageHash,
		e.MessageSize,
		safe,
		e.Reason,
		e.Pattern,
		e.LatencyMs,
	}
}
