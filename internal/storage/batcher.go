package storage

import (
	"time"

	"go.uber.org/zap"
)

const (
	bufferSize    = 10_000
	flushInterval = 100 * time.Millisecond
	flushBatch    = 1000
)

// batcher buffers events in a channel and hands them to flush in batches
// from a single background goroutine. Shared by the database writers.
type batcher struct {
	sink      string
	buffer    chan *DetectionEvent
	done      chan struct{}
	flushed   chan struct{} // closed by flushLoop when it returns
	batchSize int
	interval  time.Duration
	flush     func(events []*DetectionEvent)
	logger    *zap.Logger
}

func newBatcher(sink string, size, batchSize int, interval time.Duration, flush func([]*DetectionEvent), logger *zap.Logger) *batcher {
	b := &batcher{
		sink:      sink,
		buffer:    make(chan *DetectionEvent, size),
		done:      make(chan struct{}),
		flushed:   make(chan struct{}),
		batchSize: batchSize,
		interval:  interval,
		flush:     flush,
		logger:    logger,
	}
	go b.flushLoop()
	return b
}

// Write queues an event. Non-blocking: drops the event if the buffer is full.
func (b *batcher) Write(event *DetectionEvent) {
	select {
	case b.buffer <- event:
	default:
		b.logger.Warn("event buffer full, dropping event",
			zap.String("sink", b.sink),
			zap.String("request_id", event.RequestID),
		)
	}
}

// Close signals the flush loop to drain the events already buffered, flush
// them, and waits for it to finish. The final flush is bounded by the sink's
// own flush timeout. Safe to call once.
func (b *batcher) Close() {
	close(b.done)
	<-b.flushed
}

func (b *batcher) flushLoop() {
	defer close(b.flushed)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	batch := make([]*DetectionEvent, 0, b.batchSize)

	for {
		select {
		case event := <-b.buffer:
			batch = append(batch, event)
			if len(batch) >= b.batchSize {
				b.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				b.flush(batch)
				batch = batch[:0]
			}
		case <-b.done:
		drainLoop:
			for {
				select {
				case event := <-b.buffer:
					batch = append(batch, event)
				default:
					break drainLoop
				}
			}
			if len(batch) > 0 {
				b.flush(batch)
			}
			return
		}
	}
}
