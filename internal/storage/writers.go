package storage

import "go.uber.org/zap"

// LogWriter is a fallback EventWriter for local development.
// It logs events as structured JSON to stdout via zap.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter that outputs events to the given logger.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(event *DetectionEvent) {
	w.logger.Info("detection_event",
		zap.String("request_id", event.RequestID),
		zap.String("source", event.Source),
		zap.Bool("safe", event.Safe),
		zap.String("reason", event.Reason),
		zap.String("pattern", event.Pattern),
		zap.Uint32("message_size", event.MessageSize),
		zap.String("message_hash", event.MessageHash),
		zap.Float32("latency_ms", event.LatencyMs),
		zap.String("message_preview", event.MessagePreview),
	)
}

func (w *LogWriter) Close() {}

// MultiWriter fans each event out to several writers.
type MultiWriter struct {
	writers []EventWriter
}

// NewMultiWriter returns a writer that forwards to all of ws.
func NewMultiWriter(ws ...EventWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

func (m *MultiWriter) Write(event *DetectionEvent) {
	for _, w := range m.writers {
		w.Write(event)
	}
}

// Close closes every writer in order.
func (m *MultiWriter) Close() {
	for _, w := range m.writers {
		w.Close()
	}
}
