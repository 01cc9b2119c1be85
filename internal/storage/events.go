package storage

import (
	"encoding/hex"
	"math"
	"time"

	"github.com/triage-ai/phishguard/internal/engine"
	"golang.org/x/crypto/blake2b"
)

// EventWriter is the interface for recording detection events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *DetectionEvent)
	Close()
}

// DetectionEvent represents a single check result to be persisted.
type DetectionEvent struct {
	RequestID      string
	Timestamp      time.Time
	Source         string // "http" or "grpc"
	MessagePreview string // First 500 runes
	MessageHash    string // BLAKE2b-256 of full message, hex
	MessageSize    uint32
	Safe           bool
	Reason         string
	Pattern        string
	LatencyMs      float32
}

// MessagePreviewLength is the max runes stored in message_preview.
const MessagePreviewLength = 500

// NewDetectionEvent builds the event recorded for one check.
func NewDetectionEvent(requestID string, source engine.Source, message string, v engine.Verdict, latency time.Duration) *DetectionEvent {
	return &DetectionEvent{
		RequestID:      requestID,
		Timestamp:      time.Now().UTC(),
		Source:         string(source),
		MessagePreview: TruncateMessage(message, MessagePreviewLength),
		MessageHash:    Fingerprint(message),
		MessageSize:    clampSize(int64(len(message))),
		Safe:           v.Safe,
		Reason:         v.Reason,
		Pattern:        v.Pattern,
		LatencyMs:      float32(float64(latency) / float64(time.Millisecond)),
	}
}

// clampSize fits a byte count into the uint32 message_size column,
// saturating at math.MaxUint32.
func clampSize(n int64) uint32 {
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// TruncateMessage returns the first N characters (runes) of a message for
// preview storage. It never splits a multi-byte UTF-8 character.
func TruncateMessage(message string, maxLen int) string {
	runes := []rune(message)
	if len(runes) <= maxLen {
		return message
	}
	return string(runes[:maxLen])
}

// Fingerprint returns the hex BLAKE2b-256 digest of a message.
func Fingerprint(message string) string {
	sum := blake2b.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}
