package engine

import (
	"context"
)

// Detector is the interface every message detector must implement.
// Implementations must respect context cancellation and return quickly.
type Detector interface {
	// Name returns the detector's unique identifier (e.g., "phishing").
	Name() string

	// Detect runs the detection logic against the given request.
	// Return early if ctx is cancelled.
	Detect(ctx context.Context, req *DetectRequest) (*DetectResult, error)
}

// DetectRequest contains the message for a detection run.
type DetectRequest struct {
	Message string
}

// DetectResult is the outcome of a single detector run.
type DetectResult struct {
	Triggered bool
	Pattern   string // matched pattern, empty unless Triggered
	Details   string
}
