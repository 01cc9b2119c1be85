package engine

import "errors"

// Validation errors shared by the transports.
var (
	ErrMessageRequired  = errors.New("message is required")
	ErrMessageNotString = errors.New("message must be a string")
)

// Reasons returned with every verdict. Clients match on these strings.
const (
	ReasonPhishing = "Phishing pattern detected"
	ReasonClean    = "No issues"
)

// Verdict is the outcome of a check.
type Verdict struct {
	Safe   bool
	Reason string
	// Pattern is the first pattern that matched. Empty when Safe.
	Pattern string
}

// Source identifies the transport a check arrived on.
type Source string

const (
	SourceHTTP Source = "http"
	SourceGRPC Source = "grpc"
)

// DetectorResult is the output from a single detector run within the engine.
type DetectorResult struct {
	Detector  string
	Triggered bool
	Pattern   string
	Details   string
}
