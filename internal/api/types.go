package api

import (
	"encoding/json"

	"github.com/triage-ai/phishguard/internal/engine"
)

// --- POST /detect request/response ---

// DetectRequest is the JSON body for POST /detect.
// Message stays raw so absent, null and non-string values can be told apart.
type DetectRequest struct {
	Message json.RawMessage `json:"message"`
}

// message validates and returns the message text.
func (r DetectRequest) message() (string, error) {
	if len(r.Message) == 0 || string(r.Message) == "null" {
		return "", engine.ErrMessageRequired
	}
	var s string
	if err := json.Unmarshal(r.Message, &s); err != nil {
		return "", engine.ErrMessageNotString
	}
	return s, nil
}

// DetectResponse is the JSON body returned by POST /detect.
type DetectResponse struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
