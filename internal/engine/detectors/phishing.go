package detectors

import (
	"context"
	"strings"

	"github.com/triage-ai/phishguard/internal/engine"
)

// phishingPatterns are matched as lowercase substrings, in order.
// The first match is the one reported.
var phishingPatterns = []string{
	"urgent",
	"password",
	"login",
	"click here",
	"verify",
	"bank",
	"account suspended",
}

// Patterns returns a copy of the phishing keyword list.
func Patterns() []string {
	out := make([]string, len(phishingPatterns))
	copy(out, phishingPatterns)
	return out
}

// PhishingDetector flags messages that contain a known phishing keyword.
type PhishingDetector struct{}

func NewPhishingDetector() *PhishingDetector {
	return &PhishingDetector{}
}

func (d *PhishingDetector) Name() string {
	return "phishing"
}

func (d *PhishingDetector) Detect(ctx context.Context, req *engine.DetectRequest) (*engine.DetectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	message := strings.ToLower(req.Message)

	for _, p := range phishingPatterns {
		if strings.Contains(message, p) {
			return &engine.DetectResult{
				Triggered: true,
				Pattern:   p,
				Details:   "matched pattern: " + p,
			}, nil
		}
	}

	return &engine.DetectResult{Triggered: false}, nil
}
