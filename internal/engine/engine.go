package engine

import (
	"context"

	"go.uber.org/zap"
)

// Engine runs message detectors and aggregates their results into a verdict.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	detectors []Detector
	logger    *zap.Logger
}

// NewEngine creates an engine with the given detectors.
func NewEngine(detectors []Detector, logger *zap.Logger) *Engine {
	return &Engine{
		detectors: detectors,
		logger:    logger,
	}
}

// Evaluate runs every detector in order in the calling goroutine and returns
// one result per detector. A detector that errors is logged and reported as
// not triggered, so a broken detector never blocks a message. A cancelled or
// expired ctx aborts the run with ctx.Err(); no partial results are returned.
func (e *Engine) Evaluate(ctx context.Context, req *DetectRequest) ([]*DetectorResult, error) {
	results := make([]*DetectorResult, 0, len(e.detectors))

	for _, d := range e.detectors {
		res, err := d.Detect(ctx, req)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			e.logger.Warn("detector error",
				zap.String("detector", d.Name()),
				zap.Error(err),
			)
			results = append(results, &DetectorResult{
				Detector: d.Name(),
				Details:  "detector error: " + err.Error(),
			})
			continue
		}
		if res == nil {
			continue
		}
		results = append(results, &DetectorResult{
			Detector:  d.Name(),
			Triggered: res.Triggered,
			Pattern:   res.Pattern,
			Details:   res.Details,
		})
	}

	return results, nil
}

// Check evaluates a single message and returns the aggregated verdict.
// It fails only when ctx is done.
func (e *Engine) Check(ctx context.Context, message string) (Verdict, error) {
	results, err := e.Evaluate(ctx, &DetectRequest{Message: message})
	if err != nil {
		return Verdict{}, err
	}
	return Aggregate(results), nil
}
