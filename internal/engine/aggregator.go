package engine

// Aggregate folds detector results into a verdict.
//
// Rules:
//  1. If ANY detector has Triggered=true → unsafe, ReasonPhishing, first matched pattern
//  2. Otherwise → safe, ReasonClean
func Aggregate(results []*DetectorResult) Verdict {
	for _, r := range results {
		if r == nil || !r.Triggered {
			continue
		}
		return Verdict{
			Safe:    false,
			Reason:  ReasonPhishing,
			Pattern: r.Pattern,
		}
	}

	return Verdict{
		Safe:   true,
		Reason: ReasonClean,
	}
}
