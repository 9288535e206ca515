package resolver

import "modelmap/internal/ir"

// calibrate assigns a confidence score to a resolved reference. Scores
// reflect how specific the matching signal is: a field type naming a
// model is stronger evidence than a bare call-site identifier, and an
// ambiguous match is penalized rather than discarded.
func calibrate(kind ir.ReferenceKind, ambiguous bool) float64 {
	base := baseConfidence(kind)
	if ambiguous {
		base -= 0.2
	}
	return clamp(base, 0.1, 0.99)
}

func baseConfidence(kind ir.ReferenceKind) float64 {
	switch kind {
	case ir.RefEmbeds:
		return 0.8
	case ir.RefReturns:
		return 0.75
	case ir.RefCalls:
		return 0.65
	case ir.RefReferencesByID:
		return 0.6
	default:
		return 0.5
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
