package asset

// Severity is the three-level rating attached to a capability block.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Thresholds for mapping an AI-generation confidence (0-100) to a severity.
// Both boundaries are inclusive.
const (
	aiErrorThreshold   = 80
	aiWarningThreshold = 45
)

const (
	LabelLikelyAI        = "Likely AI-generated"
	LabelPossibleManip   = "Possible Manipulation"
	LabelLikelyAuthentic = "Likely Authentic"
)

// VerdictFor maps a 0-100 AI-generation confidence to a severity and a
// human-readable label.
func VerdictFor(confidence float64) (Severity, string) {
	switch {
	case confidence >= aiErrorThreshold:
		return SeverityError, LabelLikelyAI
	case confidence >= aiWarningThreshold:
		return SeverityWarning, LabelPossibleManip
	default:
		return SeverityInfo, LabelLikelyAuthentic
	}
}
