package models

import "strings"

// Severity is the normalized importance level of a review issue.
type Severity string

const (
	SeverityHigh Severity = "High"
	SeverityMid  Severity = "Mid"
	SeverityLow  Severity = "Low"
)

// NormalizeSeverity maps a specialist's free-form severity label onto the
// three-level scale. Unrecognized or empty labels fall back to Mid so an
// otherwise valid issue is never dropped over an odd label.
func NormalizeSeverity(label string) Severity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high", "major", "critical", "severe":
		return SeverityHigh
	case "mid", "medium", "moderate":
		return SeverityMid
	case "low", "minor", "trivial":
		return SeverityLow
	default:
		return SeverityMid
	}
}

// Rank returns a sort key (lower = more severe).
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMid:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}
