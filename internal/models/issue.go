package models

// IssueStatus is the workflow tag a client attaches to a final issue.
type IssueStatus string

const (
	IssueStatusPending IssueStatus = "pending"
	IssueStatusDone    IssueStatus = "done"
	IssueStatusLater   IssueStatus = "later"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusPending, IssueStatusDone, IssueStatusLater:
		return true
	}
	return false
}

// Span is a half-open [StartIndex, EndIndex) byte range into the PRD text.
type Span struct {
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// RawIssueItem is a single finding as produced by a specialist, before
// validation and normalization. Severity is free-form vocabulary; only
// Comment is required.
type RawIssueItem struct {
	Severity     string `json:"severity"`
	Summary      string `json:"summary,omitempty"`
	Comment      string `json:"comment"`
	OriginalText string `json:"original_text"`
	Priority     int    `json:"priority,omitempty"`
}

// FinalIssue is an aggregated, prioritized finding stored on the session.
// Priority values are contiguous 1-based ranks across the whole session.
type FinalIssue struct {
	IssueID      string      `json:"issue_id"`
	Priority     int         `json:"priority"`
	AgentName    string      `json:"agent_name"`
	Severity     Severity    `json:"severity"`
	Summary      string      `json:"summary"`
	Comment      string      `json:"comment"`
	OriginalText string      `json:"original_text"`
	Span         *Span       `json:"span,omitempty"`
	Status       IssueStatus `json:"status"`
}
