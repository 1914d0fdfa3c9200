package models

import (
	"slices"
	"time"
)

// Phase is the coarse lifecycle marker of a review session, used for
// progress messaging. It is distinct from Status.
type Phase string

const (
	PhaseProcessing  Phase = "processing"
	PhaseAggregating Phase = "aggregating"
	PhaseCompleted   Phase = "completed"
	PhaseFailed      Phase = "failed"
)

// ReviewStatus is the terminal-oriented state a polling client sees.
// StatusNotFound is virtual: it is returned for unknown ids, never stored.
type ReviewStatus string

const (
	StatusProcessing ReviewStatus = "processing"
	StatusCompleted  ReviewStatus = "completed"
	StatusFailed     ReviewStatus = "failed"
	StatusNotFound   ReviewStatus = "not_found"
)

// Terminal reports whether the status is an end state.
func (s ReviewStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ReviewSession is one PRD review run. It is created once, mutated only by
// the orchestrator that owns it, and becomes immutable once Status is
// terminal (the per-issue workflow tag is the one post-hoc exception).
type ReviewSession struct {
	ID              string       `json:"review_id"`
	CreatedAt       time.Time    `json:"created_at"`
	DocumentText    string       `json:"-"`
	ExpectedAgents  []string     `json:"expected_agents"`
	CompletedAgents []string     `json:"completed_agents"`
	Progress        float64      `json:"progress"`
	Phase           Phase        `json:"phase"`
	PhaseMessage    string       `json:"phase_message"`
	Status          ReviewStatus `json:"status"`
	Issues          []FinalIssue `json:"issues"`
	Error           string       `json:"error,omitempty"`
}

// Clone returns a deep copy suitable for handing to concurrent readers.
func (s *ReviewSession) Clone() *ReviewSession {
	out := *s
	out.ExpectedAgents = slices.Clone(s.ExpectedAgents)
	out.CompletedAgents = slices.Clone(s.CompletedAgents)
	out.Issues = slices.Clone(s.Issues)
	return &out
}
