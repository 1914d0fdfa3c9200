// Package progress implements the completion state machine for a review
// session: processing -> aggregating -> completed, with failed reachable
// from anywhere.
package progress

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joescharf/prd/internal/agents"
	"github.com/joescharf/prd/internal/models"
)

// maxErrorLen bounds the human-readable error stored on a failed session.
const maxErrorLen = 200

// RecordCompletion applies one "agent finished" signal to the session and
// reports whether any state changed. Signals for foreign agents and
// duplicate signals are no-ops, so delivery order and redelivery never
// matter. When the last expected agent lands, the session moves to the
// aggregating phase.
func RecordCompletion(s *models.ReviewSession, agentKey string) bool {
	if s.Status.Terminal() {
		return false
	}
	if !slices.Contains(s.ExpectedAgents, agentKey) {
		return false
	}
	if slices.Contains(s.CompletedAgents, agentKey) {
		return false
	}

	s.CompletedAgents = append(s.CompletedAgents, agentKey)
	s.Progress = float64(len(s.CompletedAgents)) / float64(len(s.ExpectedAgents))
	s.PhaseMessage = fmt.Sprintf("%s finished (%d/%d)",
		agents.DisplayName(agentKey), len(s.CompletedAgents), len(s.ExpectedAgents))

	if s.Progress >= 1.0 && s.Phase != models.PhaseCompleted {
		s.Phase = models.PhaseAggregating
		s.PhaseMessage = "merging specialist findings"
	}
	return true
}

// Complete records a successful aggregation. Any expected agents whose
// individual signals were lost are folded into the completed list so the
// terminal state always reads fully complete.
func Complete(s *models.ReviewSession, issues []models.FinalIssue) {
	for _, key := range s.ExpectedAgents {
		if !slices.Contains(s.CompletedAgents, key) {
			s.CompletedAgents = append(s.CompletedAgents, key)
		}
	}
	s.Progress = 1.0
	s.Issues = issues
	s.Phase = models.PhaseCompleted
	s.Status = models.StatusCompleted
	s.PhaseMessage = "review complete"
}

// Fail moves the session to the failed terminal state with a concise
// message extracted from err.
func Fail(s *models.ReviewSession, err error) {
	s.Phase = models.PhaseFailed
	s.Status = models.StatusFailed
	s.PhaseMessage = "review failed"
	s.Error = Summarize(err)
}

// Summarize reduces err to its first line, capped at maxErrorLen runes.
func Summarize(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	runes := []rune(msg)
	if len(runes) > maxErrorLen {
		msg = string(runes[:maxErrorLen])
	}
	return msg
}
