package progress

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/prd/internal/agents"
	"github.com/joescharf/prd/internal/models"
)

func newSession(expected ...string) *models.ReviewSession {
	return &models.ReviewSession{
		ID:             "rev-1",
		CreatedAt:      time.Now().UTC(),
		DocumentText:   "doc",
		ExpectedAgents: expected,
		Phase:          models.PhaseProcessing,
		Status:         models.StatusProcessing,
	}
}

func TestRecordCompletion_FourAgentsOneAtATime(t *testing.T) {
	s := newSession(agents.EngineerKey, agents.UXKey, agents.QAKey, agents.PMKey)

	steps := []struct {
		agent        string
		wantProgress float64
		wantPhase    models.Phase
	}{
		{agents.QAKey, 0.25, models.PhaseProcessing},
		{agents.EngineerKey, 0.5, models.PhaseProcessing},
		{agents.PMKey, 0.75, models.PhaseProcessing},
		{agents.UXKey, 1.0, models.PhaseAggregating},
	}
	for _, step := range steps {
		require.True(t, RecordCompletion(s, step.agent))
		assert.InDelta(t, step.wantProgress, s.Progress, 1e-9)
		assert.Equal(t, step.wantPhase, s.Phase)
	}
	assert.ElementsMatch(t, s.ExpectedAgents, s.CompletedAgents)
}

func TestRecordCompletion_Idempotent(t *testing.T) {
	s := newSession(agents.EngineerKey, agents.QAKey)

	require.True(t, RecordCompletion(s, agents.EngineerKey))
	progress := s.Progress
	completed := append([]string(nil), s.CompletedAgents...)

	assert.False(t, RecordCompletion(s, agents.EngineerKey))
	assert.Equal(t, progress, s.Progress)
	assert.Equal(t, completed, s.CompletedAgents)
}

func TestRecordCompletion_ForeignSignalIgnored(t *testing.T) {
	s := newSession(agents.EngineerKey)

	assert.False(t, RecordCompletion(s, "intruder"))
	assert.Empty(t, s.CompletedAgents)
	assert.Zero(t, s.Progress)
	assert.Equal(t, models.PhaseProcessing, s.Phase)
}

func TestRecordCompletion_MonotonicUnderAnyOrder(t *testing.T) {
	s := newSession(agents.EngineerKey, agents.UXKey, agents.QAKey, agents.PMKey)

	signals := []string{
		agents.PMKey, agents.PMKey, "stray", agents.UXKey,
		agents.EngineerKey, agents.UXKey, agents.QAKey, "stray",
	}
	last := 0.0
	for _, sig := range signals {
		RecordCompletion(s, sig)
		assert.GreaterOrEqual(t, s.Progress, last)
		assert.LessOrEqual(t, s.Progress, 1.0)
		last = s.Progress
	}
	assert.InDelta(t, 1.0, s.Progress, 1e-9)
}

func TestRecordCompletion_IgnoredAfterTerminal(t *testing.T) {
	s := newSession(agents.EngineerKey, agents.QAKey)
	Fail(s, errors.New("boom"))

	assert.False(t, RecordCompletion(s, agents.EngineerKey))
	assert.Empty(t, s.CompletedAgents)
}

func TestRecordCompletion_PhaseMessageNamesAgent(t *testing.T) {
	s := newSession(agents.EngineerKey, agents.QAKey)

	RecordCompletion(s, agents.EngineerKey)
	assert.Equal(t, "Engineer Specialist finished (1/2)", s.PhaseMessage)
}

func TestComplete_FoldsMissingSignals(t *testing.T) {
	s := newSession(agents.EngineerKey, agents.UXKey, agents.QAKey)
	RecordCompletion(s, agents.UXKey)

	issues := []models.FinalIssue{{IssueID: "i1", Priority: 1}}
	Complete(s, issues)

	assert.ElementsMatch(t, s.ExpectedAgents, s.CompletedAgents)
	assert.InDelta(t, 1.0, s.Progress, 1e-9)
	assert.Equal(t, models.PhaseCompleted, s.Phase)
	assert.Equal(t, models.StatusCompleted, s.Status)
	assert.Equal(t, issues, s.Issues)
	assert.Equal(t, "review complete", s.PhaseMessage)
}

func TestFail(t *testing.T) {
	s := newSession(agents.EngineerKey)
	Fail(s, fmt.Errorf("aggregate issues: %w", errors.New("unexpected payload")))

	assert.Equal(t, models.PhaseFailed, s.Phase)
	assert.Equal(t, models.StatusFailed, s.Status)
	assert.Equal(t, "aggregate issues: unexpected payload", s.Error)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "unknown error", Summarize(nil))
	assert.Equal(t, "first line", Summarize(errors.New("first line\nsecond line")))

	long := errors.New(strings.Repeat("x", 500))
	assert.Len(t, Summarize(long), 200)
}
