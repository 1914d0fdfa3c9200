package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/prd/internal/models"
)

func newTestSession(id string) *models.ReviewSession {
	return &models.ReviewSession{
		ID:             id,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		DocumentText:   "The PRD under review.",
		ExpectedAgents: []string{"engineer_specialist", "qa_tester_specialist"},
		Phase:          models.PhaseProcessing,
		Status:         models.StatusProcessing,
	}
}

// both implementations must satisfy the same behavior
func stores(t *testing.T) map[string]Store {
	t.Helper()

	dir := t.TempDir()
	sq, err := NewSQLiteStore(filepath.Join(dir, "prd.db"))
	require.NoError(t, err)
	require.NoError(t, sq.Migrate(context.Background()))
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.CreateReview(ctx, newTestSession("rev-1")))

			got, err := s.GetReview(ctx, "rev-1")
			require.NoError(t, err)
			assert.Equal(t, "rev-1", got.ID)
			assert.Equal(t, "The PRD under review.", got.DocumentText)
			assert.Equal(t, []string{"engineer_specialist", "qa_tester_specialist"}, got.ExpectedAgents)
			assert.Equal(t, models.StatusProcessing, got.Status)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetReview(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Mutate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.CreateReview(ctx, newTestSession("rev-1")))

			err := s.MutateReview(ctx, "rev-1", func(sess *models.ReviewSession) {
				sess.CompletedAgents = append(sess.CompletedAgents, "engineer_specialist")
				sess.Progress = 0.5
				sess.PhaseMessage = "Engineer Specialist finished (1/2)"
			})
			require.NoError(t, err)

			got, err := s.GetReview(ctx, "rev-1")
			require.NoError(t, err)
			assert.Equal(t, []string{"engineer_specialist"}, got.CompletedAgents)
			assert.InDelta(t, 0.5, got.Progress, 1e-9)

			assert.ErrorIs(t, s.MutateReview(ctx, "missing", func(*models.ReviewSession) {}), ErrNotFound)
		})
	}
}

func TestStore_MutateStoresIssues(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.CreateReview(ctx, newTestSession("rev-1")))

			issues := []models.FinalIssue{
				{
					IssueID:      "iss-1",
					Priority:     1,
					AgentName:    "Engineer Specialist",
					Severity:     models.SeverityHigh,
					Summary:      "Missing limit.",
					Comment:      "Missing limit. Add one.",
					OriginalText: "PRD under review",
					Span:         &models.Span{StartIndex: 4, EndIndex: 20},
					Status:       models.IssueStatusPending,
				},
			}
			require.NoError(t, s.MutateReview(ctx, "rev-1", func(sess *models.ReviewSession) {
				sess.Issues = issues
				sess.Status = models.StatusCompleted
				sess.Phase = models.PhaseCompleted
				sess.Progress = 1.0
			}))

			got, err := s.GetReview(ctx, "rev-1")
			require.NoError(t, err)
			require.Len(t, got.Issues, 1)
			assert.Equal(t, issues[0], got.Issues[0])
			assert.Equal(t, models.StatusCompleted, got.Status)
		})
	}
}

func TestStore_DuplicateCreate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.CreateReview(ctx, newTestSession("rev-1")))
			assert.Error(t, s.CreateReview(ctx, newTestSession("rev-1")))
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			older := newTestSession("rev-old")
			older.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
			newer := newTestSession("rev-new")

			require.NoError(t, s.CreateReview(ctx, older))
			require.NoError(t, s.CreateReview(ctx, newer))

			list, err := s.ListReviews(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "rev-new", list[0].ID)
			assert.Equal(t, "rev-old", list[1].ID)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.CreateReview(ctx, newTestSession("rev-1")))
			require.NoError(t, s.DeleteReview(ctx, "rev-1"))

			_, err := s.GetReview(ctx, "rev-1")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.DeleteReview(ctx, "rev-1"), ErrNotFound)
		})
	}
}

func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateReview(ctx, newTestSession("rev-1")))

	snap, err := s.GetReview(ctx, "rev-1")
	require.NoError(t, err)
	snap.CompletedAgents = append(snap.CompletedAgents, "tampered")
	snap.Progress = 0.9

	fresh, err := s.GetReview(ctx, "rev-1")
	require.NoError(t, err)
	assert.Empty(t, fresh.CompletedAgents)
	assert.Zero(t, fresh.Progress)
}
