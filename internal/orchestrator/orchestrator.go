// Package orchestrator owns review sessions end to end: creation,
// concurrent specialist dispatch, progress bookkeeping, and final
// aggregation.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/prd/internal/aggregate"
	"github.com/joescharf/prd/internal/agents"
	"github.com/joescharf/prd/internal/models"
	"github.com/joescharf/prd/internal/progress"
	"github.com/joescharf/prd/internal/store"
)

// Options configures an orchestrator.
type Options struct {
	// DefaultAgents is the panel used when a request selects none.
	// Empty means the full catalog.
	DefaultAgents []string

	// MaxIssuesPerAgent caps each specialist's contribution. Zero means
	// unlimited.
	MaxIssuesPerAgent int
}

// Orchestrator drives review sessions against a store and a specialist
// registry. Exactly one Kickoff goroutine writes to a given session.
type Orchestrator struct {
	store    store.Store
	registry *agents.Registry
	opts     Options

	// replaceable for failure-path tests
	aggregateFn func(string, []aggregate.AgentResult, aggregate.Options) ([]models.FinalIssue, error)
}

// New creates an orchestrator.
func New(st store.Store, reg *agents.Registry, opts Options) *Orchestrator {
	return &Orchestrator{
		store:       st,
		registry:    reg,
		opts:        opts,
		aggregateFn: aggregate.Aggregate,
	}
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// CreateSession allocates a fresh review session and returns its id. No
// specialist work starts until Kickoff.
func (o *Orchestrator) CreateSession(ctx context.Context, documentText string, selected []string) (string, error) {
	if documentText == "" {
		return "", fmt.Errorf("document text is required")
	}

	selection := selected
	if len(selection) == 0 {
		selection = o.opts.DefaultAgents
	}
	expected, err := agents.ValidateSelection(selection)
	if err != nil {
		return "", err
	}

	sess := &models.ReviewSession{
		ID:             newULID(),
		CreatedAt:      time.Now().UTC(),
		DocumentText:   documentText,
		ExpectedAgents: expected,
		Phase:          models.PhaseProcessing,
		PhaseMessage:   "specialist review in progress",
		Status:         models.StatusProcessing,
	}
	if err := o.store.CreateReview(ctx, sess); err != nil {
		return "", fmt.Errorf("create review: %w", err)
	}
	return sess.ID, nil
}

// GetSession returns a read-only snapshot of the session.
func (o *Orchestrator) GetSession(ctx context.Context, id string) (*models.ReviewSession, error) {
	return o.store.GetReview(ctx, id)
}

// completion is one specialist's settled dispatch.
type completion struct {
	agentKey string
	items    []models.RawIssueItem
	err      error
}

// Kickoff fans the session's document out to every expected specialist,
// drains their completion signals into the progress state machine as they
// arrive, and aggregates once all have settled. Individual specialist
// failures are tolerated (that specialist contributes nothing); a
// cancelled or expired ctx, or an aggregation failure, fails the whole
// session. Kickoff is an idempotent no-op once the session has issues or
// reached a terminal state.
func (o *Orchestrator) Kickoff(ctx context.Context, id string) (err error) {
	sess, err := o.store.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if sess.Issues != nil || sess.Status.Terminal() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("review panicked: %v", r)
			o.fail(id, err)
		}
	}()

	collected, err := o.dispatch(ctx, sess)
	if err != nil {
		o.fail(id, err)
		return err
	}

	results := make([]aggregate.AgentResult, 0, len(sess.ExpectedAgents))
	for _, key := range sess.ExpectedAgents {
		results = append(results, aggregate.AgentResult{
			AgentKey:  key,
			AgentName: agents.DisplayName(key),
			Items:     collected[key],
		})
	}

	issues, err := o.aggregateFn(sess.DocumentText, results, aggregate.Options{
		MaxIssuesPerAgent: o.opts.MaxIssuesPerAgent,
	})
	if err != nil {
		err = fmt.Errorf("aggregate issues: %w", err)
		o.fail(id, err)
		return err
	}

	if err := o.store.MutateReview(ctx, id, func(s *models.ReviewSession) {
		progress.Complete(s, issues)
	}); err != nil {
		return fmt.Errorf("complete review: %w", err)
	}

	slog.Info("review completed", "review_id", id, "issues", len(issues))
	return nil
}

// dispatch runs every expected specialist concurrently and feeds their
// completion signals through the progress tracker in arrival order.
func (o *Orchestrator) dispatch(ctx context.Context, sess *models.ReviewSession) (map[string][]models.RawIssueItem, error) {
	signals := make(chan completion, len(sess.ExpectedAgents))

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range sess.ExpectedAgents {
		g.Go(func() error {
			sp, ok := o.registry.Get(key)
			if !ok {
				signals <- completion{agentKey: key, err: fmt.Errorf("no specialist registered for %s", key)}
				return nil
			}
			items, err := sp.ReviewDocument(gctx, sess.DocumentText)
			signals <- completion{agentKey: key, items: items, err: err}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(signals)
	}()

	collected := make(map[string][]models.RawIssueItem, len(sess.ExpectedAgents))
	for sig := range signals {
		if sig.err != nil {
			slog.Warn("specialist failed", "review_id", sess.ID, "agent", sig.agentKey, "error", sig.err)
		} else {
			collected[sig.agentKey] = sig.items
		}
		if err := o.store.MutateReview(ctx, sess.ID, func(s *models.ReviewSession) {
			progress.RecordCompletion(s, sig.agentKey)
		}); err != nil {
			return nil, fmt.Errorf("record completion: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("review cancelled: %w", err)
	}
	return collected, nil
}

// fail writes the terminal failed state; best-effort, the original error
// is what callers see.
func (o *Orchestrator) fail(id string, cause error) {
	if err := o.store.MutateReview(context.Background(), id, func(s *models.ReviewSession) {
		progress.Fail(s, cause)
	}); err != nil {
		slog.Warn("failed to mark review failed", "review_id", id, "error", err)
	}
}

// UpdateIssueStatus mutates the workflow tag of a single final issue.
func (o *Orchestrator) UpdateIssueStatus(ctx context.Context, id, issueID string, status models.IssueStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid issue status: %s", status)
	}

	found := false
	err := o.store.MutateReview(ctx, id, func(s *models.ReviewSession) {
		for i := range s.Issues {
			if s.Issues[i].IssueID == issueID {
				s.Issues[i].Status = status
				found = true
				return
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("issue not found: %s", issueID)
	}
	return nil
}
