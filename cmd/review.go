package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/prd/internal/models"
	"github.com/joescharf/prd/internal/store"
)

var (
	reviewAgents string
	reviewMock   bool
	reviewJSON   bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Review a PRD file and print the prioritized issue list",
	Long: `Run the full specialist panel over a PRD file and print the
merged, prioritized issue list once every reviewer has finished.

Pass --agents to run a subset of the panel, --mock to use canned
specialists instead of the LLM (useful for trying the tool without an
API key), and --json for machine-readable output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringVar(&reviewAgents, "agents", "", "Comma-separated specialist keys (default: full panel)")
	reviewCmd.Flags().BoolVar(&reviewMock, "mock", false, "Use canned specialists instead of the LLM")
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "Output issues as JSON")
}

func reviewRun(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	orch, s, err := getOrchestrator(reviewMock)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, viper.GetDuration("review.timeout"))
	defer cancel()

	id, err := orch.CreateSession(ctx, string(data), splitAgents(reviewAgents))
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- orch.Kickoff(ctx, id)
	}()

	sess, err := waitForReview(ctx, s, id, done)
	if err != nil {
		return err
	}

	if sess.Status == models.StatusFailed {
		return fmt.Errorf("review failed: %s", sess.Error)
	}

	if reviewJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess.Issues)
	}

	ui.Success("Review complete: %d issues", len(sess.Issues))
	if err := ui.RenderIssues(sess.Issues); err != nil {
		return err
	}
	if verbose {
		fmt.Fprintln(ui.Out)
		for _, issue := range sess.Issues {
			ui.RenderIssueDetail(issue)
		}
	}
	return nil
}

// waitForReview polls the store for progress while the review runs,
// echoing phase changes, and returns the terminal session.
func waitForReview(ctx context.Context, s store.Store, id string, done <-chan error) (*models.ReviewSession, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	lastMessage := ""
	finished := false
	for {
		select {
		case err := <-done:
			if err != nil {
				return nil, err
			}
			finished = true
			done = nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		sess, err := s.GetReview(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("review vanished: %s", id)
			}
			return nil, err
		}

		if sess.PhaseMessage != "" && sess.PhaseMessage != lastMessage {
			lastMessage = sess.PhaseMessage
			ui.Progress(sess.Progress, sess.PhaseMessage)
		}

		if sess.Status.Terminal() {
			return sess, nil
		}
		if finished {
			return sess, nil
		}
	}
}
