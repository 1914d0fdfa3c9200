package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/prd/internal/models"
	"github.com/joescharf/prd/internal/store"
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "List and inspect past reviews",
	Long: `Manage review history.

Running bare 'prd reviews' is the same as 'prd reviews list'. History
persists across runs only when db_path is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun(cmd)
	},
}

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviews, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun(cmd)
	},
}

var reviewsShowCmd = &cobra.Command{
	Use:   "show <review-id>",
	Short: "Show one review with its issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsShowRun(cmd, args[0])
	},
}

var reviewsDeleteCmd = &cobra.Command{
	Use:   "delete <review-id>",
	Short: "Delete a review from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsDeleteRun(cmd, args[0])
	},
}

func init() {
	reviewsCmd.AddCommand(reviewsListCmd)
	reviewsCmd.AddCommand(reviewsShowCmd)
	reviewsCmd.AddCommand(reviewsDeleteCmd)
	rootCmd.AddCommand(reviewsCmd)
}

func reviewsListRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sessions, err := s.ListReviews(cmd.Context())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("no reviews found")
		return nil
	}

	table := ui.Table([]string{"Review ID", "Created", "Status", "Progress", "Issues"})
	for _, sess := range sessions {
		table.Append([]string{
			sess.ID,
			sess.CreatedAt.Local().Format(time.DateTime),
			string(sess.Status),
			fmt.Sprintf("%.0f%%", sess.Progress*100),
			fmt.Sprintf("%d", len(sess.Issues)),
		})
	}
	return table.Render()
}

func reviewsShowRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sess, err := s.GetReview(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("review not found: %s", id)
	}
	if err != nil {
		return err
	}

	ui.Info("Review %s: %s (%.0f%%)", sess.ID, sess.Status, sess.Progress*100)
	if sess.Status == models.StatusFailed {
		ui.Error("%s", sess.Error)
		return nil
	}
	if !sess.Status.Terminal() {
		ui.Info("%s", sess.PhaseMessage)
		return nil
	}

	if err := ui.RenderIssues(sess.Issues); err != nil {
		return err
	}
	if verbose {
		for _, issue := range sess.Issues {
			ui.RenderIssueDetail(issue)
		}
	}
	return nil
}

func reviewsDeleteRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if err := s.DeleteReview(cmd.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("review not found: %s", id)
		}
		return err
	}
	ui.Success("Review deleted: %s", id)
	return nil
}
