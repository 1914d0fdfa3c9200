// Package mcp exposes the review engine as MCP tools over stdio so
// assistants can start reviews and poll their results.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/prd/internal/agents"
	"github.com/joescharf/prd/internal/models"
	"github.com/joescharf/prd/internal/orchestrator"
	"github.com/joescharf/prd/internal/store"
)

// Server wraps the review engine and exposes it as MCP tools.
type Server struct {
	store         store.Store
	orch          *orchestrator.Orchestrator
	reviewTimeout time.Duration
}

// NewServer creates the MCP server wrapper. A zero timeout disables the
// per-review deadline.
func NewServer(s store.Store, o *orchestrator.Orchestrator, reviewTimeout time.Duration) *Server {
	return &Server{store: s, orch: o, reviewTimeout: reviewTimeout}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("prd", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.startReviewTool())
	srv.AddTool(s.getReviewTool())
	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.updateIssueStatusTool())
	srv.AddTool(s.listAgentsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// prd_start_review
func (s *Server) startReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("prd_start_review",
		mcp.WithDescription("Start an asynchronous PRD review by a panel of specialist reviewers. Returns a review_id to poll with prd_get_review."),
		mcp.WithString("prd_text", mcp.Required(), mcp.Description("Full text of the PRD to review")),
		mcp.WithString("agents", mcp.Description("Comma-separated specialist keys to run; empty runs the full panel")),
	)
	return tool, s.handleStartReview
}

func (s *Server) handleStartReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prdText, err := request.RequireString("prd_text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: prd_text"), nil
	}

	selected := splitCSV(request.GetString("agents", ""))

	id, err := s.orch.CreateSession(ctx, prdText, selected)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start review: %v", err)), nil
	}

	go func() {
		runCtx := context.Background()
		if s.reviewTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, s.reviewTimeout)
			defer cancel()
		}
		if err := s.orch.Kickoff(runCtx, id); err != nil {
			slog.Warn("review kickoff failed", "review_id", id, "error", err)
		}
	}()

	data, err := json.Marshal(map[string]string{"review_id": id})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// prd_get_review
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("prd_get_review",
		mcp.WithDescription("Get the status of a review: progress, phase, and once completed the prioritized issue list."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review id returned by prd_start_review")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}

	sess, err := s.store.GetReview(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		data, _ := json.Marshal(map[string]any{"status": models.StatusNotFound})
		return mcp.NewToolResultText(string(data)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load review: %v", err)), nil
	}

	result := map[string]any{
		"status":           sess.Status,
		"progress":         sess.Progress,
		"phase":            sess.Phase,
		"phase_message":    sess.PhaseMessage,
		"completed_agents": sess.CompletedAgents,
		"issues":           sess.Issues,
	}
	if sess.Error != "" {
		result["error"] = sess.Error
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal review: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// prd_list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("prd_list_reviews",
		mcp.WithDescription("List past and running reviews, newest first. Returns review_id, created_at, status, progress, and issue count."),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.store.ListReviews(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	type reviewOut struct {
		ReviewID   string              `json:"review_id"`
		CreatedAt  time.Time           `json:"created_at"`
		Status     models.ReviewStatus `json:"status"`
		Progress   float64             `json:"progress"`
		IssueCount int                 `json:"issue_count"`
	}

	out := make([]reviewOut, len(sessions))
	for i, sess := range sessions {
		out[i] = reviewOut{
			ReviewID:   sess.ID,
			CreatedAt:  sess.CreatedAt,
			Status:     sess.Status,
			Progress:   sess.Progress,
			IssueCount: len(sess.Issues),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reviews: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// prd_update_issue_status
func (s *Server) updateIssueStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("prd_update_issue_status",
		mcp.WithDescription("Update the workflow status of a single review issue. Valid statuses: pending, done, later."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review id")),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue id within the review")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status: pending, done, or later")),
	)
	return tool, s.handleUpdateIssueStatus
}

func (s *Server) handleUpdateIssueStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reviewID, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}
	issueID, err := request.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	if err := s.orch.UpdateIssueStatus(ctx, reviewID, issueID, models.IssueStatus(status)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update issue: %v", err)), nil
	}

	data, _ := json.Marshal(map[string]string{"status": "success"})
	return mcp.NewToolResultText(string(data)), nil
}

// prd_list_agents
func (s *Server) listAgentsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("prd_list_agents",
		mcp.WithDescription("List the available specialist reviewers with their keys, names, and focus areas."),
	)
	return tool, s.handleListAgents
}

func (s *Server) handleListAgents(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(agents.Catalog())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal agents: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
