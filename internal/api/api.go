// Package api exposes the review engine over HTTP to polling clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joescharf/prd/internal/agents"
	"github.com/joescharf/prd/internal/models"
	"github.com/joescharf/prd/internal/orchestrator"
	"github.com/joescharf/prd/internal/store"
)

// defaultReviewTimeout bounds a background review run when no timeout is
// configured.
const defaultReviewTimeout = 2 * time.Minute

// Server provides the REST API handlers.
type Server struct {
	store         store.Store
	orch          *orchestrator.Orchestrator
	reviewTimeout time.Duration
}

// NewServer creates a new API server. A zero timeout selects the default.
func NewServer(s store.Store, o *orchestrator.Orchestrator, reviewTimeout time.Duration) *Server {
	if reviewTimeout <= 0 {
		reviewTimeout = defaultReviewTimeout
	}
	return &Server{store: s, orch: o, reviewTimeout: reviewTimeout}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/reviews", s.createReview)
	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)
	mux.HandleFunc("PUT /api/v1/reviews/{id}/issues/{issueID}/status", s.updateIssueStatus)

	mux.HandleFunc("GET /api/v1/agents", s.listAgents)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Reviews ---

type createReviewRequest struct {
	PRDText string   `json:"prd_text"`
	Agents  []string `json:"agents,omitempty"`
}

type createReviewResponse struct {
	ReviewID string `json:"review_id"`
}

// statusResponse is the polling snapshot returned for a review id.
type statusResponse struct {
	Status          models.ReviewStatus `json:"status"`
	Progress        float64             `json:"progress"`
	Phase           models.Phase        `json:"phase,omitempty"`
	PhaseMessage    string              `json:"phase_message,omitempty"`
	CompletedAgents []string            `json:"completed_agents"`
	Issues          []models.FinalIssue `json:"issues"`
	Error           string              `json:"error,omitempty"`
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PRDText == "" {
		writeError(w, http.StatusBadRequest, "prd_text is required")
		return
	}

	id, err := s.orch.CreateSession(r.Context(), req.PRDText, req.Agents)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Kickoff runs detached from the request; clients poll for progress.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.reviewTimeout)
		defer cancel()
		if err := s.orch.Kickoff(ctx, id); err != nil {
			slog.Warn("review kickoff failed", "review_id", id, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, createReviewResponse{ReviewID: id})
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.store.GetReview(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		// Virtual status per the polling contract: unknown ids are not an
		// HTTP error.
		writeJSON(w, http.StatusOK, statusResponse{Status: models.StatusNotFound})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:          sess.Status,
		Progress:        sess.Progress,
		Phase:           sess.Phase,
		PhaseMessage:    sess.PhaseMessage,
		CompletedAgents: sess.CompletedAgents,
		Issues:          sess.Issues,
		Error:           sess.Error,
	})
}

type reviewSummary struct {
	ReviewID   string              `json:"review_id"`
	CreatedAt  time.Time           `json:"created_at"`
	Status     models.ReviewStatus `json:"status"`
	Progress   float64             `json:"progress"`
	IssueCount int                 `json:"issue_count"`
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListReviews(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]reviewSummary, len(sessions))
	for i, sess := range sessions {
		out[i] = reviewSummary{
			ReviewID:   sess.ID,
			CreatedAt:  sess.CreatedAt,
			Status:     sess.Status,
			Progress:   sess.Progress,
			IssueCount: len(sess.Issues),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateIssueStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	issueID := r.PathValue("issueID")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	err := s.orch.UpdateIssueStatus(r.Context(), id, issueID, models.IssueStatus(req.Status))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "review not found")
	case strings.Contains(err.Error(), "issue not found"):
		writeError(w, http.StatusNotFound, err.Error())
	case strings.Contains(err.Error(), "invalid issue status"):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Agents ---

func (s *Server) listAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, agents.Catalog())
}
