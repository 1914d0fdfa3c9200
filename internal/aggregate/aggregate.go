// Package aggregate merges heterogeneous specialist outputs into a single
// ranked, span-annotated issue list.
package aggregate

import (
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/prd/internal/models"
	"github.com/joescharf/prd/internal/textspan"
)

// summaryDisplayLen caps a summary derived from quoted text.
const summaryDisplayLen = 80

// AgentResult is one specialist's raw output, in dispatch order.
type AgentResult struct {
	AgentKey  string
	AgentName string
	Items     []models.RawIssueItem
}

// Options tunes aggregation.
type Options struct {
	// MaxIssuesPerAgent caps each specialist's contribution before
	// ranking. Zero means unlimited.
	MaxIssuesPerAgent int
}

// Aggregate validates, normalizes, locates, and ranks the raw items from
// every specialist into the session's final issue list. Invalid items are
// dropped with a warning; they never abort the remaining work. Priorities
// come out as the contiguous integers 1..n, High before Mid before Low,
// ties in arrival order.
func Aggregate(documentText string, results []AgentResult, opts Options) ([]models.FinalIssue, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)

	var issues []models.FinalIssue
	for _, res := range results {
		items := res.Items
		if opts.MaxIssuesPerAgent > 0 && len(items) > opts.MaxIssuesPerAgent {
			slog.Warn("capping specialist output",
				"agent", res.AgentKey, "items", len(items), "cap", opts.MaxIssuesPerAgent)
			items = items[:opts.MaxIssuesPerAgent]
		}
		for _, item := range items {
			if strings.TrimSpace(item.Comment) == "" {
				slog.Warn("dropping raw issue without comment", "agent", res.AgentKey)
				continue
			}

			issue := models.FinalIssue{
				AgentName:    res.AgentName,
				Severity:     models.NormalizeSeverity(item.Severity),
				Summary:      deriveSummary(item),
				Comment:      item.Comment,
				OriginalText: item.OriginalText,
				Status:       models.IssueStatusPending,
			}
			if span, ok := textspan.Locate(documentText, item.OriginalText); ok {
				issue.Span = &span
			} else if item.OriginalText != "" {
				slog.Warn("quoted text not found in document", "agent", res.AgentKey)
			}
			issues = append(issues, issue)
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.Rank() < issues[j].Severity.Rank()
	})

	for i := range issues {
		issues[i].Priority = i + 1
		issues[i].IssueID = ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
	return issues, nil
}

// deriveSummary prefers the specialist's own summary, then the first
// sentence of the comment, then the quoted text clipped for display.
func deriveSummary(item models.RawIssueItem) string {
	if s := strings.TrimSpace(item.Summary); s != "" {
		return s
	}
	if s := firstSentence(item.Comment); s != "" {
		return s
	}
	if s := strings.TrimSpace(item.OriginalText); s != "" {
		return clip(s, summaryDisplayLen)
	}
	return clip(strings.TrimSpace(item.Comment), summaryDisplayLen)
}

// firstSentence returns comment text up to and including the first
// sentence terminator, or "" when there is none.
func firstSentence(comment string) string {
	trimmed := strings.TrimSpace(comment)
	if idx := strings.IndexAny(trimmed, ".!?。！？"); idx >= 0 {
		_, size := utf8.DecodeRuneInString(trimmed[idx:])
		return trimmed[:idx+size]
	}
	return ""
}

// clip shortens s to max runes, marking the cut with an ellipsis.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
