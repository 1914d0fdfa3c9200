package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/prd/internal/agents"
	"github.com/joescharf/prd/internal/models"
)

// UI provides colored terminal output and respects verbose mode.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// SeverityColor returns the severity label colored by rank.
func SeverityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityHigh:
		return red(string(sev))
	case models.SeverityMid:
		return yellow(string(sev))
	case models.SeverityLow:
		return cyan(string(sev))
	default:
		return string(sev)
	}
}

// IssueStatusColor returns the workflow status colored for display.
func IssueStatusColor(status models.IssueStatus) string {
	switch status {
	case models.IssueStatusPending:
		return yellow(string(status))
	case models.IssueStatusDone:
		return green(string(status))
	case models.IssueStatusLater:
		return cyan(string(status))
	default:
		return string(status)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Progress prints a transient phase update during a running review.
func (u *UI) Progress(progress float64, message string) {
	fmt.Fprintf(u.Out, "%s [%3.0f%%] %s\n", verbosePrefix, progress*100, message)
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// RenderIssues prints the prioritized issue list as a table.
func (u *UI) RenderIssues(issues []models.FinalIssue) error {
	if len(issues) == 0 {
		u.Info("no issues found")
		return nil
	}
	table := u.Table([]string{"#", "Severity", "Agent", "Summary", "Status"})
	for _, issue := range issues {
		table.Append([]string{
			fmt.Sprintf("%d", issue.Priority),
			SeverityColor(issue.Severity),
			issue.AgentName,
			truncate(issue.Summary, 60),
			IssueStatusColor(issue.Status),
		})
	}
	return table.Render()
}

// RenderIssueDetail prints one issue with its full comment and quoted text.
func (u *UI) RenderIssueDetail(issue models.FinalIssue) {
	fmt.Fprintf(u.Out, "%s %s %s\n", Cyan(fmt.Sprintf("#%d", issue.Priority)),
		SeverityColor(issue.Severity), issue.Summary)
	fmt.Fprintf(u.Out, "  %s\n", issue.Comment)
	if issue.OriginalText != "" {
		fmt.Fprintf(u.Out, "  > %s\n", truncate(issue.OriginalText, 120))
	}
	if issue.Span != nil {
		fmt.Fprintf(u.Out, "  at [%d:%d]\n", issue.Span.StartIndex, issue.Span.EndIndex)
	}
}

// RenderAgents prints the specialist catalog as a table.
func (u *UI) RenderAgents(defs []agents.Definition) error {
	table := u.Table([]string{"Key", "Name", "Role", "Focus"})
	for _, d := range defs {
		table.Append([]string{
			d.Key,
			d.DisplayName,
			d.RoleLabel,
			strings.Join(d.Tags, ", "),
		})
	}
	return table.Render()
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
