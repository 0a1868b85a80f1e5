package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/harness/pkg/lifecycle"
	"github.com/entrhq/harness/pkg/runner"
	"github.com/entrhq/harness/pkg/scenario"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)
)

func outcomeBadge(o scenario.Outcome) string {
	switch o {
	case scenario.OutcomePassed:
		return passedStyle.Render("PASS")
	case scenario.OutcomeFailed:
		return failedStyle.Render("FAIL")
	case scenario.OutcomeAborted:
		return failedStyle.Render("ABRT")
	default:
		return skippedStyle.Render("SKIP")
	}
}

// renderSummary formats one line per scenario followed by the totals.
func renderSummary(suiteName string, results []lifecycle.Result, s runner.Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Suite %s", suiteName)))
	b.WriteString("\n")

	for _, r := range results {
		fmt.Fprintf(&b, "%s %s %s\n", outcomeBadge(r.Outcome), r.Scenario.Name,
			mutedStyle.Render(r.Duration.Round(time.Millisecond).String()))
		if r.Err != nil && r.Outcome.Failed() {
			fmt.Fprintf(&b, "     %s\n", failedStyle.Render(r.Err.Error()))
		}
		if r.EvidencePath != "" {
			fmt.Fprintf(&b, "     %s\n", mutedStyle.Render("evidence: "+r.EvidencePath))
		}
	}

	totals := fmt.Sprintf("%d scenarios: %d passed, %d failed, %d aborted, %d skipped",
		s.Total, s.Passed, s.Failed, s.Aborted, s.Skipped)
	if s.OK() {
		totals = passedStyle.Render(totals)
	} else {
		totals = failedStyle.Render(totals)
	}
	b.WriteString(totals)

	return boxStyle.Render(b.String())
}
