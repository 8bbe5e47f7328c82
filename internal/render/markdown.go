// Package render assembles a digest into the fixed-section Markdown document.
package render

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/naka-gawa/repo-health/internal/domain"
)

// Section headers, in output order.
const (
	HeaderOverview       = "## Repository Health Overview"
	HeaderRiskFlags      = "## Risk Flags"
	HeaderStalledActions = "## Stalled Actions"
	HeaderDiagnosis      = "## Structural Diagnosis"
	HeaderRecommendation = "## Recommendation"
	HeaderNarrative      = "## Weekly Narrative"
)

// Headers lists the section headers in the order they are rendered.
var Headers = []string{
	HeaderOverview, HeaderRiskFlags, HeaderStalledActions,
	HeaderDiagnosis, HeaderRecommendation, HeaderNarrative,
}

// NoneReported replaces an empty list.
const NoneReported = "None reported"

const notReported = "not reported"

// Markdown renders the digest. Output is a pure function of its input.
func Markdown(d *domain.Digest) string {
	sections := []struct {
		header string
		body   string
	}{
		{HeaderOverview, overview(d.Report)},
		{HeaderRiskFlags, riskFlags(d.Report.RiskFlags)},
		{HeaderStalledActions, stalledActions(d.Report.StalledActions)},
		{HeaderDiagnosis, diagnosis(d.Diagnosis)},
		{HeaderRecommendation, recommendations(d.Recommendations)},
		{HeaderNarrative, strings.Join(d.Narrative, "\n\n")},
	}

	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.header)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(s.body, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func overview(r *domain.Report) string {
	var b strings.Builder
	if r.GeneratedAt != "" {
		fmt.Fprintf(&b, "_Report generated at %s._\n\n", inline(r.GeneratedAt))
	}

	scores := table.NewWriter()
	scores.AppendHeader(table.Row{"Lens", "Score", "Trend"})
	for _, lens := range domain.LensPriority {
		s := r.Metrics.Lens(lens)
		scores.AppendRow(table.Row{lens.Title(), s.Value.Raw, trendCell(s.Trend)})
	}
	backlogScore := r.Metrics.Backlog.Value.Raw
	if backlogScore == "" {
		backlogScore = notReported
	}
	scores.AppendRow(table.Row{"Backlog", backlogScore, trendCell(r.Metrics.Backlog.Trend)})
	if r.Metrics.Overall.Present {
		scores.AppendRow(table.Row{"Overall", r.Metrics.Overall.Raw, notReported})
	}
	b.WriteString(scores.RenderMarkdown())
	b.WriteString("\n\n")

	snap := r.BacklogSnapshot
	figures := []struct {
		label string
		value domain.OptionalNumber
	}{
		{"Open pull requests", snap.OpenPRs},
		{"Open issues", snap.OpenIssues},
		{"Pull requests older than one year", snap.PRsOver365},
		{"Issues older than one year", snap.IssuesOver365},
		{"Issues older than two years", snap.IssuesOver730},
		{"Median open pull request age (days)", snap.MedianPRAge},
		{"Median open issue age (days)", snap.MedianIssueAge},
	}
	backlog := table.NewWriter()
	backlog.AppendHeader(table.Row{"Backlog figure", "Value"})
	rows := 0
	for _, f := range figures {
		if !f.value.Present {
			continue
		}
		backlog.AppendRow(table.Row{f.label, f.value.Raw})
		rows++
	}
	if rows == 0 {
		b.WriteString("No backlog figures reported.\n")
	} else {
		b.WriteString(backlog.RenderMarkdown())
		b.WriteString("\n")
	}
	return b.String()
}

func trendCell(t domain.Trend) string {
	if !t.Known() {
		return notReported
	}
	return t.Raw
}

// riskFlags renders one bullet per flag, in input order.
func riskFlags(flags []string) string {
	if len(flags) == 0 {
		return NoneReported
	}
	var b strings.Builder
	for _, f := range flags {
		fmt.Fprintf(&b, "- %s\n", inline(f))
	}
	return b.String()
}

// stalledActions renders one bullet per action, in input order.
func stalledActions(actions []domain.StalledAction) string {
	if len(actions) == 0 {
		return NoneReported
	}
	var b strings.Builder
	for _, a := range actions {
		if a.Reason == "" {
			fmt.Fprintf(&b, "- **%s**\n", inline(a.Identifier))
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", inline(a.Identifier), inline(a.Reason))
	}
	return b.String()
}

func diagnosis(d domain.Diagnosis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- **Primary constraint:** %s%s. %s\n", d.Primary.Lens.Title(), tiedSuffix(d.Primary), d.Primary.Justification)
	if d.Secondary != nil {
		fmt.Fprintf(&b, "- **Secondary constraint:** %s%s. %s\n", d.Secondary.Lens.Title(), tiedSuffix(*d.Secondary), d.Secondary.Justification)
	} else {
		b.WriteString("- **Secondary constraint:** none; no other lens is close to the primary constraint.\n")
	}
	if d.BacklogPattern != nil {
		fmt.Fprintf(&b, "- **Backlog pattern:** %s. %s\n", d.BacklogPattern.Kind, d.BacklogPattern.Description)
	} else {
		b.WriteString("- **Backlog pattern:** not derived; the backlog snapshot lacks the counts needed.\n")
	}
	fmt.Fprintf(&b, "- **Execution signal:** %s %s\n", d.ExecutionSignal.Working, d.ExecutionSignal.Hidden)
	return b.String()
}

func tiedSuffix(c domain.Constraint) string {
	if c.Tied {
		return " (tied)"
	}
	return ""
}

func recommendations(recs []domain.Recommendation) string {
	if len(recs) == 0 {
		return NoneReported
	}
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "- **%s.** Targets %s (%s constraint). Goal: %s.\n", r.Action, r.TargetConstraint.Title(), r.Role, r.MeasurableGoal)
	}
	return b.String()
}

// inline keeps a free-text value on one list line.
func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
