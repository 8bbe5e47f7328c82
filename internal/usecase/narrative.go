package usecase

import (
	"fmt"
	"strings"

	"github.com/naka-gawa/repo-health/internal/domain"
)

// Compose writes the weekly narrative: overview, structural diagnosis,
// recommendation rationale, execution signal and closing outlook.
// Every figure it states is copied from the report or the diagnosis.
func Compose(r *domain.Report, d domain.Diagnosis, recs []domain.Recommendation) []string {
	return []string{
		overviewParagraph(r),
		diagnosisParagraph(d),
		rationaleParagraph(d, recs),
		d.ExecutionSignal.Working + " " + d.ExecutionSignal.Hidden,
		outlookParagraph(d),
	}
}

func overviewParagraph(r *domain.Report) string {
	var b strings.Builder
	parts := make([]string, 0, len(domain.LensPriority))
	for _, lens := range domain.LensPriority {
		parts = append(parts, scorePhrase(lens.Title(), r.Metrics.Lens(lens)))
	}
	fmt.Fprintf(&b, "This week's report scores %s", joinList(parts))
	if backlog := r.Metrics.Backlog; backlog.Value.Raw != "" {
		fmt.Fprintf(&b, ", with a backlog score of %s", backlog.Value)
		if backlog.Trend.Known() {
			fmt.Fprintf(&b, " (trend %s)", backlog.Trend.Raw)
		}
	}
	b.WriteString(".")
	if r.Metrics.Overall.Present {
		fmt.Fprintf(&b, " Overall health stands at %s.", r.Metrics.Overall)
	}

	snap := r.BacklogSnapshot
	var open []string
	if snap.OpenIssues.Present {
		open = append(open, fmt.Sprintf("%s open issues", snap.OpenIssues))
	}
	if snap.OpenPRs.Present {
		open = append(open, fmt.Sprintf("%s open pull requests", snap.OpenPRs))
	}
	if len(open) > 0 {
		fmt.Fprintf(&b, " The backlog snapshot counts %s.", joinList(open))
	}
	return b.String()
}

func scorePhrase(title string, s domain.Score) string {
	if s.Trend.Known() {
		return fmt.Sprintf("%s at %s (trend %s)", title, s.Value, s.Trend.Raw)
	}
	return fmt.Sprintf("%s at %s", title, s.Value)
}

func diagnosisParagraph(d domain.Diagnosis) string {
	var b strings.Builder
	switch {
	case d.AllTied:
		fmt.Fprintf(&b, "All three lenses are tied at %s, so %s and %s are reported as tied constraints in tie-break order.",
			d.Primary.Score, d.Primary.Lens.Title(), d.Secondary.Lens.Title())
	case d.Secondary != nil && d.Primary.Tied:
		fmt.Fprintf(&b, "%s and %s are tied at %s, so both are reported as tied constraints rather than picking one arbitrarily.",
			d.Primary.Lens.Title(), d.Secondary.Lens.Title(), d.Primary.Score)
	case d.Secondary != nil:
		fmt.Fprintf(&b, "The primary constraint is %s at %s, with %s at %s close behind as a secondary constraint.",
			d.Primary.Lens.Title(), d.Primary.Score, d.Secondary.Lens.Title(), d.Secondary.Score)
	default:
		fmt.Fprintf(&b, "The primary constraint is %s at %s; no other lens is close enough to count as a second bottleneck.",
			d.Primary.Lens.Title(), d.Primary.Score)
	}
	if d.BacklogPattern != nil {
		fmt.Fprintf(&b, " The backlog shows %s: %s", d.BacklogPattern.Kind, lowerFirst(d.BacklogPattern.Description))
	} else {
		b.WriteString(" The backlog figures were incomplete, so no backlog pattern is drawn this week.")
	}
	return b.String()
}

func rationaleParagraph(d domain.Diagnosis, recs []domain.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The recommendations start with %s because it is the primary constraint", d.Primary.Lens.Title())
	if d.Secondary != nil {
		fmt.Fprintf(&b, ", then turn to %s", d.Secondary.Lens.Title())
	}
	b.WriteString(".")
	if len(recs) > 0 {
		fmt.Fprintf(&b, " Each goal is set relative to this week's figures; the first is to %s.", lowerFirst(recs[0].MeasurableGoal))
	}
	return b.String()
}

func outlookParagraph(d domain.Diagnosis) string {
	p := d.Primary
	switch p.Trend.Direction {
	case domain.TrendImproving:
		return fmt.Sprintf("%s is already trending %s. Holding that direction while working the goals above should move it off the constraint list.", p.Lens.Title(), p.Trend.Raw)
	case domain.TrendDeclining:
		return fmt.Sprintf("%s is trending %s. Without progress on the goals above, expect it to remain the primary constraint in next week's report.", p.Lens.Title(), p.Trend.Raw)
	default:
		return fmt.Sprintf("Next week's report will show whether the goals above move %s off the primary constraint.", p.Lens.Title())
	}
}
