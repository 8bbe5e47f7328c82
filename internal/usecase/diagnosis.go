package usecase

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/naka-gawa/repo-health/internal/config"
	"github.com/naka-gawa/repo-health/internal/domain"
)

// evidenceSource is a backlog figure that can back a constraint.
type evidenceSource struct {
	field string
	label string
	value func(domain.BacklogSnapshot) domain.OptionalNumber
}

var (
	evPRsOver365 = evidenceSource{"backlog_snapshot.prs_over_365_days", "open pull requests older than one year",
		func(b domain.BacklogSnapshot) domain.OptionalNumber { return b.PRsOver365 }}
	evIssuesOver365 = evidenceSource{"backlog_snapshot.issues_over_365_days", "open issues older than one year",
		func(b domain.BacklogSnapshot) domain.OptionalNumber { return b.IssuesOver365 }}
	evIssuesOver730 = evidenceSource{"backlog_snapshot.issues_over_730_days", "open issues older than two years",
		func(b domain.BacklogSnapshot) domain.OptionalNumber { return b.IssuesOver730 }}
	evMedianPRAge = evidenceSource{"backlog_snapshot.median_pr_age_days_est", "median open pull request age in days",
		func(b domain.BacklogSnapshot) domain.OptionalNumber { return b.MedianPRAge }}
	evMedianIssueAge = evidenceSource{"backlog_snapshot.median_issue_age_days_est", "median open issue age in days",
		func(b domain.BacklogSnapshot) domain.OptionalNumber { return b.MedianIssueAge }}
	evOpenIssues = evidenceSource{"backlog_snapshot.open_issues", "open issues",
		func(b domain.BacklogSnapshot) domain.OptionalNumber { return b.OpenIssues }}
)

// lensEvidence lists, per lens, the backlog figures most directly tied to it.
var lensEvidence = map[domain.Lens][]evidenceSource{
	domain.LensExecution: {evPRsOver365, evIssuesOver730, evMedianPRAge},
	domain.LensCommunity: {evMedianIssueAge, evIssuesOver365},
	domain.LensStrategy:  {evIssuesOver365, evOpenIssues},
}

// Diagnose derives the structural diagnosis of a report. It is a pure function.
func Diagnose(r *domain.Report, cfg config.Diagnosis) domain.Diagnosis {
	ranked := rankLenses(r.Metrics)
	lowest, second := ranked[0], ranked[1]
	lowScore := r.Metrics.Lens(lowest).Value.Value
	secondScore := r.Metrics.Lens(second).Value.Value
	allTied := lowScore == secondScore && secondScore == r.Metrics.Lens(ranked[2]).Value.Value

	d := domain.Diagnosis{AllTied: allTied}
	d.Primary = buildConstraint(r, lowest, cfg)

	margin := cfg.SecondaryMarginPct / 100 * abs(lowScore)
	if allTied || secondScore-lowScore <= margin {
		sec := buildConstraint(r, second, cfg)
		if lowScore == secondScore {
			d.Primary.Tied = true
			sec.Tied = true
		}
		d.Primary.Justification = primaryJustification(d.Primary, &sec, allTied)
		sec.Justification = secondaryJustification(sec, d.Primary)
		d.Secondary = &sec
	} else {
		d.Primary.Justification = primaryJustification(d.Primary, nil, false)
	}

	pattern, missing := backlogPattern(r.BacklogSnapshot, cfg)
	if missing != nil {
		d.Omitted = append(d.Omitted, *missing)
	} else {
		d.BacklogPattern = &pattern
	}
	d.ExecutionSignal = executionSignal(r, d.BacklogPattern, cfg)
	return d
}

// rankLenses orders lenses by score, lowest first. The sort is stable over
// LensPriority so equal scores keep the priority order.
func rankLenses(m domain.Metrics) []domain.Lens {
	ranked := append([]domain.Lens(nil), domain.LensPriority...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return m.Lens(ranked[i]).Value.Value < m.Lens(ranked[j]).Value.Value
	})
	return ranked
}

func buildConstraint(r *domain.Report, lens domain.Lens, cfg config.Diagnosis) domain.Constraint {
	score := r.Metrics.Lens(lens)
	c := domain.Constraint{
		Lens:  lens,
		Field: "metrics." + string(lens) + ".score",
		Score: score.Value,
		Trend: score.Trend,
	}
	for _, src := range lensEvidence[lens] {
		if v := src.value(r.BacklogSnapshot); v.Present {
			c.Evidence = append(c.Evidence, domain.Evidence{Field: src.field, Label: src.label, Value: v.Number})
		}
	}
	c.RiskFlags = matchFlags(r.RiskFlags, cfg.Keywords[string(lens)])
	return c
}

func primaryJustification(c domain.Constraint, sec *domain.Constraint, allTied bool) string {
	var b strings.Builder
	switch {
	case allTied:
		fmt.Fprintf(&b, "%s scores %s on %s, tied with every other lens", c.Lens.Title(), c.Score, c.Field)
	case sec != nil && c.Tied:
		fmt.Fprintf(&b, "%s scores %s on %s, tied with %s and ranked first on tie-break priority", c.Lens.Title(), c.Score, c.Field, sec.Lens.Title())
	default:
		fmt.Fprintf(&b, "%s scores %s on %s, the lowest of the three lenses", c.Lens.Title(), c.Score, c.Field)
	}
	writeSupport(&b, c)
	return b.String()
}

func secondaryJustification(c, primary domain.Constraint) string {
	var b strings.Builder
	if c.Tied {
		fmt.Fprintf(&b, "%s scores %s on %s, tied with %s", c.Lens.Title(), c.Score, c.Field, primary.Lens.Title())
	} else {
		fmt.Fprintf(&b, "%s scores %s on %s, close enough to %s to compete for attention", c.Lens.Title(), c.Score, c.Field, primary.Lens.Title())
	}
	writeSupport(&b, c)
	return b.String()
}

// writeSupport appends the trend, backlog evidence and matching risk flags.
func writeSupport(b *strings.Builder, c domain.Constraint) {
	if c.Trend.Known() {
		fmt.Fprintf(b, ", with a reported trend of %s", c.Trend.Raw)
	}
	b.WriteString(".")
	if len(c.Evidence) > 0 {
		parts := make([]string, 0, len(c.Evidence))
		for _, e := range c.Evidence {
			parts = append(parts, fmt.Sprintf("%s %s", e.Value, e.Label))
		}
		fmt.Fprintf(b, " Backlog evidence: %s.", joinList(parts))
	}
	if len(c.RiskFlags) > 0 {
		quoted := make([]string, 0, len(c.RiskFlags))
		for _, f := range c.RiskFlags {
			quoted = append(quoted, `"`+f+`"`)
		}
		fmt.Fprintf(b, " Related risk flags: %s.", joinList(quoted))
	}
}

// backlogPattern compares aged open items against the open total for every
// item kind that reports both counts.
func backlogPattern(b domain.BacklogSnapshot, cfg config.Diagnosis) (domain.BacklogPattern, *domain.InsufficientDataError) {
	var aged, open float64
	var parts []string
	covered := false

	agedIssues, issueAge := b.IssuesOver365, "one year"
	if !agedIssues.Present {
		agedIssues, issueAge = b.IssuesOver730, "two years"
	}
	if b.OpenIssues.Present && agedIssues.Present {
		covered = true
		aged += agedIssues.Value
		open += b.OpenIssues.Value
		part := fmt.Sprintf("%s of %s open issues are older than %s", agedIssues, b.OpenIssues, issueAge)
		if b.IssuesOver365.Present && b.IssuesOver730.Present {
			part += fmt.Sprintf(" (%s older than two years)", b.IssuesOver730)
		}
		parts = append(parts, part)
	}
	if b.OpenPRs.Present && b.PRsOver365.Present {
		covered = true
		aged += b.PRsOver365.Value
		open += b.OpenPRs.Value
		parts = append(parts, fmt.Sprintf("%s of %s open pull requests are older than one year", b.PRsOver365, b.OpenPRs))
	}
	if !covered {
		field := "backlog_snapshot.open_issues"
		if b.OpenIssues.Present {
			field = "backlog_snapshot.issues_over_365_days"
		}
		return domain.BacklogPattern{}, &domain.InsufficientDataError{Clause: "backlog_pattern", Field: field}
	}

	ratio := 0.0
	if open > 0 {
		ratio = aged / open
	}
	p := domain.BacklogPattern{AgedRatio: ratio}
	var reading string
	switch {
	case open == 0:
		p.Kind = domain.PatternHealthyTurnover
		reading = "nothing is waiting in the open backlog"
	case ratio >= cfg.AccumulationRatio:
		p.Kind = domain.PatternAccumulation
		reading = "aged items dominate the open backlog, so intake is outpacing resolution"
	case ratio <= cfg.TurnoverRatio:
		p.Kind = domain.PatternHealthyTurnover
		reading = "most open items are recent, so resolution keeps pace with intake"
	default:
		p.Kind = domain.PatternGradualAging
		reading = "a sizeable share of open items is aging without resolution"
	}
	p.Description = upperFirst(joinList(parts)) + "; " + reading + "."
	return p, nil
}

func executionSignal(r *domain.Report, pattern *domain.BacklogPattern, cfg config.Diagnosis) domain.ExecutionSignal {
	exec := r.Metrics.Execution
	sig := domain.ExecutionSignal{Healthy: exec.Value.Value >= cfg.HealthyScore}

	if sig.Healthy {
		sig.Working = fmt.Sprintf("Merges are proceeding normally: %s scores %s.", domain.LensExecution, exec.Value)
		if exec.Trend.Direction == domain.TrendDeclining {
			sig.Working = fmt.Sprintf("Merges are proceeding: %s scores %s, although its trend is %s.", domain.LensExecution, exec.Value, exec.Trend.Raw)
		}
	} else {
		sig.Working = fmt.Sprintf("Throughput is constrained: %s scores %s.", domain.LensExecution, exec.Value)
	}

	switch {
	case pattern == nil && len(r.RiskFlags) > 0:
		sig.Hidden = "No backlog figures were reported, but the risk flags point at problems that throughput alone does not show."
	case pattern == nil:
		sig.Hidden = "No backlog figures were reported to check throughput against."
	case sig.Healthy && pattern.Kind == domain.PatternAccumulation:
		sig.Hidden = "Long-tail aging masks the true backlog: " + lowerFirst(pattern.Description)
	case sig.Healthy && pattern.Kind == domain.PatternGradualAging:
		sig.Hidden = "Aging items are building up beneath healthy throughput: " + lowerFirst(pattern.Description)
	case sig.Healthy:
		sig.Hidden = "Nothing is hidden: backlog turnover agrees with the throughput signal."
	case pattern.Kind == domain.PatternAccumulation:
		sig.Hidden = "The backlog is compounding behind slow throughput: " + lowerFirst(pattern.Description)
	case pattern.Kind == domain.PatternGradualAging:
		sig.Hidden = "Slow throughput is letting open items age: " + lowerFirst(pattern.Description)
	default:
		sig.Hidden = "The backlog is not aging, so the constraint is pace rather than neglect."
	}
	return sig
}

// matchFlags returns the flags, in input order, that contain any keyword as a word.
func matchFlags(flags, keywords []string) []string {
	var out []string
	for _, f := range flags {
		if containsKeyword(f, keywords) {
			out = append(out, f)
		}
	}
	return out
}

func containsKeyword(flag string, keywords []string) bool {
	words := strings.FieldsFunc(strings.ToLower(flag), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	normalized := " " + strings.Join(words, " ") + " "
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(normalized, " "+kw+" ") || strings.Contains(normalized, " "+kw+"s ") {
			return true
		}
	}
	return false
}

func joinList(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
