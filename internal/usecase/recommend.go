package usecase

import (
	"fmt"

	"github.com/naka-gawa/repo-health/internal/config"
	"github.com/naka-gawa/repo-health/internal/domain"
)

type goalKind int

const (
	goalCount goalKind = iota
	goalMedian
	goalLift
)

// play is a candidate recommendation. Plays backed by a backlog figure are
// skipped when the report does not carry that figure.
type play struct {
	action string
	kind   goalKind
	source evidenceSource
}

var lensPlays = map[domain.Lens][]play{
	domain.LensExecution: {
		{action: "Triage every pull request open longer than a year: merge it, rebase it, or close it with a note", kind: goalCount, source: evPRsOver365},
		{action: "Close or archive issues open longer than two years that no longer have an owner", kind: goalCount, source: evIssuesOver730},
		{action: "Agree on a review turnaround expectation and rotate reviewers across open pull requests", kind: goalMedian, source: evMedianPRAge},
		{action: "Remove the merge bottleneck by widening the set of maintainers who can approve changes", kind: goalLift},
	},
	domain.LensCommunity: {
		{action: "Stand up a triage rotation so every new issue gets a first response within the week", kind: goalMedian, source: evMedianIssueAge},
		{action: "Label aging issues as good first issues and invite returning contributors to pick them up", kind: goalCount, source: evIssuesOver365},
		{action: "Invite recurring contributors into reviewing and recognize their work in release notes", kind: goalLift},
	},
	domain.LensStrategy: {
		{action: "Reconcile the issue tracker with the current roadmap and close issues that no longer fit it", kind: goalCount, source: evIssuesOver365},
		{action: "Review the oldest open pull requests for strategic fit before spending more review time on them", kind: goalCount, source: evPRsOver365},
		{action: "Publish roadmap milestones and tag open work against them", kind: goalLift},
	},
}

// Recommend derives the ordered recommendations for a diagnosis. Every entry
// targets the primary or secondary constraint. It is a pure function.
func Recommend(r *domain.Report, d domain.Diagnosis, cfg config.Recommendation) []domain.Recommendation {
	used := map[string]bool{}
	recs := recommendFor(r, d.Primary, domain.RolePrimary, cfg.MaxPrimary, cfg, used)
	if d.Secondary != nil {
		recs = append(recs, recommendFor(r, *d.Secondary, domain.RoleSecondary, cfg.MaxSecondary, cfg, used)...)
	}
	return recs
}

func recommendFor(r *domain.Report, c domain.Constraint, role domain.ConstraintRole, limit int, cfg config.Recommendation, used map[string]bool) []domain.Recommendation {
	var out []domain.Recommendation
	for _, p := range lensPlays[c.Lens] {
		if len(out) == limit {
			break
		}
		goal, key, ok := goalFor(r, c, p, cfg)
		if !ok || used[key] {
			continue
		}
		used[key] = true
		out = append(out, domain.Recommendation{
			Action:           p.action,
			TargetConstraint: c.Lens,
			Role:             role,
			MeasurableGoal:   goal,
		})
	}
	return out
}

// goalFor phrases the measurable goal as a relative delta off a literal input value.
func goalFor(r *domain.Report, c domain.Constraint, p play, cfg config.Recommendation) (string, string, bool) {
	if p.kind == goalLift {
		return fmt.Sprintf("Lift the %s score above its current %s by the next report", c.Lens, c.Score), "lift:" + string(c.Lens), true
	}
	v := p.source.value(r.BacklogSnapshot)
	if !v.Present {
		return "", "", false
	}
	switch p.kind {
	case goalMedian:
		return fmt.Sprintf("Bring the %s (currently %s) down by %d%% within one cycle", p.source.label, v.Number, cfg.MedianAgeReductionPct), p.source.field, true
	default:
		return fmt.Sprintf("Reduce the count of %s (currently %s) by %d%% within one cycle", p.source.label, v.Number, cfg.AgedReductionPct), p.source.field, true
	}
}
