package usecase

import (
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/repo-health/internal/config"
	"github.com/naka-gawa/repo-health/internal/domain"
)

// target maps a raw metric onto 0..100: good scores 100, bad scores 0,
// linear in between. Either end may be the larger one.
type target struct {
	good, bad float64
}

var (
	targetMergeDays        = target{good: 1, bad: 30}
	targetResponseHours    = target{good: 2, bad: 168}
	targetReviewTop1Pct    = target{good: 30, bad: 90}
	targetReturnRatePct    = target{good: 60, bad: 10}
	targetOpenPRAgeDays    = target{good: 7, bad: 90}
	targetOpenIssueAgeDays = target{good: 14, bad: 180}
)

func (t target) score(v float64) float64 {
	if t.good < t.bad {
		switch {
		case v <= t.good:
			return 100
		case v >= t.bad:
			return 0
		}
		return 100 * (t.bad - v) / (t.bad - t.good)
	}
	switch {
	case v >= t.good:
		return 100
	case v <= t.bad:
		return 0
	}
	return 100 * (v - t.bad) / (t.good - t.bad)
}

// subScores are the lens scores derivable from raw exports.
type subScores struct {
	execution, community, backlog, overall float64
}

// botLogins are ignored when measuring first response.
var botLogins = map[string]bool{"codecov[bot]": true}

func scoreExports(prs, issues []domain.ExportItem, now time.Time, cfg config.Snapshot) subScores {
	var s subScores
	s.execution = mean(
		targetMergeDays.score(medianMergeDays(prs)),
		targetResponseHours.score(medianFirstResponseHours(prs)),
		targetReviewTop1Pct.score(reviewTop1Pct(prs)),
	)
	s.community = targetReturnRatePct.score(returnRatePct(prs, issues, now, cfg.ReturnWindowDays))
	s.backlog = mean(
		targetOpenPRAgeDays.score(median(openAges(prs, now))),
		targetOpenIssueAgeDays.score(median(openAges(issues, now))),
	)
	w := cfg.Weights
	s.overall = s.execution*w.Execution + s.community*w.Community + s.backlog*w.Backlog
	return s
}

func medianMergeDays(prs []domain.ExportItem) float64 {
	var days []float64
	for _, pr := range prs {
		if pr.MergedAt != nil {
			days = append(days, pr.MergedAt.Sub(pr.CreatedAt).Hours()/24)
		}
	}
	return median(days)
}

func medianFirstResponseHours(prs []domain.ExportItem) float64 {
	var hours []float64
	for _, pr := range prs {
		authorID, _ := pr.AuthorID()
		var first time.Time
		consider := func(a *domain.Actor, at time.Time) {
			if a == nil || a.ID == nil || *a.ID == authorID || botLogins[strings.ToLower(a.Login)] {
				return
			}
			if first.IsZero() || at.Before(first) {
				first = at
			}
		}
		for _, c := range pr.Comments {
			consider(c.Author, c.CreatedAt)
		}
		for _, r := range pr.Reviews {
			consider(r.Author, r.SubmittedAt)
		}
		if !first.IsZero() {
			hours = append(hours, first.Sub(pr.CreatedAt).Hours())
		}
	}
	return median(hours)
}

// reviewTop1Pct is the share of reviews written by the busiest reviewer.
func reviewTop1Pct(prs []domain.ExportItem) float64 {
	counts := map[int64]int{}
	total := 0
	for _, pr := range prs {
		authorID, _ := pr.AuthorID()
		for _, r := range pr.Reviews {
			if r.Author == nil || r.Author.ID == nil || *r.Author.ID == authorID {
				continue
			}
			counts[*r.Author.ID]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	top := 0
	for _, c := range counts {
		if c > top {
			top = c
		}
	}
	return float64(top) / float64(total) * 100
}

// returnRatePct is the share of contributors active in the window whose
// first contribution predates it.
func returnRatePct(prs, issues []domain.ExportItem, now time.Time, windowDays int) float64 {
	all := append(append([]domain.ExportItem(nil), prs...), issues...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	windowStart := now.AddDate(0, 0, -windowDays)
	firstSeen := map[int64]time.Time{}
	active := map[int64]bool{}
	for _, item := range all {
		id, ok := item.AuthorID()
		if !ok {
			continue
		}
		if _, seen := firstSeen[id]; !seen {
			firstSeen[id] = item.CreatedAt
		}
		if !item.CreatedAt.Before(windowStart) {
			active[id] = true
		}
	}
	if len(active) == 0 {
		return 0
	}
	returning := 0
	for id := range active {
		if firstSeen[id].Before(windowStart) {
			returning++
		}
	}
	return float64(returning) / float64(len(active)) * 100
}

func openAges(items []domain.ExportItem, now time.Time) []float64 {
	var ages []float64
	for _, it := range items {
		if it.IsOpen() {
			ages = append(ages, float64(ageDays(it, now)))
		}
	}
	return ages
}

func ageDays(it domain.ExportItem, now time.Time) int {
	return int(now.Sub(it.CreatedAt).Hours() / 24)
}

// median returns 0 for empty input.
func median(values []float64) float64 {
	m, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return m
}

func mean(values ...float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}
