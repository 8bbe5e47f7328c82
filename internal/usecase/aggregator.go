package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/repo-health/internal/config"
	"github.com/naka-gawa/repo-health/internal/domain"
	"github.com/naka-gawa/repo-health/internal/gateway"
)

// Age buckets used for the backlog snapshot and stalled actions.
const (
	decisionAgeDays = 180
	staleAgeDays    = 365
	abandonAgeDays  = 730
)

// AggregateOptions carries what the exports cannot tell.
type AggregateOptions struct {
	Now           time.Time
	StrategyScore domain.Number
	// Trends are optional trend indicators keyed by lens or "backlog".
	Trends map[string]string
}

// Aggregator is the use case for turning raw exports into a health report.
// It orchestrates the fetching and combining of data.
type Aggregator struct {
	fetcher gateway.Fetcher
	cfg     config.Snapshot
	logger  *zap.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, cfg config.Snapshot, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Aggregate fetches both exports concurrently and builds the report that the
// render pipeline consumes.
func (a *Aggregator) Aggregate(ctx context.Context, opts AggregateOptions) (*domain.Report, error) {
	a.logger.Debug("Usecase: Starting export aggregation...")

	var prs, issues []domain.ExportItem

	// Use an errgroup to fetch all data concurrently.
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		prs, err = a.fetcher.FetchPullRequests(egCtx)
		return err
	})

	eg.Go(func() error {
		var err error
		issues, err = a.fetcher.FetchIssues(egCtx)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	a.logger.Debug("Usecase: All exports fetched successfully.", zap.Int("prs", len(prs)), zap.Int("issues", len(issues)))

	if opts.StrategyScore.Raw == "" {
		return nil, errors.New("strategy score is required: it cannot be derived from exports")
	}

	openPRs := filterOpen(prs)
	openIssues := filterOpen(issues)
	snap := backlogCounts{
		openPRs:        len(openPRs),
		openIssues:     len(openIssues),
		prsOver365:     countOlder(openPRs, opts.Now, staleAgeDays),
		issuesOver365:  countOlder(openIssues, opts.Now, staleAgeDays),
		issuesOver730:  countOlder(openIssues, opts.Now, abandonAgeDays),
		medianPRAge:    upperMedian(openAges(openPRs, opts.Now)),
		medianIssueAge: upperMedian(openAges(openIssues, opts.Now)),
	}
	scores := scoreExports(prs, issues, opts.Now, a.cfg)

	report := &domain.Report{
		GeneratedAt: opts.Now.UTC().Format(time.RFC3339),
		Metrics: domain.Metrics{
			Execution: scoreWithTrend(scores.execution, opts.Trends[string(domain.LensExecution)]),
			Community: scoreWithTrend(scores.community, opts.Trends[string(domain.LensCommunity)]),
			Strategy:  domain.Score{Value: opts.StrategyScore, Trend: domain.Trend{Raw: opts.Trends[string(domain.LensStrategy)]}},
			Backlog:   scoreWithTrend(scores.backlog, opts.Trends["backlog"]),
			Overall:   domain.Some(formatScore(scores.overall)),
		},
		BacklogSnapshot: snap.toDomain(),
		RiskFlags:       riskFlagsFor(snap, a.cfg),
		StalledActions:  stalledActionsFor(openPRs, openIssues, opts.Now),
	}

	a.logger.Debug("Usecase: Aggregation complete.", zap.Int("risk_flags", len(report.RiskFlags)), zap.Int("stalled_actions", len(report.StalledActions)))
	return report, nil
}

type backlogCounts struct {
	openPRs, openIssues                      int
	prsOver365, issuesOver365, issuesOver730 int
	medianPRAge, medianIssueAge              int
}

func (b backlogCounts) toDomain() domain.BacklogSnapshot {
	return domain.BacklogSnapshot{
		OpenPRs:        intNumber(b.openPRs),
		OpenIssues:     intNumber(b.openIssues),
		PRsOver365:     intNumber(b.prsOver365),
		IssuesOver365:  intNumber(b.issuesOver365),
		IssuesOver730:  intNumber(b.issuesOver730),
		MedianPRAge:    intNumber(b.medianPRAge),
		MedianIssueAge: intNumber(b.medianIssueAge),
	}
}

func riskFlagsFor(b backlogCounts, cfg config.Snapshot) []string {
	flags := []string{}
	if b.openPRs > 0 && float64(b.prsOver365)/float64(b.openPRs) > cfg.StalePRRatio {
		flags = append(flags, fmt.Sprintf("%d%% of open PRs are over 1 year old", 100*b.prsOver365/b.openPRs))
	}
	if b.openIssues > 0 && float64(b.issuesOver365)/float64(b.openIssues) > cfg.StaleIssueRatio {
		flags = append(flags, fmt.Sprintf("%d%% of open issues are over 1 year old", 100*b.issuesOver365/b.openIssues))
	}
	if b.issuesOver730 > 0 {
		flags = append(flags, fmt.Sprintf("%d%% of open issues are over 2 years old", 100*b.issuesOver730/b.openIssues))
	}
	if b.openIssues > cfg.LargeBacklogIssues {
		flags = append(flags, "High issue count suggests tracker reflects historical intent rather than active roadmap")
	}
	return flags
}

// stalledActionsFor lists stalled items grouped by the action they need,
// keeping export order within each group.
func stalledActionsFor(openPRs, openIssues []domain.ExportItem, now time.Time) []domain.StalledAction {
	groups := []struct {
		items    []domain.ExportItem
		min, max int
		reason   string
	}{
		{openPRs, staleAgeDays, math.MaxInt, "pull request open over a year: archive or close"},
		{openIssues, abandonAgeDays, math.MaxInt, "issue open over two years: close as stale"},
		{openPRs, decisionAgeDays, staleAgeDays, "pull request open over six months: decision required"},
		{openIssues, decisionAgeDays, staleAgeDays, "issue open over six months: decision required"},
	}
	actions := []domain.StalledAction{}
	for _, g := range groups {
		for _, it := range g.items {
			if age := ageDays(it, now); age > g.min && age <= g.max {
				actions = append(actions, domain.StalledAction{Identifier: "#" + strconv.Itoa(it.Number), Reason: g.reason})
			}
		}
	}
	return actions
}

// upperMedian takes the upper middle element on even counts, so the estimate
// is always an observed age. Zero when there is nothing open.
func upperMedian(ages []float64) int {
	if len(ages) == 0 {
		return 0
	}
	sorted := append(stats.Float64Data{}, ages...)
	sort.Sort(sorted)
	return int(sorted[len(sorted)/2])
}

func filterOpen(items []domain.ExportItem) []domain.ExportItem {
	var open []domain.ExportItem
	for _, it := range items {
		if it.IsOpen() {
			open = append(open, it)
		}
	}
	return open
}

func countOlder(items []domain.ExportItem, now time.Time, days int) int {
	n := 0
	for _, it := range items {
		if ageDays(it, now) >= days {
			n++
		}
	}
	return n
}

func scoreWithTrend(v float64, trend string) domain.Score {
	return domain.Score{Value: formatScore(v), Trend: domain.Trend{Raw: trend}}
}

// formatScore rounds to two decimals, as scores are published.
func formatScore(v float64) domain.Number {
	rounded, err := stats.Round(v, 2)
	if err != nil {
		rounded = v
	}
	return domain.Number{Raw: strconv.FormatFloat(rounded, 'f', -1, 64), Value: rounded}
}

func intNumber(v int) domain.OptionalNumber {
	return domain.Some(domain.Number{Raw: strconv.Itoa(v), Value: float64(v)})
}
