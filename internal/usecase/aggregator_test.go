package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/repo-health/internal/config"
	"github.com/naka-gawa/repo-health/internal/domain"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate export files without touching the disk.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchPullRequests(ctx context.Context) ([]domain.ExportItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExportItem), args.Error(1)
}

func (m *mockFetcher) FetchIssues(ctx context.Context) ([]domain.ExportItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExportItem), args.Error(1)
}

var snapshotNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func actor(login string, id int64) *domain.Actor {
	return &domain.Actor{Login: login, ID: &id}
}

func daysAgo(d int) time.Time {
	return snapshotNow.AddDate(0, 0, -d)
}

func sampleExports() (prs, issues []domain.ExportItem) {
	merged := daysAgo(8)
	closed := daysAgo(5)
	prs = []domain.ExportItem{
		{Number: 1, State: domain.StateOpen, CreatedAt: daysAgo(400), Author: actor("alice", 1)},
		{Number: 2, State: domain.StateOpen, CreatedAt: daysAgo(200), Author: actor("bob", 2)},
		{
			Number: 3, State: domain.StateMerged, CreatedAt: daysAgo(10), MergedAt: &merged, Author: actor("alice", 1),
			Comments: []domain.Comment{
				{Author: actor("codecov[bot]", 99), CreatedAt: daysAgo(10).Add(time.Minute)},
				{Author: actor("carol", 3), CreatedAt: daysAgo(10).Add(time.Hour)},
			},
			Reviews: []domain.Review{{Author: actor("carol", 3), SubmittedAt: daysAgo(9), State: "APPROVED"}},
		},
	}
	issues = []domain.ExportItem{
		{Number: 10, State: domain.StateOpen, CreatedAt: daysAgo(800), Author: actor("dave", 4)},
		{Number: 11, State: domain.StateOpen, CreatedAt: daysAgo(30), Author: actor("alice", 1)},
		{Number: 12, State: domain.StateClosed, CreatedAt: daysAgo(60), ClosedAt: &closed, Author: actor("erin", 5)},
	}
	return prs, issues
}

func TestAggregator_Aggregate(t *testing.T) {
	prs, issues := sampleExports()
	strategy := domain.Number{Raw: "55", Value: 55}

	testCases := []struct {
		name          string
		mockPRs       []domain.ExportItem
		mockIssues    []domain.ExportItem
		mockPRErr     error
		mockIssueErr  error
		strategyScore domain.Number
		expectError   string
	}{
		{
			name:          "happy path - builds a report from both exports",
			mockPRs:       prs,
			mockIssues:    issues,
			strategyScore: strategy,
		},
		{
			name:          "error case - pull request export fails",
			mockPRErr:     errors.New("disk error"),
			mockIssues:    issues,
			strategyScore: strategy,
			expectError:   "disk error",
		},
		{
			name:          "error case - issue export fails",
			mockPRs:       prs,
			mockIssueErr:  errors.New("bad json"),
			strategyScore: strategy,
			expectError:   "bad json",
		},
		{
			name:        "error case - strategy score missing",
			mockPRs:     prs,
			mockIssues:  issues,
			expectError: "strategy score is required",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			fetcher.On("FetchPullRequests", mock.Anything).Return(tc.mockPRs, tc.mockPRErr)
			fetcher.On("FetchIssues", mock.Anything).Return(tc.mockIssues, tc.mockIssueErr)

			aggregator := NewAggregator(fetcher, config.Default().Snapshot, zap.NewNop())
			report, err := aggregator.Aggregate(context.Background(), AggregateOptions{
				Now:           snapshotNow,
				StrategyScore: tc.strategyScore,
				Trends:        map[string]string{"execution_systems": "declining"},
			})

			if tc.expectError != "" {
				assert.ErrorContains(t, err, tc.expectError)
				assert.Nil(t, report)
				return
			}
			require.NoError(t, err)

			snap := report.BacklogSnapshot
			assert.Equal(t, "2", snap.OpenPRs.Raw)
			assert.Equal(t, "2", snap.OpenIssues.Raw)
			assert.Equal(t, "1", snap.PRsOver365.Raw)
			assert.Equal(t, "1", snap.IssuesOver365.Raw)
			assert.Equal(t, "1", snap.IssuesOver730.Raw)
			assert.Equal(t, "400", snap.MedianPRAge.Raw)
			assert.Equal(t, "800", snap.MedianIssueAge.Raw)

			assert.Equal(t, []string{
				"50% of open PRs are over 1 year old",
				"50% of open issues are over 2 years old",
			}, report.RiskFlags)

			var ids []string
			for _, a := range report.StalledActions {
				ids = append(ids, a.Identifier)
			}
			assert.Equal(t, []string{"#1", "#10", "#2"}, ids)

			assert.Equal(t, "55", report.Metrics.Strategy.Value.Raw)
			assert.Equal(t, "declining", report.Metrics.Execution.Trend.Raw)
			assert.True(t, report.Metrics.Overall.Present)
			assert.Equal(t, "2025-06-01T12:00:00Z", report.GeneratedAt)

			fetcher.AssertExpectations(t)
		})
	}
}

func TestAggregator_EmptyExports(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchPullRequests", mock.Anything).Return([]domain.ExportItem{}, nil)
	fetcher.On("FetchIssues", mock.Anything).Return([]domain.ExportItem{}, nil)

	aggregator := NewAggregator(fetcher, config.Default().Snapshot, zap.NewNop())
	report, err := aggregator.Aggregate(context.Background(), AggregateOptions{
		Now:           snapshotNow,
		StrategyScore: domain.Number{Raw: "70", Value: 70},
	})

	require.NoError(t, err)
	assert.Equal(t, "0", report.BacklogSnapshot.OpenPRs.Raw)
	assert.Equal(t, "0", report.BacklogSnapshot.MedianIssueAge.Raw)
	assert.NotNil(t, report.RiskFlags)
	assert.Empty(t, report.RiskFlags)
	assert.NotNil(t, report.StalledActions)
	assert.Empty(t, report.StalledActions)
}

func TestUpperMedian(t *testing.T) {
	testCases := []struct {
		name     string
		ages     []float64
		expected int
	}{
		{"empty", nil, 0},
		{"single", []float64{42}, 42},
		{"odd count", []float64{30, 5, 12}, 12},
		{"even count takes the upper middle", []float64{21, 10}, 21},
		{"even count unsorted", []float64{90, 3, 40, 7}, 40},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, upperMedian(tc.ages))
		})
	}
}

func TestAggregator_EvenBacklogMedian(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchPullRequests", mock.Anything).Return([]domain.ExportItem{}, nil)
	fetcher.On("FetchIssues", mock.Anything).Return([]domain.ExportItem{
		{Number: 1, State: domain.StateOpen, CreatedAt: daysAgo(10), Author: actor("alice", 1)},
		{Number: 2, State: domain.StateOpen, CreatedAt: daysAgo(21), Author: actor("bob", 2)},
	}, nil)

	aggregator := NewAggregator(fetcher, config.Default().Snapshot, zap.NewNop())
	report, err := aggregator.Aggregate(context.Background(), AggregateOptions{
		Now:           snapshotNow,
		StrategyScore: domain.Number{Raw: "70", Value: 70},
	})

	require.NoError(t, err)
	assert.Equal(t, "21", report.BacklogSnapshot.MedianIssueAge.Raw)
}
