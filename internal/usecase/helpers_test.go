package usecase

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-health/internal/domain"
	"github.com/naka-gawa/repo-health/internal/schema"
)

func num(raw string) domain.Number {
	n, ok := domain.NewNumber(raw)
	if !ok {
		panic("bad test number " + raw)
	}
	return n
}

func some(raw string) domain.OptionalNumber {
	return domain.Some(num(raw))
}

// scoredReport builds a report with the three lens scores and the given snapshot.
func scoredReport(exec, community, strategy string, snap domain.BacklogSnapshot, flags ...string) *domain.Report {
	return &domain.Report{
		Metrics: domain.Metrics{
			Execution: domain.Score{Value: num(exec)},
			Community: domain.Score{Value: num(community)},
			Strategy:  domain.Score{Value: num(strategy)},
		},
		BacklogSnapshot: snap,
		RiskFlags:       flags,
		StalledActions:  []domain.StalledAction{},
	}
}

func loadReport(t *testing.T, path string) (*domain.Report, []byte) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	report, err := schema.Parse(raw)
	require.NoError(t, err)
	return report, raw
}
