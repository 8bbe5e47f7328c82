package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-health/internal/config"
	"github.com/naka-gawa/repo-health/internal/domain"
)

func TestCompose(t *testing.T) {
	r, _ := loadReport(t, "testdata/report.json")
	cfg := config.Default()
	d := Diagnose(r, cfg.Diagnosis)
	recs := Recommend(r, d, cfg.Recommendation)

	paragraphs := Compose(r, d, recs)

	require.Len(t, paragraphs, 5)
	for _, p := range paragraphs {
		assert.NotEmpty(t, p)
		assert.NotContains(t, p, "\n")
	}
	assert.Contains(t, paragraphs[0], "Execution Systems at 40 (trend declining)")
	assert.Contains(t, paragraphs[0], "a backlog score of 35.50 (trend -4)")
	assert.Contains(t, paragraphs[0], "Overall health stands at 52.3.")
	assert.Contains(t, paragraphs[1], "The primary constraint is Execution Systems at 40")
	assert.Contains(t, paragraphs[1], string(domain.PatternAccumulation))
	assert.Contains(t, paragraphs[2], "reduce the count of open pull requests older than one year")
	assert.Contains(t, paragraphs[3], "Throughput is constrained")
	assert.Contains(t, paragraphs[4], "is trending declining")
}

func TestCompose_TiedAndSparse(t *testing.T) {
	r := scoredReport("50", "50", "50", domain.BacklogSnapshot{})
	cfg := config.Default()
	d := Diagnose(r, cfg.Diagnosis)

	paragraphs := Compose(r, d, Recommend(r, d, cfg.Recommendation))

	require.Len(t, paragraphs, 5)
	assert.NotContains(t, paragraphs[0], "backlog score")
	assert.Contains(t, paragraphs[1], "All three lenses are tied at 50")
	assert.Contains(t, paragraphs[1], "Execution Systems and Community Sustainability are reported as tied constraints")
	assert.Contains(t, paragraphs[1], "no backlog pattern is drawn")
	assert.Contains(t, paragraphs[4], "Next week's report will show")
}

func TestCompose_TwoWayTie(t *testing.T) {
	r := scoredReport("60", "40", "40", domain.BacklogSnapshot{})
	cfg := config.Default()
	d := Diagnose(r, cfg.Diagnosis)

	paragraphs := Compose(r, d, Recommend(r, d, cfg.Recommendation))

	assert.Contains(t, paragraphs[1], "Community Sustainability and Strategy Value are tied at 40")
	assert.NotContains(t, paragraphs[1], "All three")
}
