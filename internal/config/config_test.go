package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name           string
		yaml           string
		check          func(t *testing.T, cfg Config)
		expectError    bool
		expectedErrMsg string
	}{
		{
			name: "empty document keeps defaults",
			yaml: "",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "overrides a single threshold",
			yaml: "diagnosis:\n  secondary_margin_pct: 5\n",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 5.0, cfg.Diagnosis.SecondaryMarginPct)
				assert.Equal(t, 0.5, cfg.Diagnosis.AccumulationRatio)
				assert.Equal(t, 25, cfg.Recommendation.AgedReductionPct)
			},
		},
		{
			name: "backlog score can be made mandatory",
			yaml: "validation:\n  require_backlog_score: true\n",
			check: func(t *testing.T, cfg Config) {
				assert.True(t, cfg.Validation.RequireBacklogScore)
			},
		},
		{
			name: "keyword lists merge with defaults",
			yaml: "diagnosis:\n  keywords:\n    strategy_value: [roadmap]\n",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, []string{"roadmap"}, cfg.Diagnosis.Keywords["strategy_value"])
				assert.NotEmpty(t, cfg.Diagnosis.Keywords["execution_systems"])
			},
		},
		{
			name:           "unknown key is rejected",
			yaml:           "diagnosis:\n  margin: 5\n",
			expectError:    true,
			expectedErrMsg: "failed to parse config",
		},
		{
			name:           "turnover above accumulation is rejected",
			yaml:           "diagnosis:\n  turnover_ratio: 0.7\n",
			expectError:    true,
			expectedErrMsg: "diagnosis.turnover_ratio",
		},
		{
			name:           "too many primary recommendations",
			yaml:           "recommendation:\n  max_primary: 4\n",
			expectError:    true,
			expectedErrMsg: "recommendation.max_primary",
		},
		{
			name:           "weights must sum to one",
			yaml:           "snapshot:\n  weights:\n    execution: 0.9\n",
			expectError:    true,
			expectedErrMsg: "snapshot.weights",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.yaml))
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("reads file from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "thresholds.yaml")
		require.NoError(t, os.WriteFile(path, []byte("recommendation:\n  aged_reduction_pct: 30\n"), 0o600))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 30, cfg.Recommendation.AgedReductionPct)
		assert.Equal(t, []int{30, 20}, cfg.Percentages())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})
}
