package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-health/internal/domain"
	"github.com/naka-gawa/repo-health/internal/gateway"
	"github.com/naka-gawa/repo-health/internal/usecase"
)

var (
	snapshotDataDir  string
	snapshotStrategy string
	snapshotTrends   map[string]string
	snapshotAsOf     string
	snapshotOutput   string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Builds a health report from raw PR and issue exports",
	Long: `Reads prs_raw.json and issues_raw.json from --data-dir and writes a health
report in the format that render and diagnose accept. The strategy score cannot be
derived from exports and must be given with --strategy-score.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, ok := domain.NewNumber(snapshotStrategy)
		if !ok || !json.Valid([]byte(snapshotStrategy)) {
			return fmt.Errorf("invalid --strategy-score %q: must be a number", snapshotStrategy)
		}
		now := time.Now().UTC()
		if snapshotAsOf != "" {
			var err error
			if now, err = time.Parse(time.RFC3339, snapshotAsOf); err != nil {
				return fmt.Errorf("invalid --as-of date format, please use RFC 3339: %w", err)
			}
		}

		// Inject dependencies and run the main business logic.
		aggregator := usecase.NewAggregator(gateway.NewExportGateway(snapshotDataDir, logger), cfg.Snapshot, logger)
		report, err := aggregator.Aggregate(cmd.Context(), usecase.AggregateOptions{
			Now:           now,
			StrategyScore: strategy,
			Trends:        snapshotTrends,
		})
		if err != nil {
			return fmt.Errorf("failed to aggregate exports: %w", err)
		}

		jsonData, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report to JSON: %w", err)
		}
		jsonData = append(jsonData, '\n')
		if snapshotOutput == "" {
			_, err = cmd.OutOrStdout().Write(jsonData)
			return err
		}
		if err := os.WriteFile(snapshotOutput, jsonData, 0o644); err != nil {
			return fmt.Errorf("failed to write report %s: %w", snapshotOutput, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotDataDir, "data-dir", "d", ".", "Directory holding prs_raw.json and issues_raw.json")
	snapshotCmd.Flags().StringVarP(&snapshotStrategy, "strategy-score", "s", "", "Strategy value score, 0-100 (required)")
	snapshotCmd.Flags().StringToStringVar(&snapshotTrends, "trend", nil, "Trend per lens, e.g. execution_systems=declining,backlog=-4")
	snapshotCmd.Flags().StringVar(&snapshotAsOf, "as-of", "", "Compute ages as of this RFC 3339 time instead of now")
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "Write the report to this file instead of standard output")
	snapshotCmd.MarkFlagRequired("strategy-score")
}
