package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-health/internal/usecase"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <report.json>",
	Short: "Prints the diagnosis, recommendations and narrative as JSON",
	Long: `Runs the same pipeline as render but prints the structured result as JSON,
for tooling that wants the primary and secondary constraints without parsing Markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readReport(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		digest, err := usecase.NewSynthesizer(cfg, logger).Synthesize(data)
		if err != nil {
			return err
		}

		// Marshal the results into a pretty-printed JSON string.
		jsonData, err := json.MarshalIndent(digest, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal diagnosis to JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
