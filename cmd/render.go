package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/repo-health/internal/gateway"
	"github.com/naka-gawa/repo-health/internal/usecase"
)

var (
	renderOutputDir   string
	renderPretty      bool
	renderWatch       bool
	publishIssue      string
	publishDiscussion string
)

var renderCmd = &cobra.Command{
	Use:   "render <report.json>...",
	Short: "Renders health reports into Markdown digests",
	Long: `Renders one or more health reports into Markdown digests. Use "-" to read a
report from standard input. Digests go to standard output unless --output-dir is
set, in which case each report.json is written as report.md.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	target, publish, err := publishTarget()
	if err != nil {
		return err
	}
	if publish && len(args) != 1 {
		return fmt.Errorf("publishing requires exactly one report, got %d", len(args))
	}
	if publish && renderWatch {
		return fmt.Errorf("--watch cannot be combined with publishing")
	}

	synth := usecase.NewSynthesizer(cfg, logger)
	renderOnce := func() error {
		inputs, err := readInputs(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		outputs, err := synth.RenderAll(ctx, inputs)
		if err != nil {
			return err
		}
		if err := writeOutputs(cmd.OutOrStdout(), outputs); err != nil {
			return err
		}
		if !publish {
			return nil
		}
		publisher, err := newPublisher()
		if err != nil {
			return err
		}
		url, err := synth.Publish(ctx, publisher, target, outputs[0].Markdown)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Published digest to %s\n", url)
		return nil
	}

	if !renderWatch {
		return renderOnce()
	}
	if err := renderOnce(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return watchFiles(ctx, args, func(path string) {
		logger.Info("Report changed, re-rendering", zap.String("path", path))
		if err := renderOnce(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
}

func publishTarget() (gateway.Target, bool, error) {
	switch {
	case publishIssue != "" && publishDiscussion != "":
		return gateway.Target{}, false, fmt.Errorf("--publish-issue and --publish-discussion are mutually exclusive")
	case publishIssue != "":
		t, err := gateway.ParseTarget(gateway.TargetIssue, publishIssue)
		return t, err == nil, err
	case publishDiscussion != "":
		t, err := gateway.ParseTarget(gateway.TargetDiscussion, publishDiscussion)
		return t, err == nil, err
	}
	return gateway.Target{}, false, nil
}

func newPublisher() (gateway.Publisher, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}
	publisher, err := gateway.NewGitHubGateway(token, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	return publisher, nil
}

func readInputs(stdin io.Reader, paths []string) ([]usecase.Input, error) {
	inputs := make([]usecase.Input, 0, len(paths))
	for _, p := range paths {
		data, err := readReport(stdin, p)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, usecase.Input{Name: p, Data: data})
	}
	return inputs, nil
}

func readReport(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read report from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	return data, nil
}

func writeOutputs(w io.Writer, outputs []usecase.Output) error {
	if renderOutputDir != "" {
		if err := os.MkdirAll(renderOutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		for _, o := range outputs {
			path := filepath.Join(renderOutputDir, digestFileName(o.Name))
			if err := os.WriteFile(path, []byte(o.Markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write digest %s: %w", path, err)
			}
			logger.Debug("Digest written", zap.String("path", path))
		}
		return nil
	}

	for i, o := range outputs {
		md := o.Markdown
		if renderPretty {
			var err error
			if md, err = prettify(md); err != nil {
				return err
			}
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		if _, err := io.WriteString(w, md); err != nil {
			return fmt.Errorf("failed to write digest: %w", err)
		}
	}
	return nil
}

func digestFileName(input string) string {
	if input == "-" {
		return "stdin.md"
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".md"
}

// prettify renders Markdown for a terminal.
func prettify(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render for terminal: %w", err)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutputDir, "output-dir", "o", "", "Write one .md digest per report into this directory")
	renderCmd.Flags().BoolVar(&renderPretty, "pretty", false, "Style the digest for the terminal")
	renderCmd.Flags().BoolVarP(&renderWatch, "watch", "w", false, "Re-render whenever a report file changes")
	renderCmd.Flags().StringVar(&publishIssue, "publish-issue", "", "Post the digest as a comment on owner/repo#number")
	renderCmd.Flags().StringVar(&publishDiscussion, "publish-discussion", "", "Post the digest as a comment on discussion owner/repo#number")
	renderCmd.MarkFlagsMutuallyExclusive("output-dir", "pretty")
}
