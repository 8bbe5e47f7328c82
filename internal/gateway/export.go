package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/naka-gawa/repo-health/internal/domain"
)

// Export file names written by the upstream collector.
const (
	PullRequestsFile = "prs_raw.json"
	IssuesFile       = "issues_raw.json"
)

// Fetcher defines the behavior of a gateway for reading raw exports.
type Fetcher interface {
	FetchPullRequests(ctx context.Context) ([]domain.ExportItem, error)
	FetchIssues(ctx context.Context) ([]domain.ExportItem, error)
}

// ExportGateway reads raw PR and issue exports from a directory.
type ExportGateway struct {
	dir    string
	logger *zap.Logger
}

// NewExportGateway creates a Fetcher over the export files in dir.
func NewExportGateway(dir string, logger *zap.Logger) Fetcher {
	return &ExportGateway{dir: dir, logger: logger}
}

func (g *ExportGateway) FetchPullRequests(ctx context.Context) ([]domain.ExportItem, error) {
	g.logger.Debug("[1/2] Reading pull request export...")
	return g.readItems(ctx, PullRequestsFile)
}

func (g *ExportGateway) FetchIssues(ctx context.Context) ([]domain.ExportItem, error) {
	g.logger.Debug("[2/2] Reading issue export...")
	return g.readItems(ctx, IssuesFile)
}

func (g *ExportGateway) readItems(ctx context.Context, name string) ([]domain.ExportItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(g.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", path, err)
	}
	var items []domain.ExportItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode export %s: %w", path, err)
	}
	g.logger.Debug("Completed reading export.", zap.String("file", name), zap.Int("items", len(items)))
	return items, nil
}
