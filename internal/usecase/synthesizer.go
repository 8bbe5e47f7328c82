// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/repo-health/internal/config"
	"github.com/naka-gawa/repo-health/internal/domain"
	"github.com/naka-gawa/repo-health/internal/gateway"
	"github.com/naka-gawa/repo-health/internal/render"
	"github.com/naka-gawa/repo-health/internal/schema"
)

// Synthesizer runs the report pipeline: validate, diagnose, recommend,
// compose and render. It holds no per-report state and is safe for
// concurrent use.
type Synthesizer struct {
	cfg    config.Config
	logger *zap.Logger
}

// NewSynthesizer creates a new Synthesizer instance.
func NewSynthesizer(cfg config.Config, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		cfg:    cfg,
		logger: logger,
	}
}

// Synthesize validates a raw payload and derives its digest. A malformed
// payload returns *domain.MalformedReportError and no digest.
func (s *Synthesizer) Synthesize(raw []byte) (*domain.Digest, error) {
	var opts []schema.Option
	if s.cfg.Validation.RequireBacklogScore {
		opts = append(opts, schema.RequireBacklogScore())
	}
	report, err := schema.Parse(raw, opts...)
	if err != nil {
		return nil, err
	}
	diag := Diagnose(report, s.cfg.Diagnosis)
	for _, omitted := range diag.Omitted {
		s.logger.Debug("Diagnosis clause omitted", zap.String("clause", omitted.Clause), zap.String("field", omitted.Field))
	}
	recs := Recommend(report, diag, s.cfg.Recommendation)
	s.logger.Debug("Diagnosis complete",
		zap.String("primary", string(diag.Primary.Lens)),
		zap.Bool("secondary", diag.Secondary != nil),
		zap.Int("recommendations", len(recs)))

	return &domain.Digest{
		Report:          report,
		Diagnosis:       diag,
		Recommendations: recs,
		Narrative:       Compose(report, diag, recs),
	}, nil
}

// Render turns a raw payload into the Markdown digest.
func (s *Synthesizer) Render(raw []byte) (string, error) {
	digest, err := s.Synthesize(raw)
	if err != nil {
		return "", err
	}
	return render.Markdown(digest), nil
}

// Input is one named report payload.
type Input struct {
	Name string
	Data []byte
}

// Output is the rendered Markdown for the Input of the same Name.
type Output struct {
	Name     string
	Markdown string
}

// RenderAll renders several reports concurrently. Outputs keep input order.
// The first failure cancels the remaining work and is returned with the
// name of the report that caused it.
func (s *Synthesizer) RenderAll(ctx context.Context, inputs []Input) ([]Output, error) {
	s.logger.Debug("Rendering reports", zap.Int("count", len(inputs)))
	outputs := make([]Output, len(inputs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			md, err := s.Render(in.Data)
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", in.Name, err)
			}
			outputs[i] = Output{Name: in.Name, Markdown: md}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	s.logger.Debug("All reports rendered")
	return outputs, nil
}

// Publish delivers a rendered digest to the given target.
func (s *Synthesizer) Publish(ctx context.Context, publisher gateway.Publisher, target gateway.Target, markdown string) (string, error) {
	s.logger.Info("Publishing digest", zap.String("target", target.String()))
	var (
		url string
		err error
	)
	switch target.Kind {
	case gateway.TargetIssue:
		url, err = publisher.PublishIssueComment(ctx, target, markdown)
	case gateway.TargetDiscussion:
		url, err = publisher.PublishDiscussionComment(ctx, target, markdown)
	default:
		return "", fmt.Errorf("unsupported publish target kind %q", target.Kind)
	}
	if err != nil {
		return "", fmt.Errorf("failed to publish digest: %w", err)
	}
	s.logger.Info("Digest published", zap.String("url", url))
	return url, nil
}
