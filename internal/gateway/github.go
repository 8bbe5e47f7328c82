// Package gateway connects the application to the world outside the pipeline:
// raw export files on disk and the GitHub API used to deliver digests.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// TargetKind selects where a digest is posted.
type TargetKind string

const (
	TargetIssue      TargetKind = "issue"
	TargetDiscussion TargetKind = "discussion"
)

// Target identifies an issue or discussion thread.
type Target struct {
	Kind   TargetKind
	Owner  string
	Repo   string
	Number int
}

func (t Target) String() string {
	return fmt.Sprintf("%s %s/%s#%d", t.Kind, t.Owner, t.Repo, t.Number)
}

// ParseTarget parses "owner/repo#number".
func ParseTarget(kind TargetKind, ref string) (Target, error) {
	repoPart, numPart, ok := strings.Cut(ref, "#")
	if !ok {
		return Target{}, fmt.Errorf("invalid target %q: expected owner/repo#number", ref)
	}
	owner, repo, ok := strings.Cut(repoPart, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Target{}, fmt.Errorf("invalid target %q: expected owner/repo#number", ref)
	}
	number, err := strconv.Atoi(numPart)
	if err != nil || number <= 0 {
		return Target{}, fmt.Errorf("invalid target %q: number must be a positive integer", ref)
	}
	return Target{Kind: kind, Owner: owner, Repo: repo, Number: number}, nil
}

// Publisher delivers a rendered digest and returns the URL of the posted comment.
type Publisher interface {
	PublishIssueComment(ctx context.Context, target Target, body string) (string, error)
	PublishDiscussionComment(ctx context.Context, target Target, body string) (string, error)
}

// GitHubGateway is the concrete implementation of the Publisher interface.
// Issue comments go through the REST API; discussions only exist in GraphQL.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *zap.Logger
}

// discussionIDQuery resolves a discussion number to its node ID.
type discussionIDQuery struct {
	Repository struct {
		Discussion struct {
			ID githubv4.ID
		} `graphql:"discussion(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// addDiscussionCommentMutation posts a comment on a discussion.
type addDiscussionCommentMutation struct {
	AddDiscussionComment struct {
		Comment struct {
			URL string
		}
	} `graphql:"addDiscussionComment(input: $input)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *zap.Logger) (Publisher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

func (g *GitHubGateway) PublishIssueComment(ctx context.Context, target Target, body string) (string, error) {
	g.logger.Debug("Posting issue comment via REST API", zap.String("target", target.String()))
	comment, _, err := g.restClient.Issues.CreateComment(ctx, target.Owner, target.Repo, target.Number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create issue comment with REST API: %w", err)
	}
	return comment.GetHTMLURL(), nil
}

func (g *GitHubGateway) PublishDiscussionComment(ctx context.Context, target Target, body string) (string, error) {
	g.logger.Debug("Resolving discussion via GraphQL", zap.String("target", target.String()))
	var q discussionIDQuery
	variables := map[string]interface{}{
		"owner":  githubv4.String(target.Owner),
		"name":   githubv4.String(target.Repo),
		"number": githubv4.Int(target.Number),
	}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return "", fmt.Errorf("failed to execute GraphQL query for discussion: %w", err)
	}
	if q.Repository.Discussion.ID == nil || q.Repository.Discussion.ID == "" {
		return "", fmt.Errorf("%s not found", target)
	}

	var m addDiscussionCommentMutation
	input := githubv4.AddDiscussionCommentInput{
		DiscussionID: q.Repository.Discussion.ID,
		Body:         githubv4.String(body),
	}
	if err := g.graphqlClient.Mutate(ctx, &m, input, nil); err != nil {
		return "", fmt.Errorf("failed to execute GraphQL mutation for discussion comment: %w", err)
	}
	g.logger.Debug("Completed posting discussion comment.")
	return m.AddDiscussionComment.Comment.URL, nil
}
