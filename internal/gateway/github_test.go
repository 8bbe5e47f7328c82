package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client to our mock server's URL.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())

	gateway := &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        zap.NewNop(),
	}
	return gateway, server
}

func TestParseTarget(t *testing.T) {
	testCases := []struct {
		name           string
		ref            string
		expected       Target
		expectedErrMsg string
	}{
		{
			name:     "happy path",
			ref:      "octo/hello#42",
			expected: Target{Kind: TargetIssue, Owner: "octo", Repo: "hello", Number: 42},
		},
		{name: "missing number", ref: "octo/hello", expectedErrMsg: "expected owner/repo#number"},
		{name: "missing owner", ref: "/hello#1", expectedErrMsg: "expected owner/repo#number"},
		{name: "nested path", ref: "octo/hello/world#1", expectedErrMsg: "expected owner/repo#number"},
		{name: "non-numeric number", ref: "octo/hello#abc", expectedErrMsg: "positive integer"},
		{name: "zero number", ref: "octo/hello#0", expectedErrMsg: "positive integer"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target, err := ParseTarget(TargetIssue, tc.ref)
			if tc.expectedErrMsg != "" {
				assert.ErrorContains(t, err, tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, target)
			assert.Equal(t, "issue octo/hello#42", target.String())
		})
	}
}

func TestGitHubGateway_PublishIssueComment(t *testing.T) {
	testCases := []struct {
		name           string
		handlerFunc    func(w http.ResponseWriter, r *http.Request)
		expectedURL    string
		expectedErrMsg string
	}{
		{
			name: "happy path - posts the digest as an issue comment",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/repos/octo/hello/issues/7/comments", r.URL.Path)
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), "## Repository Health Overview")
				w.WriteHeader(http.StatusCreated)
				fmt.Fprint(w, `{"id": 1, "html_url": "https://github.com/octo/hello/issues/7#issuecomment-1"}`)
			},
			expectedURL: "https://github.com/octo/hello/issues/7#issuecomment-1",
		},
		{
			name: "error case - GitHub API returns an error",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"message": "Internal Server Error"}`)
			},
			expectedErrMsg: "failed to create issue comment with REST API",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()

			target := Target{Kind: TargetIssue, Owner: "octo", Repo: "hello", Number: 7}
			commentURL, err := gateway.PublishIssueComment(context.Background(), target, "## Repository Health Overview\n")
			if tc.expectedErrMsg != "" {
				assert.ErrorContains(t, err, tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedURL, commentURL)
		})
	}
}

func TestGitHubGateway_PublishDiscussionComment(t *testing.T) {
	testCases := []struct {
		name             string
		queryResponse    string
		mutationResponse string
		expectedURL      string
		expectedErrMsg   string
	}{
		{
			name:             "happy path - resolves the discussion and comments on it",
			queryResponse:    `{"data":{"repository":{"discussion":{"id":"D_kwDO1"}}}}`,
			mutationResponse: `{"data":{"addDiscussionComment":{"comment":{"url":"https://github.com/octo/hello/discussions/3#discussioncomment-9"}}}}`,
			expectedURL:      "https://github.com/octo/hello/discussions/3#discussioncomment-9",
		},
		{
			name:           "error case - discussion not found",
			queryResponse:  `{"data":{"repository":{"discussion":null}}}`,
			expectedErrMsg: "discussion octo/hello#3 not found",
		},
		{
			name:           "error case - query fails",
			queryResponse:  `{"errors":[{"message":"Something went wrong"}]}`,
			expectedErrMsg: "failed to execute GraphQL query for discussion",
		},
		{
			name:             "error case - mutation fails",
			queryResponse:    `{"data":{"repository":{"discussion":{"id":"D_kwDO1"}}}}`,
			mutationResponse: `{"errors":[{"message":"Resource not accessible by integration"}]}`,
			expectedErrMsg:   "failed to execute GraphQL mutation for discussion comment",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				w.WriteHeader(http.StatusOK)
				if strings.Contains(string(body), "addDiscussionComment") {
					assert.Contains(t, string(body), "D_kwDO1")
					fmt.Fprint(w, tc.mutationResponse)
					return
				}
				assert.Contains(t, string(body), `"number":3`)
				fmt.Fprint(w, tc.queryResponse)
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
			defer server.Close()

			target := Target{Kind: TargetDiscussion, Owner: "octo", Repo: "hello", Number: 3}
			commentURL, err := gateway.PublishDiscussionComment(context.Background(), target, "digest")
			if tc.expectedErrMsg != "" {
				assert.ErrorContains(t, err, tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedURL, commentURL)
		})
	}
}
