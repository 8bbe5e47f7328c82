package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeExport(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestExportGateway_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, PullRequestsFile, `[
		{"number": 5, "title": "Add cache", "state": "OPEN", "createdAt": "2024-01-02T03:04:05Z",
		 "author": {"login": "alice", "id": 1},
		 "reviews": [{"author": {"login": "bob", "id": 2}, "submittedAt": "2024-01-03T00:00:00Z", "state": "APPROVED"}]}
	]`)
	writeExport(t, dir, IssuesFile, `[
		{"number": 9, "title": "Crash", "state": "CLOSED", "createdAt": "2023-05-01T00:00:00Z",
		 "closedAt": "2023-06-01T00:00:00Z", "author": {"login": "ghost", "id": null}}
	]`)

	fetcher := NewExportGateway(dir, zap.NewNop())

	prs, err := fetcher.FetchPullRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, 5, prs[0].Number)
	assert.True(t, prs[0].IsOpen())
	id, ok := prs[0].AuthorID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)
	require.Len(t, prs[0].Reviews, 1)
	assert.Equal(t, "bob", prs[0].Reviews[0].Author.Login)

	issues, err := fetcher.FetchIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.False(t, issues[0].IsOpen())
	assert.NotNil(t, issues[0].ClosedAt)
	_, ok = issues[0].AuthorID()
	assert.False(t, ok)
}

func TestExportGateway_Errors(t *testing.T) {
	testCases := []struct {
		name           string
		setup          func(t *testing.T, dir string)
		expectedErrMsg string
	}{
		{
			name:           "missing file",
			setup:          func(t *testing.T, dir string) {},
			expectedErrMsg: "failed to read export",
		},
		{
			name: "invalid json",
			setup: func(t *testing.T, dir string) {
				writeExport(t, dir, PullRequestsFile, `{"not": "a list"}`)
			},
			expectedErrMsg: "failed to decode export",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			tc.setup(t, dir)
			_, err := NewExportGateway(dir, zap.NewNop()).FetchPullRequests(context.Background())
			assert.ErrorContains(t, err, tc.expectedErrMsg)
		})
	}
}

func TestExportGateway_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExportGateway(t.TempDir(), zap.NewNop()).FetchIssues(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
