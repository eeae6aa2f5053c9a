package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prlab/prcrawl/internal/domain"
)

func samplePR(number int) domain.PullRequest {
	created := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	merged := created.Add(48 * time.Hour)
	return domain.PullRequest{
		Owner:         "golang",
		Repo:          "go",
		Number:        number,
		State:         "MERGED",
		CreatedAt:     created,
		MergedAt:      &merged,
		ClosedAt:      &merged,
		Title:         "sync: fix race in pool cleanup",
		BodyText:      "Found while stress testing.",
		ChangedFiles:  2,
		Additions:     30,
		Deletions:     4,
		Reviews:       domain.Count{TotalCount: 3},
		Comments:      domain.Count{TotalCount: 7},
		Participants:  domain.Count{TotalCount: 4},
		DurationHours: 48,
	}
}

func TestSaveLoadPullRequests_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pull_requests.csv")
	original := []domain.PullRequest{samplePR(1), samplePR(2)}

	require.NoError(t, SavePullRequests(path, original))
	loaded, err := LoadPullRequests(path)
	require.NoError(t, err)

	assert.Equal(t, original, loaded)
}

func TestSavePullRequests_EmptyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	err := SavePullRequests(path, nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

// An earlier producer revision wrote nested counters as single-quoted
// literals. The loader has to accept those rows transparently.
func TestLoadPullRequests_SingleQuotedCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write([]string{
		"owner", "repo", "number", "state", "createdAt", "mergedAt", "closedAt",
		"title", "bodyText", "changedFiles", "additions", "deletions",
		"reviews", "comments", "participants", "duration_hours",
	}))
	require.NoError(t, w.Write([]string{
		"rails", "rails", "42", "CLOSED", "2023-01-01T00:00:00Z", "", "2023-01-02T00:00:00Z",
		"t", "b", "5", "100", "20",
		"{'totalCount': 2}", "{'totalCount': 9}", "{'totalCount': 3}", "24",
	}))
	w.Flush()
	require.NoError(t, f.Close())

	prs, err := LoadPullRequests(path)
	require.NoError(t, err)
	require.Len(t, prs, 1)

	pr := prs[0]
	assert.Equal(t, 2, pr.Reviews.TotalCount)
	assert.Equal(t, 9, pr.Comments.TotalCount)
	assert.Equal(t, 3, pr.Participants.TotalCount)
	assert.Nil(t, pr.MergedAt)
	require.NotNil(t, pr.ClosedAt)
	assert.Equal(t, 24.0, pr.DurationHours)
}

func TestParseCell(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected any
	}{
		{
			name:     "strict json",
			raw:      `{"totalCount": 5}`,
			expected: map[string]any{"totalCount": float64(5)},
		},
		{
			name:     "single quoted literal",
			raw:      `{'totalCount': 5}`,
			expected: map[string]any{"totalCount": float64(5)},
		},
		{
			name:     "unparseable passes through unchanged",
			raw:      `{not valid at all`,
			expected: `{not valid at all`,
		},
		{
			name:     "plain value passes through",
			raw:      "hello",
			expected: "hello",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseCell(tc.raw))
		})
	}
}

func TestParseCount_Dialects(t *testing.T) {
	assert.Equal(t, 7, ParseCount(`{"totalCount": 7}`).TotalCount)
	assert.Equal(t, 7, ParseCount(`{'totalCount': 7}`).TotalCount)
	assert.Equal(t, 0, ParseCount("garbage").TotalCount)
	assert.Equal(t, 0, ParseCount("").TotalCount)
}

func TestSaveLoadRepositories_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.csv")
	original := []domain.Repository{{
		Owner:            "torvalds",
		Name:             "linux",
		URL:              "https://github.com/torvalds/linux",
		Stars:            170000,
		Forks:            53000,
		CreatedAt:        time.Date(2011, 9, 4, 22, 48, 12, 0, time.UTC),
		UpdatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Language:         "C",
		License:          "GPL-2.0",
		PullRequestCount: 840,
	}}

	require.NoError(t, SaveRepositories(path, original))
	loaded, err := LoadRepositories(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}
