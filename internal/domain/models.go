// Package domain contains the core data structures of the crawl.
package domain

import "time"

// Count is a nested totalCount counter as GitHub's GraphQL API returns it.
// A zero value means "defined and zero"; absence is expressed by the
// enclosing field never being populated.
type Count struct {
	TotalCount int `json:"totalCount"`
}

// Repository is a top-level entity selected for analysis. Identity is
// (Owner, Name). PullRequestCount is resolved by a separate lookup after
// the search page that produced the rest of the fields.
type Repository struct {
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Stars     int       `json:"stars"`
	Forks     int       `json:"forks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Language  string    `json:"language"`
	License   string    `json:"license"`

	PullRequestCount int `json:"pullRequestCount"`
}

// FullName returns the owner/name identity string.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// PullRequest is a detail item belonging to one repository. MergedAt and
// ClosedAt are nil when the API returned null for them; a PR with neither
// has no determinable terminal state and is never retained.
type PullRequest struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
	State  string `json:"state"`

	CreatedAt time.Time  `json:"createdAt"`
	MergedAt  *time.Time `json:"mergedAt,omitempty"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`

	Title        string `json:"title"`
	BodyText     string `json:"bodyText"`
	ChangedFiles int    `json:"changedFiles"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`

	Reviews      Count `json:"reviews"`
	Comments     Count `json:"comments"`
	Participants Count `json:"participants"`

	DurationHours float64 `json:"duration_hours"`
}

// EndTime returns the terminal timestamp for duration purposes: mergedAt
// for merged PRs, closedAt otherwise. The second return is false when the
// PR has no terminal state.
func (pr PullRequest) EndTime() (time.Time, bool) {
	if pr.State == "MERGED" && pr.MergedAt != nil {
		return *pr.MergedAt, true
	}
	if pr.ClosedAt != nil {
		return *pr.ClosedAt, true
	}
	return time.Time{}, false
}

// Merged reports the binary merge outcome used by the correlation studies.
func (pr PullRequest) Merged() bool {
	return pr.State == "MERGED"
}
