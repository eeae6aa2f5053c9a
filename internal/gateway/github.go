package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prlab/prcrawl/internal/config"
	"github.com/prlab/prcrawl/internal/domain"
)

// ErrUnavailable marks a structurally unusable response: the repository
// or pull request came back null, or an expected key was missing. The
// affected item is skipped; the error never aborts a run.
var ErrUnavailable = errors.New("entity not present in response")

// RepositoryPage is one page of the top-repository search.
type RepositoryPage struct {
	Repositories []domain.Repository
	EndCursor    string
	HasNextPage  bool
}

// PullRequestPage is one page of a repository's pull request collection.
// The pull requests carry only the fields of the page query; details and
// counters are filled in by the dependent fetches.
type PullRequestPage struct {
	PullRequests []domain.PullRequest
	EndCursor    string
	HasNextPage  bool
}

// PullRequestDetails holds the per-PR fields fetched by the details query.
type PullRequestDetails struct {
	Title        string `json:"title"`
	BodyText     string `json:"bodyText"`
	ChangedFiles int    `json:"changedFiles"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
}

// Fetcher defines the behavior of a gateway for fetching crawl data from
// GitHub. The usecase layer depends on this interface so tests can swap
// in a mock.
type Fetcher interface {
	SearchRepositories(ctx context.Context, first int, cursor string) (*RepositoryPage, error)
	RepositoryPRCount(ctx context.Context, owner, name string) (int, error)
	PullRequests(ctx context.Context, owner, name string, first int, cursor string) (*PullRequestPage, error)
	PullRequestDetails(ctx context.Context, owner, name string, number int) (*PullRequestDetails, error)
	PullRequestReviewCount(ctx context.Context, owner, name string, number int) (int, error)
	PullRequestCommentCount(ctx context.Context, owner, name string, number int) (int, error)
	PullRequestParticipantCount(ctx context.Context, owner, name string, number int) (int, error)
}

// GitHubGateway is the concrete Fetcher over the retrying Client.
type GitHubGateway struct {
	client *Client
	logger *log.Logger
}

// NewGitHubGateway builds the gateway from configuration.
func NewGitHubGateway(cfg *config.Config, logger *log.Logger) *GitHubGateway {
	return &GitHubGateway{
		client: NewClient(cfg, logger),
		logger: logger,
	}
}

// Response shapes, decoded once here at the boundary. Nullable nested
// objects are pointers so "absent" and "zero" stay distinguishable.

type searchPayload struct {
	Search struct {
		Nodes []struct {
			Name  string `json:"name"`
			Owner *struct {
				Login string `json:"login"`
			} `json:"owner"`
			URL             string    `json:"url"`
			StargazerCount  int       `json:"stargazerCount"`
			ForkCount       int       `json:"forkCount"`
			CreatedAt       time.Time `json:"createdAt"`
			UpdatedAt       time.Time `json:"updatedAt"`
			PrimaryLanguage *struct {
				Name string `json:"name"`
			} `json:"primaryLanguage"`
			LicenseInfo *struct {
				Name string `json:"name"`
			} `json:"licenseInfo"`
		} `json:"nodes"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"search"`
}

type pageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

type repoCountPayload struct {
	Repository *struct {
		PullRequests domain.Count `json:"pullRequests"`
	} `json:"repository"`
}

type pullsPayload struct {
	Repository *struct {
		PullRequests struct {
			TotalCount int      `json:"totalCount"`
			PageInfo   pageInfo `json:"pageInfo"`
			Nodes      []struct {
				Number    int        `json:"number"`
				State     string     `json:"state"`
				CreatedAt time.Time  `json:"createdAt"`
				MergedAt  *time.Time `json:"mergedAt"`
				ClosedAt  *time.Time `json:"closedAt"`
			} `json:"nodes"`
		} `json:"pullRequests"`
	} `json:"repository"`
}

type prDetailsPayload struct {
	Repository *struct {
		PullRequest *PullRequestDetails `json:"pullRequest"`
	} `json:"repository"`
}

type prCountPayload struct {
	Repository *struct {
		PullRequest *struct {
			Reviews      *domain.Count `json:"reviews"`
			Comments     *domain.Count `json:"comments"`
			Participants *domain.Count `json:"participants"`
		} `json:"pullRequest"`
	} `json:"repository"`
}

// SearchRepositories fetches one page of the star-ordered repository
// search. Nodes without an owner login are dropped silently; the search
// index occasionally returns half-deleted repositories.
func (g *GitHubGateway) SearchRepositories(ctx context.Context, first int, cursor string) (*RepositoryPage, error) {
	variables := map[string]any{"first": first, "cursor": cursorVar(cursor)}
	resp, err := g.client.Execute(ctx, queryRepositories, variables)
	if err != nil {
		return nil, err
	}

	var payload searchPayload
	if err := decodeData(resp, &payload); err != nil {
		return nil, err
	}

	page := &RepositoryPage{
		EndCursor:   payload.Search.PageInfo.EndCursor,
		HasNextPage: payload.Search.PageInfo.HasNextPage,
	}
	for _, node := range payload.Search.Nodes {
		if node.Owner == nil || node.Owner.Login == "" || node.Name == "" {
			continue
		}
		repo := domain.Repository{
			Owner:     node.Owner.Login,
			Name:      node.Name,
			URL:       node.URL,
			Stars:     node.StargazerCount,
			Forks:     node.ForkCount,
			CreatedAt: node.CreatedAt,
			UpdatedAt: node.UpdatedAt,
		}
		if node.PrimaryLanguage != nil {
			repo.Language = node.PrimaryLanguage.Name
		}
		if node.LicenseInfo != nil {
			repo.License = node.LicenseInfo.Name
		}
		page.Repositories = append(page.Repositories, repo)
	}
	return page, nil
}

// RepositoryPRCount resolves the secondary filter counter for one
// repository.
func (g *GitHubGateway) RepositoryPRCount(ctx context.Context, owner, name string) (int, error) {
	variables := map[string]any{"owner": owner, "name": name}
	resp, err := g.client.Execute(ctx, queryRepositoryPRCount, variables)
	if err != nil {
		return 0, err
	}

	var payload repoCountPayload
	if err := decodeData(resp, &payload); err != nil {
		return 0, err
	}
	if payload.Repository == nil {
		return 0, fmt.Errorf("repository %s/%s: %w", owner, name, ErrUnavailable)
	}
	return payload.Repository.PullRequests.TotalCount, nil
}

// PullRequests fetches one page of a repository's merged/closed PRs.
func (g *GitHubGateway) PullRequests(ctx context.Context, owner, name string, first int, cursor string) (*PullRequestPage, error) {
	variables := map[string]any{
		"owner":  owner,
		"name":   name,
		"first":  first,
		"cursor": cursorVar(cursor),
	}
	resp, err := g.client.Execute(ctx, queryPullRequests, variables)
	if err != nil {
		return nil, err
	}

	var payload pullsPayload
	if err := decodeData(resp, &payload); err != nil {
		return nil, err
	}
	if payload.Repository == nil {
		return nil, fmt.Errorf("repository %s/%s: %w", owner, name, ErrUnavailable)
	}

	prs := payload.Repository.PullRequests
	page := &PullRequestPage{
		EndCursor:   prs.PageInfo.EndCursor,
		HasNextPage: prs.PageInfo.HasNextPage,
	}
	for _, node := range prs.Nodes {
		if node.Number == 0 {
			continue
		}
		page.PullRequests = append(page.PullRequests, domain.PullRequest{
			Owner:     owner,
			Repo:      name,
			Number:    node.Number,
			State:     node.State,
			CreatedAt: node.CreatedAt,
			MergedAt:  node.MergedAt,
			ClosedAt:  node.ClosedAt,
		})
	}
	return page, nil
}

// PullRequestDetails fetches title, body and change counts for one PR.
func (g *GitHubGateway) PullRequestDetails(ctx context.Context, owner, name string, number int) (*PullRequestDetails, error) {
	resp, err := g.client.Execute(ctx, queryPullRequestDetails, prVariables(owner, name, number))
	if err != nil {
		return nil, err
	}

	var payload prDetailsPayload
	if err := decodeData(resp, &payload); err != nil {
		return nil, err
	}
	if payload.Repository == nil || payload.Repository.PullRequest == nil {
		return nil, fmt.Errorf("pull request %s/%s#%d: %w", owner, name, number, ErrUnavailable)
	}
	return payload.Repository.PullRequest, nil
}

// PullRequestReviewCount fetches the review counter for one PR.
func (g *GitHubGateway) PullRequestReviewCount(ctx context.Context, owner, name string, number int) (int, error) {
	return g.fetchPRCount(ctx, queryPullRequestReviewCount, owner, name, number,
		func(p *prCountPayload) *domain.Count { return p.Repository.PullRequest.Reviews })
}

// PullRequestCommentCount fetches the comment counter for one PR.
func (g *GitHubGateway) PullRequestCommentCount(ctx context.Context, owner, name string, number int) (int, error) {
	return g.fetchPRCount(ctx, queryPullRequestCommentCount, owner, name, number,
		func(p *prCountPayload) *domain.Count { return p.Repository.PullRequest.Comments })
}

// PullRequestParticipantCount fetches the participant counter for one PR.
func (g *GitHubGateway) PullRequestParticipantCount(ctx context.Context, owner, name string, number int) (int, error) {
	return g.fetchPRCount(ctx, queryPullRequestParticipantCount, owner, name, number,
		func(p *prCountPayload) *domain.Count { return p.Repository.PullRequest.Participants })
}

func (g *GitHubGateway) fetchPRCount(ctx context.Context, query, owner, name string, number int, pick func(*prCountPayload) *domain.Count) (int, error) {
	resp, err := g.client.Execute(ctx, query, prVariables(owner, name, number))
	if err != nil {
		return 0, err
	}

	var payload prCountPayload
	if err := decodeData(resp, &payload); err != nil {
		return 0, err
	}
	if payload.Repository == nil || payload.Repository.PullRequest == nil {
		return 0, fmt.Errorf("pull request %s/%s#%d: %w", owner, name, number, ErrUnavailable)
	}
	count := pick(&payload)
	if count == nil {
		return 0, fmt.Errorf("pull request %s/%s#%d counter: %w", owner, name, number, ErrUnavailable)
	}
	return count.TotalCount, nil
}

func prVariables(owner, name string, number int) map[string]any {
	return map[string]any{"owner": owner, "name": name, "number": number}
}

// cursorVar maps the empty cursor to GraphQL null for the first page.
func cursorVar(cursor string) any {
	if cursor == "" {
		return nil
	}
	return cursor
}

func decodeData(resp *Response, v any) error {
	if len(resp.Errors) > 0 {
		return fmt.Errorf("query returned errors: %s", resp.Errors[0].Message)
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("response has no data: %w", ErrUnavailable)
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
