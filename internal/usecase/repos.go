// Package usecase contains the crawl orchestration: repository selection
// and per-repository pull request aggregation.
package usecase

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/prlab/prcrawl/internal/config"
	"github.com/prlab/prcrawl/internal/domain"
	"github.com/prlab/prcrawl/internal/gateway"
)

// RepoGatherer walks the star-ordered repository search and selects
// repositories whose merged/closed PR count clears the configured
// minimum. The PR count is not part of the search payload, so it is
// resolved by a concurrent lookup per candidate; candidates win a slot in
// completion order, not search order.
type RepoGatherer struct {
	fetcher gateway.Fetcher
	logger  *log.Logger

	pageSize     int
	candidateCap int
	minPRCount   int
	workers      int

	Progress Progress
}

// NewRepoGatherer builds a gatherer from configuration.
func NewRepoGatherer(fetcher gateway.Fetcher, cfg *config.Config, logger *log.Logger) *RepoGatherer {
	return &RepoGatherer{
		fetcher:      fetcher,
		logger:       logger,
		pageSize:     cfg.RepoPageSize,
		candidateCap: cfg.CandidateCap,
		minPRCount:   cfg.MinPRCount,
		workers:      cfg.RepoWorkers,
	}
}

// Gather collects up to limit repositories. A supervisor consumes lookup
// completions and cancels outstanding work once the quota is met;
// lookups already running finish against the cancelled context and their
// results are discarded. Individual lookup failures skip the candidate
// and never abort the walk.
func (g *RepoGatherer) Gather(ctx context.Context, limit int) ([]domain.Repository, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	candidates := make(chan domain.Repository)
	results := make(chan domain.Repository)

	go g.producePages(ctx, candidates)

	go func() {
		defer close(results)
		var eg errgroup.Group
		eg.SetLimit(g.workers)
		for candidate := range candidates {
			candidate := candidate
			eg.Go(func() error {
				g.lookup(ctx, candidate, results)
				return nil
			})
		}
		_ = eg.Wait()
	}()

	accepted := make([]domain.Repository, 0, limit)
	for repo := range results {
		accepted = append(accepted, repo)
		g.Progress.addAccepted()
		g.logger.Printf("accepted repository %s with %d PRs (%d/%d)",
			repo.FullName(), repo.PullRequestCount, len(accepted), limit)
		if len(accepted) >= limit {
			cancel()
			break
		}
	}

	if err := ctx.Err(); err != nil && len(accepted) == 0 && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	if len(accepted) == 0 {
		g.logger.Printf("warning: no repositories matched the criteria")
	}
	return accepted, nil
}

// producePages walks the cursor-based search until pagination is
// exhausted, the candidate cap is reached, or the context is cancelled.
// Candidates already seen under the same owner/name are not re-emitted,
// even when the search index repeats them across pages.
func (g *RepoGatherer) producePages(ctx context.Context, out chan<- domain.Repository) {
	defer close(out)

	seen := make(map[string]bool)
	cursor := ""
	emitted := 0

	for emitted < g.candidateCap {
		page, err := g.fetcher.SearchRepositories(ctx, g.pageSize, cursor)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				g.logger.Printf("failed to fetch repository page: %v", err)
			}
			return
		}

		for _, repo := range page.Repositories {
			if seen[repo.FullName()] {
				continue
			}
			seen[repo.FullName()] = true
			select {
			case out <- repo:
				emitted++
			case <-ctx.Done():
				return
			}
			if emitted >= g.candidateCap {
				return
			}
		}

		if !page.HasNextPage {
			return
		}
		cursor = page.EndCursor
	}
}

func (g *RepoGatherer) lookup(ctx context.Context, repo domain.Repository, results chan<- domain.Repository) {
	defer g.Progress.addProcessed()

	count, err := g.fetcher.RepositoryPRCount(ctx, repo.Owner, repo.Name)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			g.logger.Printf("failed to fetch PR count for %s: %v", repo.FullName(), err)
		}
		return
	}
	if count < g.minPRCount {
		return
	}

	repo.PullRequestCount = count
	select {
	case results <- repo:
	case <-ctx.Done():
		// Quota met while this lookup was in flight; the completed call
		// is discarded.
	}
}
