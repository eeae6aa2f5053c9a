package usecase

import (
	"context"
	"errors"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prlab/prcrawl/internal/config"
	"github.com/prlab/prcrawl/internal/domain"
	"github.com/prlab/prcrawl/internal/gateway"
	"github.com/prlab/prcrawl/internal/storage"
)

// PullGatherer crawls the pull requests of the selected repositories.
// Repositories run under a bounded pool; inside one repository the crawl
// is strictly sequential so the dependent per-PR queries keep their
// ordering and the rate-limit pacing stays effective.
type PullGatherer struct {
	fetcher     gateway.Fetcher
	logger      *log.Logger
	checkpoints *storage.CheckpointStore

	pageSize         int
	maxPerRepo       int
	workers          int
	minDurationHours float64
	minReviews       int
	checkpointEvery  int

	Progress Progress
}

// NewPullGatherer builds a gatherer from configuration. checkpoints may
// be nil to disable incremental persistence.
func NewPullGatherer(fetcher gateway.Fetcher, cfg *config.Config, checkpoints *storage.CheckpointStore, logger *log.Logger) *PullGatherer {
	return &PullGatherer{
		fetcher:          fetcher,
		logger:           logger,
		checkpoints:      checkpoints,
		pageSize:         cfg.PRPageSize,
		maxPerRepo:       cfg.MaxPRsPerRepo,
		workers:          cfg.PRWorkers,
		minDurationHours: cfg.MinDurationHours,
		minReviews:       cfg.MinReviews,
		checkpointEvery:  cfg.CheckpointEvery,
	}
}

// Gather runs one aggregation task per repository under the pool and
// returns every accepted pull request. No output ordering is promised
// across repositories. A failing repository contributes its partial
// results and never blocks the others.
func (g *PullGatherer) Gather(ctx context.Context, repos []domain.Repository) ([]domain.PullRequest, error) {
	var (
		mu  sync.Mutex
		all []domain.PullRequest
	)

	appendBatch := func(batch []domain.PullRequest) {
		mu.Lock()
		crossed := false
		if g.checkpointEvery > 0 {
			before := len(all) / g.checkpointEvery
			after := (len(all) + len(batch)) / g.checkpointEvery
			crossed = after > before
		}
		all = append(all, batch...)
		var snapshot []domain.PullRequest
		if crossed && g.checkpoints != nil {
			snapshot = make([]domain.PullRequest, len(all))
			copy(snapshot, all)
		}
		mu.Unlock()

		// Best-effort persistence: a failed checkpoint is logged, never
		// fatal.
		if snapshot != nil {
			if err := g.checkpoints.Write(snapshot); err != nil {
				g.logger.Printf("failed to write checkpoint: %v", err)
			}
		}
	}

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for _, repo := range repos {
		repo := repo
		eg.Go(func() error {
			prs := g.gatherRepo(ctx, repo)
			g.logger.Printf("collected %d pull requests from %s", len(prs), repo.FullName())
			if len(prs) > 0 {
				appendBatch(prs)
			}
			g.Progress.addProcessed()
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return all, err
	}
	return all, nil
}

// gatherRepo walks one repository's PR pages sequentially. Any page
// fetch failure ends this repository early with whatever was collected;
// per-item failures skip the item.
func (g *PullGatherer) gatherRepo(ctx context.Context, repo domain.Repository) []domain.PullRequest {
	var prs []domain.PullRequest
	cursor := ""

	for len(prs) < g.maxPerRepo {
		batch := g.pageSize
		if remaining := g.maxPerRepo - len(prs); remaining < batch {
			batch = remaining
		}

		page, err := g.fetcher.PullRequests(ctx, repo.Owner, repo.Name, batch, cursor)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				g.logger.Printf("failed to fetch PRs for %s: %v (keeping %d partial results)",
					repo.FullName(), err, len(prs))
			}
			return prs
		}
		if len(page.PullRequests) == 0 {
			return prs
		}

		for _, pr := range page.PullRequests {
			item, ok := g.enrich(ctx, pr)
			if !ok {
				continue
			}
			prs = append(prs, item)
			g.Progress.addAccepted()
			if len(prs) >= g.maxPerRepo {
				break
			}
		}

		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}
	return prs
}

// enrich applies the admission gates and issues the dependent queries for
// one pull request. The review count is a hard gate: a failed fetch or a
// count below the minimum discards the item. Comment and participant
// failures are tolerated and leave those counters at zero.
func (g *PullGatherer) enrich(ctx context.Context, pr domain.PullRequest) (domain.PullRequest, bool) {
	end, ok := pr.EndTime()
	if !ok {
		// No terminal state, duration is undefined.
		return pr, false
	}
	duration := end.Sub(pr.CreatedAt).Hours()
	if duration <= g.minDurationHours {
		return pr, false
	}

	reviews, err := g.fetcher.PullRequestReviewCount(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			g.logger.Printf("failed to fetch review count for %s/%s#%d: %v", pr.Owner, pr.Repo, pr.Number, err)
		}
		return pr, false
	}
	if reviews < g.minReviews {
		return pr, false
	}

	details, err := g.fetcher.PullRequestDetails(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			g.logger.Printf("failed to fetch details for %s/%s#%d: %v", pr.Owner, pr.Repo, pr.Number, err)
		}
		return pr, false
	}
	pr.Title = details.Title
	pr.BodyText = details.BodyText
	pr.ChangedFiles = details.ChangedFiles
	pr.Additions = details.Additions
	pr.Deletions = details.Deletions

	if comments, err := g.fetcher.PullRequestCommentCount(ctx, pr.Owner, pr.Repo, pr.Number); err == nil {
		pr.Comments = domain.Count{TotalCount: comments}
	}
	if participants, err := g.fetcher.PullRequestParticipantCount(ctx, pr.Owner, pr.Repo, pr.Number); err == nil {
		pr.Participants = domain.Count{TotalCount: participants}
	}

	pr.Reviews = domain.Count{TotalCount: reviews}
	pr.DurationHours = duration
	return pr, true
}
