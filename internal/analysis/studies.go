package analysis

import (
	"fmt"

	"github.com/prlab/prcrawl/internal/domain"
)

// SizeStudy correlates an outcome against the two size measures.
type SizeStudy struct {
	Files   Correlation `json:"files"`
	Changes Correlation `json:"changes"`
}

// InteractionStudy correlates an outcome against the two interaction
// measures.
type InteractionStudy struct {
	Participants Correlation `json:"participants"`
	Comments     Correlation `json:"comments"`
}

// Results holds all eight research questions. RQ01-RQ04 relate PR
// properties to the merge outcome, RQ05-RQ08 relate the same properties
// to the number of reviews.
type Results struct {
	SizeVsStatus         SizeStudy        `json:"RQ01"`
	DurationVsStatus     Correlation      `json:"RQ02"`
	DescriptionVsStatus  Correlation      `json:"RQ03"`
	InteractionsVsStatus InteractionStudy `json:"RQ04"`
	SizeVsReviews        SizeStudy        `json:"RQ05"`
	DurationVsReviews    Correlation      `json:"RQ06"`
	DescriptionVsReviews Correlation      `json:"RQ07"`
	InteractionsVsReview InteractionStudy `json:"RQ08"`
}

// Run computes every research question over the pull request set.
func Run(prs []domain.PullRequest) (*Results, error) {
	if len(prs) < 3 {
		return nil, fmt.Errorf("analysis of %d pull requests: %w", len(prs), ErrTooFewSamples)
	}

	n := len(prs)
	merged := make([]float64, n)
	files := make([]float64, n)
	changes := make([]float64, n)
	duration := make([]float64, n)
	descLen := make([]float64, n)
	participants := make([]float64, n)
	comments := make([]float64, n)
	reviews := make([]float64, n)

	for i, pr := range prs {
		if pr.Merged() {
			merged[i] = 1
		}
		files[i] = float64(pr.ChangedFiles)
		changes[i] = float64(pr.Additions + pr.Deletions)
		duration[i] = pr.DurationHours
		descLen[i] = float64(len(pr.BodyText))
		participants[i] = float64(pr.Participants.TotalCount)
		comments[i] = float64(pr.Comments.TotalCount)
		reviews[i] = float64(pr.Reviews.TotalCount)
	}

	var (
		results Results
		err     error
	)

	against := func(outcome []float64) (SizeStudy, Correlation, Correlation, InteractionStudy, error) {
		var study SizeStudy
		var dur, desc Correlation
		var inter InteractionStudy
		var err error

		if study.Files, err = Spearman(files, outcome); err != nil {
			return study, dur, desc, inter, err
		}
		if study.Changes, err = Spearman(changes, outcome); err != nil {
			return study, dur, desc, inter, err
		}
		if dur, err = Spearman(duration, outcome); err != nil {
			return study, dur, desc, inter, err
		}
		if desc, err = Spearman(descLen, outcome); err != nil {
			return study, dur, desc, inter, err
		}
		if inter.Participants, err = Spearman(participants, outcome); err != nil {
			return study, dur, desc, inter, err
		}
		inter.Comments, err = Spearman(comments, outcome)
		return study, dur, desc, inter, err
	}

	results.SizeVsStatus, results.DurationVsStatus, results.DescriptionVsStatus, results.InteractionsVsStatus, err = against(merged)
	if err != nil {
		return nil, fmt.Errorf("status studies: %w", err)
	}
	results.SizeVsReviews, results.DurationVsReviews, results.DescriptionVsReviews, results.InteractionsVsReview, err = against(reviews)
	if err != nil {
		return nil, fmt.Errorf("review studies: %w", err)
	}
	return &results, nil
}
