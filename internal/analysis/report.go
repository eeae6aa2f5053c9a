package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// WriteResults persists the analysis results as indented JSON.
func WriteResults(path string, results *Results) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Strength buckets the coefficient magnitude the way the study reports
// read: negligible, weak, moderate, strong.
func Strength(coefficient float64) string {
	abs := math.Abs(coefficient)
	switch {
	case abs < 0.1:
		return "negligible"
	case abs < 0.3:
		return "weak"
	case abs < 0.5:
		return "moderate"
	default:
		return "strong"
	}
}

// Interpret renders one correlation as a human-readable verdict.
func Interpret(c Correlation, variable, outcome string) string {
	direction := "positive"
	if c.Coefficient < 0 {
		direction = "negative"
	}
	if !c.Significant() {
		return fmt.Sprintf("No statistically significant correlation between %s and %s (r=%.3f, p=%.3f, n=%d).",
			variable, outcome, c.Coefficient, c.PValue, c.N)
	}
	return fmt.Sprintf("%s %s correlation between %s and %s (r=%.3f, p=%.3f, n=%d).",
		title(Strength(c.Coefficient)), direction, variable, outcome, c.Coefficient, c.PValue, c.N)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Summary renders a markdown table over all eight research questions.
func Summary(results *Results) string {
	var b strings.Builder
	b.WriteString("# Correlation study summary\n\n")
	b.WriteString("| RQ | Variable | Outcome | r | p | Strength |\n")
	b.WriteString("|----|----------|---------|---|---|----------|\n")

	row := func(rq, variable, outcome string, c Correlation) {
		fmt.Fprintf(&b, "| %s | %s | %s | %.3f | %.3f | %s |\n",
			rq, variable, outcome, c.Coefficient, c.PValue, Strength(c.Coefficient))
	}

	row("RQ01", "changed files", "merged", results.SizeVsStatus.Files)
	row("RQ01", "total changes", "merged", results.SizeVsStatus.Changes)
	row("RQ02", "duration (hours)", "merged", results.DurationVsStatus)
	row("RQ03", "description length", "merged", results.DescriptionVsStatus)
	row("RQ04", "participants", "merged", results.InteractionsVsStatus.Participants)
	row("RQ04", "comments", "merged", results.InteractionsVsStatus.Comments)
	row("RQ05", "changed files", "reviews", results.SizeVsReviews.Files)
	row("RQ05", "total changes", "reviews", results.SizeVsReviews.Changes)
	row("RQ06", "duration (hours)", "reviews", results.DurationVsReviews)
	row("RQ07", "description length", "reviews", results.DescriptionVsReviews)
	row("RQ08", "participants", "reviews", results.InteractionsVsReview.Participants)
	row("RQ08", "comments", "reviews", results.InteractionsVsReview.Comments)

	b.WriteString("\n")
	b.WriteString(Interpret(results.SizeVsStatus.Changes, "total changes", "merge outcome"))
	b.WriteString("\n")
	b.WriteString(Interpret(results.DurationVsStatus, "duration", "merge outcome"))
	b.WriteString("\n")
	b.WriteString(Interpret(results.InteractionsVsReview.Comments, "comments", "review count"))
	b.WriteString("\n")
	return b.String()
}
