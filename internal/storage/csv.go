// Package storage persists crawl results as tabular CSV files and
// reconstructs typed records on load.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prlab/prcrawl/internal/domain"
)

// ErrNoRecords is returned when a save is attempted with an empty record
// set; no header can be derived from nothing.
var ErrNoRecords = errors.New("no records to save")

// Record is one saveable row. The header of a file is derived from the
// first record's columns.
type Record interface {
	Columns() []string
	Values() []string
}

// WriteRecords serializes records to path as CSV with a header row.
func WriteRecords(path string, records []Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(records[0].Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.Values()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ParseCell attempts structured parsing of a serialized cell value. It
// tries strict JSON first, then a permissive pass that accepts
// single-quoted literals (an older producer serialized nested counters
// that way), and finally returns the raw string unchanged. It never
// fails.
func ParseCell(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}

	var v map[string]any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		return v
	}
	normalized := strings.ReplaceAll(trimmed, "'", `"`)
	if err := json.Unmarshal([]byte(normalized), &v); err == nil {
		return v
	}
	return raw
}

// ParseCount reconstructs a nested counter from either serialization
// dialect. Unparseable values yield a defined-zero counter.
func ParseCount(raw string) domain.Count {
	v, ok := ParseCell(raw).(map[string]any)
	if !ok {
		return domain.Count{}
	}
	n, ok := v["totalCount"].(float64)
	if !ok {
		return domain.Count{}
	}
	return domain.Count{TotalCount: int(n)}
}

func countJSON(c domain.Count) string {
	return fmt.Sprintf(`{"totalCount": %d}`, c.TotalCount)
}

type repoRecord struct {
	repo domain.Repository
}

func (r repoRecord) Columns() []string {
	return []string{
		"owner", "name", "url", "stars", "forks",
		"createdAt", "updatedAt", "language", "license", "pullRequests",
	}
}

func (r repoRecord) Values() []string {
	return []string{
		r.repo.Owner,
		r.repo.Name,
		r.repo.URL,
		strconv.Itoa(r.repo.Stars),
		strconv.Itoa(r.repo.Forks),
		r.repo.CreatedAt.Format(time.RFC3339),
		r.repo.UpdatedAt.Format(time.RFC3339),
		r.repo.Language,
		r.repo.License,
		countJSON(domain.Count{TotalCount: r.repo.PullRequestCount}),
	}
}

type prRecord struct {
	pr domain.PullRequest
}

func (r prRecord) Columns() []string {
	return []string{
		"owner", "repo", "number", "state",
		"createdAt", "mergedAt", "closedAt",
		"title", "bodyText", "changedFiles", "additions", "deletions",
		"reviews", "comments", "participants", "duration_hours",
	}
}

func (r prRecord) Values() []string {
	return []string{
		r.pr.Owner,
		r.pr.Repo,
		strconv.Itoa(r.pr.Number),
		r.pr.State,
		r.pr.CreatedAt.Format(time.RFC3339),
		optionalTime(r.pr.MergedAt),
		optionalTime(r.pr.ClosedAt),
		r.pr.Title,
		r.pr.BodyText,
		strconv.Itoa(r.pr.ChangedFiles),
		strconv.Itoa(r.pr.Additions),
		strconv.Itoa(r.pr.Deletions),
		countJSON(r.pr.Reviews),
		countJSON(r.pr.Comments),
		countJSON(r.pr.Participants),
		strconv.FormatFloat(r.pr.DurationHours, 'f', -1, 64),
	}
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// SaveRepositories writes the repository table.
func SaveRepositories(path string, repos []domain.Repository) error {
	records := make([]Record, 0, len(repos))
	for _, repo := range repos {
		records = append(records, repoRecord{repo: repo})
	}
	return WriteRecords(path, records)
}

// SavePullRequests writes the pull request table.
func SavePullRequests(path string, prs []domain.PullRequest) error {
	records := make([]Record, 0, len(prs))
	for _, pr := range prs {
		records = append(records, prRecord{pr: pr})
	}
	return WriteRecords(path, records)
}

// LoadPullRequests reads a pull request table back into typed records.
// Nested counters are accepted in both serialization dialects.
func LoadPullRequests(path string) ([]domain.PullRequest, error) {
	rows, index, err := readTable(path)
	if err != nil {
		return nil, err
	}

	prs := make([]domain.PullRequest, 0, len(rows))
	for _, row := range rows {
		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		pr := domain.PullRequest{
			Owner:         cell("owner"),
			Repo:          cell("repo"),
			State:         cell("state"),
			Title:         cell("title"),
			BodyText:      cell("bodyText"),
			Reviews:       ParseCount(cell("reviews")),
			Comments:      ParseCount(cell("comments")),
			Participants:  ParseCount(cell("participants")),
			DurationHours: parseFloat(cell("duration_hours")),
		}
		pr.Number = parseInt(cell("number"))
		pr.ChangedFiles = parseInt(cell("changedFiles"))
		pr.Additions = parseInt(cell("additions"))
		pr.Deletions = parseInt(cell("deletions"))
		pr.CreatedAt = parseTime(cell("createdAt"))
		pr.MergedAt = parseOptionalTime(cell("mergedAt"))
		pr.ClosedAt = parseOptionalTime(cell("closedAt"))
		prs = append(prs, pr)
	}
	return prs, nil
}

// LoadRepositories reads a repository table back into typed records.
func LoadRepositories(path string) ([]domain.Repository, error) {
	rows, index, err := readTable(path)
	if err != nil {
		return nil, err
	}

	repos := make([]domain.Repository, 0, len(rows))
	for _, row := range rows {
		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		repos = append(repos, domain.Repository{
			Owner:            cell("owner"),
			Name:             cell("name"),
			URL:              cell("url"),
			Stars:            parseInt(cell("stars")),
			Forks:            parseInt(cell("forks")),
			CreatedAt:        parseTime(cell("createdAt")),
			UpdatedAt:        parseTime(cell("updatedAt")),
			Language:         cell("language"),
			License:          cell("license"),
			PullRequestCount: ParseCount(cell("pullRequests")).TotalCount,
		})
	}
	return repos, nil
}

func readTable(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, map[string]int{}, nil
	}

	index := make(map[string]int, len(all[0]))
	for i, col := range all[0] {
		index[col] = i
	}
	return all[1:], index, nil
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseOptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
