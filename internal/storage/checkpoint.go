package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/prlab/prcrawl/internal/domain"
)

var checkpointName = regexp.MustCompile(`^pull_requests_checkpoint_(\d+)\.csv$`)

// Checkpoint describes one durable snapshot on disk.
type Checkpoint struct {
	Path  string
	Count int
}

// CheckpointStore writes full snapshots of the accumulated pull request
// set. Each snapshot is complete, so the latest one alone is sufficient
// for recovery and earlier ones are redundant.
type CheckpointStore struct {
	dir    string
	logger *log.Logger
}

// NewCheckpointStore creates the store rooted at dir, creating the
// directory if needed.
func NewCheckpointStore(dir string, logger *log.Logger) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &CheckpointStore{dir: dir, logger: logger}, nil
}

// Write persists a snapshot named after the accumulated count. Writing
// the same count twice overwrites the identical snapshot, so re-running
// with a superset never loses records present in an earlier checkpoint.
func (s *CheckpointStore) Write(prs []domain.PullRequest) error {
	if len(prs) == 0 {
		return ErrNoRecords
	}
	path := filepath.Join(s.dir, fmt.Sprintf("pull_requests_checkpoint_%d.csv", len(prs)))
	if err := SavePullRequests(path, prs); err != nil {
		return err
	}
	s.logger.Printf("checkpoint: saved %d pull requests to %s", len(prs), path)
	return nil
}

// List returns available checkpoints ordered by ascending count.
func (s *CheckpointStore) List() ([]Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	var checkpoints []Checkpoint
	for _, entry := range entries {
		m := checkpointName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		count, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		checkpoints = append(checkpoints, Checkpoint{
			Path:  filepath.Join(s.dir, entry.Name()),
			Count: count,
		})
	}
	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Count < checkpoints[j].Count
	})
	return checkpoints, nil
}

// LoadLatest reads the most recent checkpoint back. The second return is
// false when no checkpoint exists.
func (s *CheckpointStore) LoadLatest() ([]domain.PullRequest, bool, error) {
	checkpoints, err := s.List()
	if err != nil {
		return nil, false, err
	}
	if len(checkpoints) == 0 {
		return nil, false, nil
	}
	latest := checkpoints[len(checkpoints)-1]
	prs, err := LoadPullRequests(latest.Path)
	if err != nil {
		return nil, false, err
	}
	return prs, true, nil
}

// Prune removes every checkpoint except the most recent one. Retention of
// old checkpoints is an operator choice; nothing removes them during a
// run.
func (s *CheckpointStore) Prune() (int, error) {
	checkpoints, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(checkpoints) < 2 {
		return 0, nil
	}
	removed := 0
	for _, cp := range checkpoints[:len(checkpoints)-1] {
		if err := os.Remove(cp.Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", cp.Path, err)
		}
		removed++
	}
	return removed, nil
}
