package storage

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prlab/prcrawl/internal/domain"
)

func newTestStore(t *testing.T) *CheckpointStore {
	t.Helper()
	store, err := NewCheckpointStore(t.TempDir(), log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return store
}

func prSet(n int) []domain.PullRequest {
	prs := make([]domain.PullRequest, 0, n)
	for i := 1; i <= n; i++ {
		prs = append(prs, samplePR(i))
	}
	return prs
}

func TestCheckpointStore_SupersetNeverLosesRecords(t *testing.T) {
	store := newTestStore(t)

	first := prSet(3)
	require.NoError(t, store.Write(first))

	// Later snapshot is a superset of the first.
	second := prSet(5)
	require.NoError(t, store.Write(second))

	latest, ok, err := store.LoadLatest()
	require.NoError(t, err)
	require.True(t, ok)

	for _, pr := range first {
		assert.Contains(t, latest, pr)
	}
	assert.Len(t, latest, 5)
}

func TestCheckpointStore_ListOrdersByCount(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Write(prSet(10)))
	require.NoError(t, store.Write(prSet(2)))
	require.NoError(t, store.Write(prSet(5)))

	checkpoints, err := store.List()
	require.NoError(t, err)
	require.Len(t, checkpoints, 3)
	assert.Equal(t, 2, checkpoints[0].Count)
	assert.Equal(t, 5, checkpoints[1].Count)
	assert.Equal(t, 10, checkpoints[2].Count)
}

func TestCheckpointStore_LoadLatestEmpty(t *testing.T) {
	store := newTestStore(t)
	prs, ok, err := store.LoadLatest()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, prs)
}

func TestCheckpointStore_WriteSameCountIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Write(prSet(4)))
	require.NoError(t, store.Write(prSet(4)))

	checkpoints, err := store.List()
	require.NoError(t, err)
	assert.Len(t, checkpoints, 1)
}

func TestCheckpointStore_PruneKeepsLatest(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Write(prSet(2)))
	require.NoError(t, store.Write(prSet(4)))
	require.NoError(t, store.Write(prSet(6)))

	removed, err := store.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	checkpoints, err := store.List()
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, 6, checkpoints[0].Count)
}

func TestCheckpointStore_WriteEmptyFails(t *testing.T) {
	store := newTestStore(t)
	assert.ErrorIs(t, store.Write(nil), ErrNoRecords)
}
