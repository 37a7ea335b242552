// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "jobs"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutAndGetJob(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job := &Job{ID: "j1", URL: "https://example.com/s/1", State: StateQueued, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.PutJob(ctx, job))

	got, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.URL, got.URL)
	assert.Equal(t, StateQueued, got.State)
}

func TestGetJobNotFound(t *testing.T) {
	store := newStore(t)

	got, err := store.GetJob(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateJobTransactional(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutJob(ctx, &Job{ID: "j1", State: StateQueued, CreatedAt: time.Now().UTC()}))

	updated, err := store.UpdateJob(ctx, "j1", func(j *Job) error {
		j.State = StateRunning
		j.Stage = StageFetch
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, updated.State)
	assert.Equal(t, StageFetch, updated.Stage)

	got, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, got.State)
}

func TestListJobsNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.PutJob(ctx, &Job{
			ID:        id,
			State:     StateQueued,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	jobs, err := store.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "new", jobs[0].ID)
	assert.Equal(t, "old", jobs[2].ID)
}
