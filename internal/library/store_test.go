// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testStory(id, url string) Story {
	return Story{
		ID:         id,
		URL:        url,
		Title:      "The Lighthouse",
		Author:     "R. Waverly",
		Category:   "Romance",
		Tags:       []string{"slow burn", "coastal"},
		Filename:   "The Lighthouse - R. Waverly.epub",
		SizeBytes:  24576,
		Chapters:   3,
		ArchivedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertAndGetStory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := testStory("story-1", "https://example.com/s/lighthouse")
	require.NoError(t, store.UpsertStory(ctx, want))

	got, err := store.GetStory(ctx, "story-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Author, got.Author)
	assert.Equal(t, []string{"slow burn", "coastal"}, got.Tags)
	assert.True(t, want.ArchivedAt.Equal(got.ArchivedAt))
}

func TestGetStoryNotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetStory(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertSameURLReplacesEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testStory("story-1", "https://example.com/s/lighthouse")
	require.NoError(t, store.UpsertStory(ctx, first))

	second := testStory("story-2", "https://example.com/s/lighthouse")
	second.Title = "The Lighthouse (Revised)"
	second.Tags = []string{"revised"}
	require.NoError(t, store.UpsertStory(ctx, second))

	// URL conflict keeps the original row id.
	got, err := store.GetStoryByURL(ctx, "https://example.com/s/lighthouse")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "story-1", got.ID)
	assert.Equal(t, "The Lighthouse (Revised)", got.Title)
	assert.Equal(t, []string{"revised"}, got.Tags)

	_, total, err := store.ListStories(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestListStoriesPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s := testStory(
			string(rune('a'+i)),
			"https://example.com/s/"+string(rune('a'+i)),
		)
		s.ArchivedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.UpsertStory(ctx, s))
	}

	page, total, err := store.ListStories(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	// Newest first.
	assert.Equal(t, "e", page[0].ID)
	assert.Equal(t, "d", page[1].ID)

	page, _, err = store.ListStories(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)
}

func TestDeleteStoryRemovesTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertStory(ctx, testStory("story-1", "https://example.com/s/x")))
	require.NoError(t, store.DeleteStory(ctx, "story-1"))

	got, err := store.GetStory(ctx, "story-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
