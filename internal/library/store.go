// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Store provides SQLite persistence for the story index.
type Store struct {
	db *sql.DB
}

// NewStore opens the index database and runs migrations.
// WAL mode plus busy_timeout keeps concurrent readers from hitting
// "database locked" while a job writes.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable. Used by the readiness checker.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		chapters INTEGER NOT NULL DEFAULT 0,
		archived_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS story_tags (
		story_id TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (story_id, tag)
	);

	CREATE INDEX IF NOT EXISTS idx_stories_author ON stories(author);
	CREATE INDEX IF NOT EXISTS idx_stories_archived_at ON stories(archived_at);
	CREATE INDEX IF NOT EXISTS idx_story_tags_tag ON story_tags(tag);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertStory inserts or replaces the index entry for a story. Re-archiving
// the same URL updates the existing row and rewrites its tags.
func (s *Store) UpsertStory(ctx context.Context, story Story) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO stories (id, url, title, author, category, filename, size_bytes, chapters, archived_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		author = excluded.author,
		category = excluded.category,
		filename = excluded.filename,
		size_bytes = excluded.size_bytes,
		chapters = excluded.chapters,
		archived_at = excluded.archived_at
	`
	if _, err := tx.ExecContext(ctx, query,
		story.ID,
		story.URL,
		story.Title,
		story.Author,
		story.Category,
		story.Filename,
		story.SizeBytes,
		story.Chapters,
		story.ArchivedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("upsert story: %w", err)
	}

	// The row keeps its original id on URL conflict; resolve it for the tags.
	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM stories WHERE url = ?`, story.URL).Scan(&id); err != nil {
		return fmt.Errorf("resolve story id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM story_tags WHERE story_id = ?`, id); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for i, tag := range story.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO story_tags (story_id, tag, position) VALUES (?, ?, ?)`,
			id, tag, i,
		); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}

	return tx.Commit()
}

// GetStory retrieves a single story by ID. Returns (nil, nil) when not found.
func (s *Store) GetStory(ctx context.Context, id string) (*Story, error) {
	query := `
	SELECT id, url, title, author, category, filename, size_bytes, chapters, archived_at
	FROM stories
	WHERE id = ?
	`
	story, err := s.scanStory(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadTags(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// GetStoryByURL retrieves a story by its source URL. Returns (nil, nil) when
// the URL has never been archived.
func (s *Store) GetStoryByURL(ctx context.Context, url string) (*Story, error) {
	query := `
	SELECT id, url, title, author, category, filename, size_bytes, chapters, archived_at
	FROM stories
	WHERE url = ?
	`
	story, err := s.scanStory(s.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadTags(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// ListStories retrieves a page of stories ordered by archive time, newest
// first, plus the total count for pagination.
func (s *Store) ListStories(ctx context.Context, limit, offset int) ([]Story, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stories`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
	SELECT id, url, title, author, category, filename, size_bytes, chapters, archived_at
	FROM stories
	ORDER BY archived_at DESC, id
	LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var stories []Story
	for rows.Next() {
		story, err := s.scanStory(rows)
		if err != nil {
			return nil, 0, err
		}
		stories = append(stories, *story)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range stories {
		if err := s.loadTags(ctx, &stories[i]); err != nil {
			return nil, 0, err
		}
	}

	return stories, total, nil
}

// DeleteStory removes a story and its tags from the index.
func (s *Store) DeleteStory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM story_tags WHERE story_id = ?`, id); err != nil {
		return fmt.Errorf("delete tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanStory(row rowScanner) (*Story, error) {
	var story Story
	var archivedAt string
	if err := row.Scan(
		&story.ID,
		&story.URL,
		&story.Title,
		&story.Author,
		&story.Category,
		&story.Filename,
		&story.SizeBytes,
		&story.Chapters,
		&archivedAt,
	); err != nil {
		return nil, err
	}
	story.ArchivedAt, _ = time.Parse(time.RFC3339, archivedAt)
	return &story, nil
}

func (s *Store) loadTags(ctx context.Context, story *Story) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM story_tags WHERE story_id = ? ORDER BY position`, story.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return err
		}
		story.Tags = append(story.Tags, tag)
	}
	return rows.Err()
}
