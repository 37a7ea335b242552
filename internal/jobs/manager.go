// SPDX-License-Identifier: MIT

package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/litkeeper/litkeeper/internal/cover"
	"github.com/litkeeper/litkeeper/internal/epub"
	"github.com/litkeeper/litkeeper/internal/fetch"
	"github.com/litkeeper/litkeeper/internal/fsutil"
	"github.com/litkeeper/litkeeper/internal/library"
	"github.com/litkeeper/litkeeper/internal/log"
	"github.com/litkeeper/litkeeper/internal/metrics"
)

// ErrQueueFull is returned by Submit when the job queue has no capacity.
var ErrQueueFull = errors.New("job queue full")

// StoryFetcher downloads a complete story from its start URL.
type StoryFetcher interface {
	Download(ctx context.Context, url string) (*fetch.Story, error)
}

// Indexer records finished stories in the library index.
type Indexer interface {
	UpsertStory(ctx context.Context, story library.Story) error
}

// Notifier reports job outcomes to an external channel. Implementations must
// tolerate being called concurrently.
type Notifier interface {
	StoryArchived(ctx context.Context, story library.Story) error
	StoryFailed(ctx context.Context, url, reason string) error
}

// ManagerConfig sizes the worker pool and locates the output directory.
type ManagerConfig struct {
	Workers   int
	QueueSize int
	// DataDir is the root the EPUBs directory lives under.
	DataDir string
}

// Manager owns the worker pool that drains the job queue.
type Manager struct {
	cfg      ManagerConfig
	store    *Store
	index    Indexer
	fetcher  StoryFetcher
	notifier Notifier

	queue  chan string
	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewManager wires the pipeline dependencies. notifier may be nil when no
// notification channel is configured.
func NewManager(cfg ManagerConfig, store *Store, index Indexer, fetcher StoryFetcher, notifier Notifier) *Manager {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		index:    index,
		fetcher:  fetcher,
		notifier: notifier,
		queue:    make(chan string, cfg.QueueSize),
	}
}

// EPUBDir returns the directory finished books are written to.
func (m *Manager) EPUBDir() string {
	return filepath.Join(m.cfg.DataDir, "epubs")
}

// Start launches the worker pool and resubmits jobs the last shutdown left
// unfinished, both interrupted and still queued. Must be called before
// Submit.
func (m *Manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.EPUBDir(), 0o755); err != nil {
		return fmt.Errorf("create epub directory: %w", err)
	}

	interrupted, err := m.store.RequeueInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("requeue interrupted jobs: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.group, runCtx = errgroup.WithContext(runCtx)

	logger := log.WithComponent("jobs")
	for i := 0; i < m.cfg.Workers; i++ {
		m.group.Go(func() error {
			m.worker(runCtx)
			return nil
		})
	}
	logger.Info().Int("workers", m.cfg.Workers).Msg("worker pool started")

	for _, job := range interrupted {
		logger.Warn().Str(log.FieldJobID, job.ID).Msg("resubmitting unfinished job")
		select {
		case m.queue <- job.ID:
		default:
			logger.Error().Str(log.FieldJobID, job.ID).Msg("queue full, interrupted job stays queued")
		}
	}
	return nil
}

// Shutdown stops accepting work and waits for in-flight jobs to finish.
func (m *Manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.group != nil {
		_ = m.group.Wait()
	}
}

// Submit records a new job and hands it to the pool.
func (m *Manager) Submit(ctx context.Context, url string) (*Job, error) {
	job := &Job{
		ID:        uuid.New().String(),
		URL:       url,
		State:     StateQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.PutJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}

	select {
	case m.queue <- job.ID:
		return job, nil
	default:
		_, _ = m.store.UpdateJob(ctx, job.ID, func(j *Job) error {
			j.State = StateFailed
			j.Error = ErrQueueFull.Error()
			now := time.Now().UTC()
			j.FinishedAt = &now
			return nil
		})
		return nil, ErrQueueFull
	}
}

// Get returns a job record, or (nil, nil) when unknown.
func (m *Manager) Get(ctx context.Context, id string) (*Job, error) {
	return m.store.GetJob(ctx, id)
}

// List returns all job records, newest first.
func (m *Manager) List(ctx context.Context) ([]Job, error) {
	return m.store.ListJobs(ctx)
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-m.queue:
			m.process(ctx, id)
		}
	}
}

func (m *Manager) process(ctx context.Context, id string) {
	ctx = log.ContextWithJobID(ctx, id)
	logger := log.WithComponentFromContext(ctx, "jobs")
	ctx = logger.WithContext(ctx)

	job, err := m.store.GetJob(ctx, id)
	if err != nil || job == nil {
		logger.Error().Err(err).Msg("job disappeared from store")
		return
	}

	done := metrics.JobStarted()
	start := time.Now()
	defer func() {
		done()
		metrics.ObserveJobDuration(time.Since(start).Seconds())
	}()

	setStage := func(stage string) {
		job, _ = m.store.UpdateJob(ctx, id, func(j *Job) error {
			j.State = StateRunning
			j.Stage = stage
			if j.StartedAt == nil {
				now := time.Now().UTC()
				j.StartedAt = &now
			}
			return nil
		})
	}

	fail := func(stage string, err error) {
		metrics.IncJobFailure(stage)
		logger.Error().Err(err).Str(log.FieldStage, stage).Str(log.FieldStoryURL, job.URL).Msg("job failed")
		_, _ = m.store.UpdateJob(ctx, id, func(j *Job) error {
			j.State = StateFailed
			j.Stage = stage
			j.Error = err.Error()
			now := time.Now().UTC()
			j.FinishedAt = &now
			return nil
		})
		if m.notifier != nil {
			if nerr := m.notifier.StoryFailed(ctx, job.URL, err.Error()); nerr != nil {
				logger.Warn().Err(nerr).Msg("failure notification not delivered")
			}
		}
	}

	setStage(StageFetch)
	story, err := m.fetcher.Download(ctx, job.URL)
	if err != nil {
		fail(StageFetch, err)
		return
	}
	metrics.ObserveChapters(len(story.Chapters))

	setStage(StageCover)
	var coverBuf bytes.Buffer
	if err := cover.Render(story.Title, story.Author, &coverBuf); err != nil {
		fail(StageCover, err)
		return
	}

	setStage(StageEPUB)
	book := bookFromStory(story)
	filename := fsutil.SanitizeFilename(story.Title+" - "+story.Author, "story") + ".epub"
	book.Cover = coverBuf.Bytes()
	path := filepath.Join(m.EPUBDir(), filename)
	size, err := writeEPUB(ctx, path, book)
	if err != nil {
		fail(StageEPUB, err)
		return
	}
	metrics.AddEPUBBytes(size)

	setStage(StageIndex)
	entry := library.Story{
		ID:         job.ID,
		URL:        job.URL,
		Title:      story.Title,
		Author:     story.Author,
		Category:   story.Category,
		Tags:       story.Tags,
		Filename:   filename,
		SizeBytes:  size,
		Chapters:   len(story.Chapters),
		ArchivedAt: time.Now().UTC(),
	}
	if err := m.index.UpsertStory(ctx, entry); err != nil {
		fail(StageIndex, err)
		return
	}

	if m.notifier != nil {
		setStage(StageNotify)
		if err := m.notifier.StoryArchived(ctx, entry); err != nil {
			// Best effort: the book is already archived and indexed.
			logger.Warn().Err(err).Msg("success notification not delivered")
		}
	}

	metrics.IncStoryArchived()
	_, _ = m.store.UpdateJob(ctx, id, func(j *Job) error {
		j.State = StateDone
		j.Stage = ""
		j.Title = story.Title
		j.Author = story.Author
		j.Chapters = len(story.Chapters)
		j.Filename = filename
		j.StoryID = j.ID
		now := time.Now().UTC()
		j.FinishedAt = &now
		return nil
	})
	logger.Info().
		Str(log.FieldTitle, story.Title).
		Str(log.FieldAuthor, story.Author).
		Int("chapters", len(story.Chapters)).
		Str(log.FieldEPUBPath, path).
		Msg("story archived")
}

// bookFromStory maps a downloaded story onto the book builder. Chapter
// descriptions are joined into the book description.
func bookFromStory(story *fetch.Story) *epub.Book {
	book := &epub.Book{
		Title:    story.Title,
		Author:   story.Author,
		Category: story.Category,
		Tags:     story.Tags,
	}

	var descriptions []string
	for _, ch := range story.Chapters {
		if d := strings.TrimSpace(ch.Description); d != "" {
			descriptions = append(descriptions, d)
		}
		book.Chapters = append(book.Chapters, epub.Chapter{
			Title:      ch.Title,
			Paragraphs: ch.Paragraphs,
		})
	}
	book.Description = strings.Join(descriptions, " ")
	return book
}
