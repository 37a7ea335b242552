// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/litkeeper/litkeeper/internal/fsutil"
	"github.com/litkeeper/litkeeper/internal/jobs"
	"github.com/litkeeper/litkeeper/internal/library"
	"github.com/litkeeper/litkeeper/internal/log"
)

// JobService is the job manager surface the handlers need.
type JobService interface {
	Submit(ctx context.Context, url string) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	List(ctx context.Context) ([]jobs.Job, error)
}

// StoryIndex is the library surface the handlers need.
type StoryIndex interface {
	ListStories(ctx context.Context, limit, offset int) ([]library.Story, int, error)
	GetStory(ctx context.Context, id string) (*library.Story, error)
	GetStoryByURL(ctx context.Context, url string) (*library.Story, error)
	DeleteStory(ctx context.Context, id string) error
}

type submitRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	JobID string     `json:"jobId"`
	State jobs.State `json:"state"`
	// StoryID is set when the URL is already archived; the job will update
	// that entry in place.
	StoryID string `json:"storyId,omitempty"`
}

type storyListResponse struct {
	Stories []library.Story `json:"stories"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxBodyBytes    = 4 << 10
)

// handleSubmitStory accepts an archive request and queues a job for it.
func (s *Server) handleSubmitStory(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be JSON with a url field")
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_url", "url must be absolute http or https")
		return
	}

	job, err := s.jobService.Submit(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			writeError(w, r, http.StatusServiceUnavailable, "queue_full", "archive queue is full, try again later")
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("submit job")
		writeError(w, r, http.StatusInternalServerError, "submit_failed", "")
		return
	}

	resp := submitResponse{JobID: job.ID, State: job.State}
	if existing, err := s.index.GetStoryByURL(r.Context(), req.URL); err == nil && existing != nil {
		resp.StoryID = existing.ID
	}

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSON(w, r, http.StatusAccepted, resp)
}

// handleGetJob reports job progress.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.jobService.Get(r.Context(), id)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("load job")
		writeError(w, r, http.StatusInternalServerError, "job_lookup_failed", "")
		return
	}
	if job == nil {
		writeError(w, r, http.StatusNotFound, "job_not_found", "")
		return
	}

	writeJSON(w, r, http.StatusOK, job)
}

// handleListJobs returns all jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.jobService.List(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("list jobs")
		writeError(w, r, http.StatusInternalServerError, "job_list_failed", "")
		return
	}
	if list == nil {
		list = []jobs.Job{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"jobs": list})
}

// handleListStories pages through the archived-story index.
func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	stories, total, err := s.index.ListStories(r.Context(), limit, offset)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("list stories")
		writeError(w, r, http.StatusInternalServerError, "story_list_failed", "")
		return
	}
	if stories == nil {
		stories = []library.Story{}
	}

	writeJSON(w, r, http.StatusOK, storyListResponse{
		Stories: stories,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// handleGetStory returns one index entry.
func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	story, err := s.index.GetStory(r.Context(), id)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("load story")
		writeError(w, r, http.StatusInternalServerError, "story_lookup_failed", "")
		return
	}
	if story == nil {
		writeError(w, r, http.StatusNotFound, "story_not_found", "")
		return
	}

	writeJSON(w, r, http.StatusOK, story)
}

// handleDeleteStory removes an index entry together with its EPUB file.
func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := log.WithComponentFromContext(r.Context(), "api")

	story, err := s.index.GetStory(r.Context(), id)
	if err != nil {
		logger.Error().Err(err).Msg("load story")
		writeError(w, r, http.StatusInternalServerError, "story_lookup_failed", "")
		return
	}
	if story == nil {
		writeError(w, r, http.StatusNotFound, "story_not_found", "")
		return
	}

	if err := s.index.DeleteStory(r.Context(), id); err != nil {
		logger.Error().Err(err).Msg("delete story")
		writeError(w, r, http.StatusInternalServerError, "story_delete_failed", "")
		return
	}

	if story.Filename != "" {
		if path, err := fsutil.ConfineRelPath(s.epubDir, story.Filename); err == nil {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Warn().Err(err).Str("filename", story.Filename).Msg("remove epub file")
			}
		}
	}

	logger.Info().Str("story_id", id).Msg("story deleted")
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
