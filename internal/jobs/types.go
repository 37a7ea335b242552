// SPDX-License-Identifier: MIT

// Package jobs runs the archive pipeline: fetch a story, render its cover,
// assemble the EPUB, index it, and send the notification. Job records are
// persisted so their state survives restarts.
package jobs

import "time"

// State is the lifecycle state of a job.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Pipeline stages, in execution order. Stage labels show up in job records,
// logs and failure metrics.
const (
	StageFetch  = "fetch"
	StageCover  = "cover"
	StageEPUB   = "epub"
	StageIndex  = "index"
	StageNotify = "notify"
)

// Job is one archive request and its progress through the pipeline.
type Job struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	State State  `json:"state"`

	// Stage is the pipeline stage currently running, or the stage that
	// failed for a failed job. Empty while queued.
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`

	// Filled in as the pipeline progresses.
	StoryID  string `json:"storyId,omitempty"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Chapters int    `json:"chapters,omitempty"`
	Filename string `json:"filename,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
