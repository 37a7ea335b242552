// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldStoryID   = "story_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"

	// Story fields
	FieldStoryURL = "story_url"
	FieldTitle    = "title"
	FieldAuthor   = "author"
	FieldChapter  = "chapter"
	FieldPage     = "page"

	// Path fields
	FieldPath     = "path"
	FieldDataDir  = "data_dir"
	FieldEPUBPath = "epub_path"
)
