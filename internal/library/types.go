// SPDX-License-Identifier: MIT

// Package library provides SQLite persistence for the archived-story index.
package library

import "time"

// Story is one archived story as indexed in the library.
type Story struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"sizeBytes"`
	Chapters   int       `json:"chapters"`
	ArchivedAt time.Time `json:"archivedAt"`
}
