// SPDX-License-Identifier: MIT

// Package api implements the HTTP surface of the archive service: story
// submission, job status, the library listing and EPUB downloads.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/litkeeper/litkeeper/internal/log"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	writeJSON(w, r, status, errorResponse{Error: code, Detail: detail})
}
