// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/litkeeper/litkeeper/internal/fsutil"
	"github.com/litkeeper/litkeeper/internal/log"
	"golang.org/x/text/unicode/norm"
)

// epubFileServer serves finished books from the EPUB directory. Requests are
// confined to that directory: traversal sequences, NUL bytes and symlink
// escapes are rejected.
func (s *Server) epubFileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "api")

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rel := strings.TrimPrefix(r.URL.Path, "/")
		if rel == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if isPathTraversal(rel) {
			logger.Warn().Str(log.FieldPath, r.URL.Path).Msg("traversal sequence in file request")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		realPath, err := fsutil.ConfineRelPath(s.epubDir, rel)
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, r.URL.Path).Msg("file request denied")
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if err := fsutil.IsRegularFile(realPath); err != nil {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		f, err := http.Dir(s.epubDir).Open(rel)
		if err != nil {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// Weak ETag from modtime and size; EPUBs are replaced atomically so
		// this is a reliable validator.
		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		if strings.HasSuffix(strings.ToLower(info.Name()), ".epub") {
			w.Header().Set("Content-Type", "application/epub+zip")
		}

		logger.Debug().Str(log.FieldPath, rel).Msg("serving file")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// isPathTraversal decodes the path up to three times to catch layered
// encodings, then looks for parent traversal and NUL bytes.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		}
		if decoded == prev {
			break
		}
	}

	if strings.Contains(decoded, "\x00") || strings.Contains(strings.ToLower(decoded), "%00") {
		return true
	}
	if strings.Contains(decoded, "\\") {
		return true
	}

	normalized := norm.NFC.String(decoded)
	return strings.Contains(normalized, "..")
}
