// SPDX-License-Identifier: MIT

package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfineRelPathAccepts(t *testing.T) {
	root := t.TempDir()

	got, err := ConfineRelPath(root, "library/Author/Title.epub")
	if err != nil {
		t.Fatalf("ConfineRelPath: %v", err)
	}
	want := filepath.Join(root, "library", "Author", "Title.epub")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConfineRelPathRejects(t *testing.T) {
	root := t.TempDir()

	cases := []string{
		"../outside",
		"..",
		"/etc/passwd",
		"a/../../b",
		`a\b`,
	}
	for _, rel := range cases {
		if _, err := ConfineRelPath(root, rel); err == nil {
			t.Errorf("ConfineRelPath(%q) accepted, want error", rel)
		}
	}
}

func TestConfineRelPathSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := ConfineRelPath(root, "escape/file.txt"); err == nil {
		t.Error("symlink escape accepted, want error")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, fallback, want string
	}{
		{"Seven Nights", "story", "Seven Nights"},
		{"a/b\\c:d*e", "story", "abcde"},
		{"Café au Lait", "story", "Cafe au Lait"},
		{"<<<>>>", "Unknown_Author", "Unknown_Author"},
		{"  trimmed  ", "story", "trimmed"},
		{"dots.and_underscores-ok", "story", "dots.and_underscores-ok"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in, tt.fallback); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
