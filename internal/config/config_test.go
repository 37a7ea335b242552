// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load("test")

	assert.Equal(t, "/app/data", cfg.DataDir)
	assert.Equal(t, ":8000", cfg.Listen)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3*time.Second, cfg.FetchDelay)
	assert.Equal(t, "test", cfg.Version)
	require.NoError(t, Validate(cfg))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LITKEEPER_DATA", "/srv/litkeeper")
	t.Setenv("LITKEEPER_LISTEN", ":9000")
	t.Setenv("LITKEEPER_WORKERS", "4")
	t.Setenv("LITKEEPER_FETCH_DELAY", "500ms")

	cfg := Load("test")

	assert.Equal(t, "/srv/litkeeper", cfg.DataDir)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.FetchDelay)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"empty data dir", func(c *AppConfig) { c.DataDir = "" }},
		{"bad listen addr", func(c *AppConfig) { c.Listen = "no-port" }},
		{"zero workers", func(c *AppConfig) { c.Workers = 0 }},
		{"negative retries", func(c *AppConfig) { c.FetchRetries = -1 }},
		{"negative delay", func(c *AppConfig) { c.FetchDelay = -time.Second }},
		{"zero max pages", func(c *AppConfig) { c.MaxPages = 0 }},
		{"token without chat id", func(c *AppConfig) { c.TelegramBotToken = "tok" }},
		{"unknown exporter", func(c *AppConfig) { c.TracingExporter = "jaeger" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load("test")
			tt.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestParseOctal(t *testing.T) {
	t.Setenv("TEST_UMASK", "022")
	assert.Equal(t, uint32(0o022), ParseOctal("TEST_UMASK", 0o077))

	t.Setenv("TEST_UMASK", "0077")
	assert.Equal(t, uint32(0o077), ParseOctal("TEST_UMASK", 0o022))

	t.Setenv("TEST_UMASK", "not-octal")
	assert.Equal(t, uint32(0o022), ParseOctal("TEST_UMASK", 0o022))

	require.NoError(t, os.Unsetenv("TEST_UMASK"))
	assert.Equal(t, uint32(0o022), ParseOctal("TEST_UMASK", 0o022))
}

func TestLoadSelectorsDefaultsAndOverride(t *testing.T) {
	defaults, err := LoadSelectors("")
	require.NoError(t, err)
	require.Contains(t, defaults, "default")
	assert.Equal(t, "h1.headline", defaults["default"].Title)

	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yml")
	content := `
example.org:
  base_url: "https://example.org"
  title: "h1.story-title"
  content: "div.story-body"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	merged, err := LoadSelectors(path)
	require.NoError(t, err)

	// Override present alongside defaults.
	assert.Equal(t, "h1.story-title", merged.ForHost("example.org").Title)
	assert.Equal(t, "h1.headline", merged.ForHost("unknown.host").Title)
}

func TestLoadSelectorsRejectsIncompleteProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yml")
	require.NoError(t, os.WriteFile(path, []byte("example.org:\n  title: h1\n"), 0o644))

	_, err := LoadSelectors(path)
	assert.ErrorContains(t, err, "content selector is required")
}

func TestSelectorHolderReloadKeepsOldOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yml")
	good := "example.org:\n  title: h1\n  content: div.body\n"
	require.NoError(t, os.WriteFile(path, []byte(good), 0o644))

	initial, err := LoadSelectors(path)
	require.NoError(t, err)

	holder := NewSelectorHolder(initial, path)
	require.NoError(t, os.WriteFile(path, []byte("{invalid yaml"), 0o644))

	assert.Error(t, holder.Reload(t.Context()))
	// Old profiles survive the failed reload.
	assert.Equal(t, "h1", holder.Get().ForHost("example.org").Title)
}
