// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	xklog "github.com/litkeeper/litkeeper/internal/log"
	"github.com/rs/zerolog"
)

// SelectorHolder holds selector profiles with atomic reloading capability.
// It provides thread-safe access and supports hot reloading when the
// selectors file changes on disk.
type SelectorHolder struct {
	mu      sync.RWMutex
	current Selectors
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// NewSelectorHolder creates a holder with the given initial profiles.
func NewSelectorHolder(initial Selectors, path string) *SelectorHolder {
	return &SelectorHolder{
		current: initial,
		path:    path,
		logger:  xklog.WithComponent("config"),
	}
}

// Get returns the current selector profiles (thread-safe read).
func (h *SelectorHolder) Get() Selectors {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-reads the selectors file and validates it. If loading fails the
// old profiles are kept and an error is returned, so a broken file on disk
// never takes down a working configuration.
func (h *SelectorHolder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "selectors.reload_start").Msg("reloading selector profiles")

	next, err := LoadSelectors(h.path)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "selectors.reload_failed").
			Msg("failed to load selector profiles")
		return fmt.Errorf("load selectors: %w", err)
	}

	h.mu.Lock()
	h.current = next
	h.mu.Unlock()

	h.logger.Info().
		Str("event", "selectors.reload_success").
		Int("profiles", len(next)).
		Msg("selector profiles reloaded")
	return nil
}

// StartWatcher starts watching the selectors file for changes.
// If no file path is configured, this is a no-op.
func (h *SelectorHolder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().
			Str("event", "selectors.watcher_disabled").
			Msg("selectors file watcher disabled (using built-in profiles)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	if err := watcher.Add(h.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch selectors file: %w", err)
	}

	h.logger.Info().
		Str("event", "selectors.watcher_started").
		Str("path", h.path).
		Msg("watching selectors file for changes")

	go h.watchLoop(ctx)
	return nil
}

// watchLoop debounces write events and triggers reloads until ctx is done.
func (h *SelectorHolder) watchLoop(ctx context.Context) {
	// Editors often emit several events per save; coalesce them.
	const debounce = 250 * time.Millisecond
	var timer *time.Timer

	defer func() {
		if err := h.watcher.Close(); err != nil {
			h.logger.Debug().Err(err).Msg("close selectors watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Warn().Err(err).Msg("selector reload after file change failed")
				}
			})
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Str("event", "selectors.watch_error").Msg("selectors watcher error")
		}
	}
}
