// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litkeeper/litkeeper/internal/library"
)

func TestStoryArchivedPostsToBotEndpoint(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{BotToken: "token123", ChatID: "42", APIBase: srv.URL})
	require.NoError(t, err)

	err = tg.StoryArchived(context.Background(), library.Story{
		Title: "The Lighthouse", Author: "R. Waverly", Chapters: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody.ChatID)
	assert.Equal(t, "HTML", gotBody.ParseMode)
	assert.Equal(t, "✅ EPUB created: The Lighthouse by R. Waverly (3 chapters)", gotBody.Text)
}

func TestStoryFailedUsesErrorIcon(t *testing.T) {
	var gotBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "1", APIBase: srv.URL})
	require.NoError(t, err)

	err = tg.StoryFailed(context.Background(), "https://example.com/s/x", "site unreachable")
	require.NoError(t, err)
	assert.Equal(t, "❌ EPUB creation failed: https://example.com/s/x (site unreachable)", gotBody.Text)
}

func TestSendReportsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "1", APIBase: srv.URL})
	require.NoError(t, err)

	err = tg.StoryArchived(context.Background(), library.Story{Title: "X", Author: "Y"})
	assert.ErrorContains(t, err, "unexpected status 403")
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{BotToken: "t"})
	assert.Error(t, err)

	_, err = NewTelegram(TelegramConfig{ChatID: "1"})
	assert.Error(t, err)
}
