// SPDX-License-Identifier: MIT

// Package notify delivers job outcome notifications via the Telegram Bot API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/litkeeper/litkeeper/internal/library"
	"github.com/litkeeper/litkeeper/internal/log"
	"github.com/litkeeper/litkeeper/internal/metrics"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramConfig carries the bot credentials.
type TelegramConfig struct {
	BotToken string
	ChatID   string

	// APIBase overrides the Telegram endpoint. Tests point it at a local
	// server; production leaves it empty.
	APIBase string
	Timeout time.Duration
}

// Telegram posts messages to a single chat.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegram validates the config and returns a notifier.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram: bot token and chat id are required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Telegram{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StoryArchived announces a finished book.
func (t *Telegram) StoryArchived(ctx context.Context, story library.Story) error {
	msg := fmt.Sprintf("EPUB created: %s by %s (%d chapters)", story.Title, story.Author, story.Chapters)
	return t.send(ctx, msg, false)
}

// StoryFailed announces a failed archive attempt.
func (t *Telegram) StoryFailed(ctx context.Context, url, reason string) error {
	msg := fmt.Sprintf("EPUB creation failed: %s (%s)", url, reason)
	return t.send(ctx, msg, true)
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *Telegram) send(ctx context.Context, message string, isError bool) error {
	icon := "✅" // check mark
	if isError {
		icon = "❌" // cross mark
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.cfg.ChatID,
		Text:      icon + " " + message,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("telegram: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIBase, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		metrics.IncNotification("error")
		return fmt.Errorf("telegram: send message: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		metrics.IncNotification("error")
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}

	metrics.IncNotification("ok")
	logger := log.WithComponentFromContext(ctx, "notify")
	logger.Debug().Msg("notification sent")
	return nil
}
