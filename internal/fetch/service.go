// SPDX-License-Identifier: MIT

package fetch

import (
	"context"

	"github.com/litkeeper/litkeeper/internal/config"
)

// Service downloads stories with the currently loaded selector profiles. It
// builds a fresh Downloader per request so selector hot reloads take effect
// on the next job.
type Service struct {
	client   *Client
	holder   *config.SelectorHolder
	maxPages int
}

// NewService wires the shared HTTP client and the selector holder.
func NewService(client *Client, holder *config.SelectorHolder, maxPages int) *Service {
	return &Service{client: client, holder: holder, maxPages: maxPages}
}

// Download collects the complete story starting at url.
func (s *Service) Download(ctx context.Context, url string) (*Story, error) {
	d, err := NewDownloader(s.client, s.holder.Get(), url, s.maxPages)
	if err != nil {
		return nil, err
	}
	return d.Download(ctx, url)
}
