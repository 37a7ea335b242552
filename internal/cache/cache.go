// SPDX-License-Identifier: MIT

// Package cache provides a page cache for fetched story pages so retried or
// resubmitted jobs do not hammer the upstream site.
package cache

import (
	"context"
	"time"
)

// Cache stores raw page bodies keyed by URL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}
