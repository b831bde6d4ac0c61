// Package cache provides byte caches for fetched images and rendered memes.
//
// All backends implement [Cache]. The CLI uses [FileCache] under the XDG
// cache directory, the server uses [RedisCache], and [NullCache] disables
// caching. Keys are produced by a [Keyer] so that CLI and server agree on
// key layout.
//
// Errors that should be retried (timeouts, 5xx responses) are wrapped with
// [Retryable] and retried by [RetryWithBackoff].
package cache

import (
	"context"
	"time"
)

// Default TTLs for cached entries.
const (
	// ImageTTL is how long fetched template and URL images are kept.
	ImageTTL = 7 * 24 * time.Hour

	// RenderTTL is how long rendered data URLs are kept.
	RenderTTL = 24 * time.Hour
)

// Cache stores opaque byte values with an optional time-to-live.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
