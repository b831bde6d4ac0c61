// Package httputil provides the HTTP client used to fetch remote images.
//
// # Overview
//
// Template images and user-supplied URLs are fetched through [Client]:
//
//   - Responses are cached in a [cache.Cache] under a namespace
//   - Transient failures are retried with [Retry]
//   - Concurrent requests for the same URL share one fetch
//   - Bodies larger than the configured limit are rejected
//
// # Retry
//
// [Retry] re-runs an operation for transient failures only:
//
//   - Network errors
//   - 5xx server errors
//
// Such errors are wrapped with [cache.Retryable]. Everything else, including
// 4xx responses and oversized bodies, fails immediately:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    data, err = client.Fetch(ctx, url)
//	    return err
//	})
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Request timeout: 10 seconds
//   - Max body size: 10 MiB
//   - Max attempts: 3
//   - Base backoff: 1 second
//
// The CLI cache can be cleared via `memeforge cache clear`.
package httputil
