// Package cache stores small, short-lived service metadata on disk.
//
// The only consumer is the model catalog lookup in [generate.Client.ListModels]:
// listing models is a network round trip on every CLI start, and the answer
// changes rarely. Generated diagrams are never cached.
//
// Two implementations are provided:
//
//   - [FileCache]: entries under ~/.cache/aidiagram/ with per-entry expiry
//   - [NullCache]: never stores anything (used with --no-cache and in tests)
//
// [generate.Client.ListModels]: github.com/matzehuels/aidiagram/pkg/generate
package cache

import (
	"context"
	"time"
)

// TTLCatalog is how long a fetched model catalog stays valid.
const TTLCatalog = time.Hour

// Cache is a byte-oriented key/value store with expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and true, or nil and false on a miss.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
