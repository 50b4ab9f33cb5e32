// Package cache stores rendered artifacts and position snapshots.
//
// Every backend implements [Cache]: a byte-oriented key-value store with
// per-entry TTLs. The CLI uses [FileCache] by default, servers can share a
// [RedisCache] or [MongoCache] between replicas, and [NullCache] turns
// caching off. Keys come from a [Keyer] so that every entry point builds
// identical keys for identical inputs.
//
// Position snapshots are what make successive runs stable across processes:
// the pipeline stores the engine's position cache under
// [Keyer.SnapshotKey] after every pass and restores it before the next.
package cache

import (
	"context"
	"time"
)

// Cache is a key-value store with expiring entries.
type Cache interface {
	// Get returns the value for key and whether it was found. A miss is
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Entry lifetimes.
const (
	// TTLSnapshot keeps position snapshots around long enough to bridge
	// releases of a slowly changing repository.
	TTLSnapshot = 90 * 24 * time.Hour
	// TTLLayout applies to computed diagram layouts.
	TTLLayout = 7 * 24 * time.Hour
	// TTLArtifact applies to rendered SVG, PNG, and PDF output.
	TTLArtifact = 7 * 24 * time.Hour
)

// Clear drops every entry in c if the backend supports it.
func Clear(ctx context.Context, c Cache) error {
	if cl, ok := c.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return nil
}
