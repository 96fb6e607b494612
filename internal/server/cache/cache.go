// Package cache provides the per-user file entry listing cache. Listings
// are expensive to compute from the version-control store, so they are kept
// under the user id and evicted wholesale when the store reports a commit
// for that user.
package cache

import (
	"context"
	"time"

	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// DefaultTTL bounds staleness for entries whose eviction hook was missed,
// e.g. after a process restart with a warm Redis.
const DefaultTTL = 30 * time.Minute

// EntryCache stores one listing (metadata only, no content) per user id.
type EntryCache interface {
	// Get returns the cached listing and whether the key was present.
	Get(ctx context.Context, userID string) ([]models.FileEntry, bool, error)

	// Set stores the listing for the user id.
	Set(ctx context.Context, userID string, entries []models.FileEntry) error

	// Evict drops the listing for the user id. Evicting an absent key is
	// not an error.
	Evict(ctx context.Context, userID string) error
}
