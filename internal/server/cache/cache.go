// Package cache holds per-user file-list caches. A cache miss or a cache
// failure only costs a repository query; correctness never depends on it.
package cache

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

// FileListCache caches the result of "files visible to user".
//
// A fill reads Generation before querying the repository and passes it to
// Set. Set stores nothing if an Invalidate for that user happened in between,
// so a list read before a grant commits is never cached after it.
type FileListCache interface {
	Get(ctx context.Context, userID string) ([]*models.File, bool)
	// Generation returns the user's invalidation counter. ok is false when
	// it cannot be read, in which case the caller skips Set.
	Generation(ctx context.Context, userID string) (gen int64, ok bool)
	Set(ctx context.Context, userID string, gen int64, files []*models.File)
	// Invalidate drops the entries of every listed user.
	Invalidate(ctx context.Context, userIDs ...string)
}

// Noop never caches.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]*models.File, bool) { return nil, false }
func (Noop) Generation(context.Context, string) (int64, bool) { return 0, false }
func (Noop) Set(context.Context, string, int64, []*models.File) {}
func (Noop) Invalidate(context.Context, ...string) {}
