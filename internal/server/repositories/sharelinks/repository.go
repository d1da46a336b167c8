// Package sharelinks stores bearer share-link tokens. Rows are never
// deleted; revocation flips the revoked flag so past tokens stay auditable.
package sharelinks

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type Repository interface {
	// Create inserts a new active link. Returns common.ErrorAlreadyExists when
	// the file already has an active link or the token collides.
	Create(ctx context.Context, link *models.ShareLink) error
	// Find returns the link for token whatever its state.
	Find(ctx context.Context, token string) (*models.ShareLink, error)
	// FindActive returns the file's current link or common.ErrorNotFound.
	FindActive(ctx context.Context, fileID string) (*models.ShareLink, error)
	// RevokeActive revokes every active link of the file and reports how many
	// were revoked.
	RevokeActive(ctx context.Context, fileID string, at time.Time) (int64, error)
}
