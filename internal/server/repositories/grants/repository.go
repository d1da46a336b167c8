// Package grants stores per-user read grants on files.
package grants

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type Repository interface {
	// Upsert adds the grant unless the (file, grantee) pair already exists.
	// created is false when it did.
	Upsert(ctx context.Context, g *models.Grant) (created bool, err error)
	Exists(ctx context.Context, fileID, granteeID string) (bool, error)
	// Delete removes the grant. Removing a missing grant is not an error.
	Delete(ctx context.Context, fileID, granteeID string) error
	ListByFile(ctx context.Context, fileID string) ([]*models.Grant, error)
}
