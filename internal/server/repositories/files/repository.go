// Package files stores metadata of uploaded files. Blob bytes live in
// object storage and are referenced by File.StorageKey.
package files

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type Repository interface {
	// Create inserts a file whose ID was assigned by the caller.
	Create(ctx context.Context, file *models.File) error
	Get(ctx context.Context, id string) (*models.File, error)
	// Lock reads the file and holds a row lock until the surrounding
	// transaction ends. Outside a transaction it behaves like Get.
	Lock(ctx context.Context, id string) (*models.File, error)
	// ListVisible returns files owned by userID or granted to userID,
	// newest first, each file once.
	ListVisible(ctx context.Context, userID string) ([]*models.File, error)
}
