// Package redemptions stores the audit trail of share-link redemptions.
package redemptions

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.LinkRedemption) error
	ListByFile(ctx context.Context, fileID string, limit int) ([]*models.LinkRedemption, error)
}
