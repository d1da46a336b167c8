// Package users declares and implements storage of registered accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type Repository interface {
	// Create inserts the user and fills in the generated ID.
	// Returns common.ErrorAlreadyExists when the email is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
