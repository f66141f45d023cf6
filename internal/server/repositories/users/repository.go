// Package users declares the account repository and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/webmail/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID. A taken email yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateProfile stores first/last name and signature.
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateMailboxSecret(ctx context.Context, id int64, secret string) error
	SetStorageUsed(ctx context.Context, id int64, used int64) error
}
