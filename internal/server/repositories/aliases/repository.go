// Package aliases stores forwarding aliases.
package aliases

import (
	"context"

	"github.com/dmitrijs2005/webmail/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrAlreadyExists if the name is taken by
	// any user. Names compare case-insensitively.
	Create(ctx context.Context, a *models.Alias) (*models.Alias, error)
	Get(ctx context.Context, userID, id int64) (*models.Alias, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Alias, error)
	// Update writes forwardTo, isActive, description and updatedAt.
	Update(ctx context.Context, a *models.Alias) error
	Delete(ctx context.Context, userID, id int64) error
}
