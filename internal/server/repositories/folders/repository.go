// Package folders stores user-created folders. System folders are static
// and never persisted.
package folders

import (
	"context"

	"github.com/dmitrijs2005/webmail/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrAlreadyExists when the user already has a
	// folder of that name, compared case-insensitively.
	Create(ctx context.Context, f *models.Folder) (*models.Folder, error)
	Get(ctx context.Context, id int64) (*models.Folder, error)
	GetByName(ctx context.Context, userID int64, name string) (*models.Folder, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Folder, error)
	Update(ctx context.Context, f *models.Folder) error
	Delete(ctx context.Context, id int64) error
}
