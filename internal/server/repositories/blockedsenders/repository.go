// Package blockedsenders stores the per-user sender block list.
package blockedsenders

import (
	"context"

	"github.com/dmitrijs2005/webmail/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrAlreadyExists if the address is already
	// blocked.
	Create(ctx context.Context, b *models.BlockedSender) (*models.BlockedSender, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.BlockedSender, error)
	Delete(ctx context.Context, userID, id int64) error
	// IsBlocked compares addresses case-insensitively.
	IsBlocked(ctx context.Context, userID int64, email string) (bool, error)
}
