// Package tags stores user tags and their message associations.
package tags

import (
	"context"

	"github.com/dmitrijs2005/webmail/internal/server/models"
)

// Association links one message to one tag, with the tag name resolved.
type Association struct {
	MessageID int64
	TagID     int64
	Name      string
}

type Repository interface {
	// Create fails with common.ErrAlreadyExists on a duplicate name.
	Create(ctx context.Context, tag *models.Tag) (*models.Tag, error)
	Get(ctx context.Context, id int64) (*models.Tag, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Tag, error)
	Update(ctx context.Context, tag *models.Tag) error
	Delete(ctx context.Context, id int64) error

	// AddToMessage reports false when the association already existed.
	AddToMessage(ctx context.Context, messageID, tagID int64) (bool, error)
	RemoveFromMessage(ctx context.Context, messageID, tagID int64) (bool, error)
	RemoveAllFromMessage(ctx context.Context, messageID int64) error
	ListForMessage(ctx context.Context, messageID int64) ([]*models.Tag, error)
	// Associations lists every tag association of the user's messages.
	Associations(ctx context.Context, userID int64) ([]Association, error)
}
