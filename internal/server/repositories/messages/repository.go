// Package messages stores message rows. Rows carry ciphertext in the
// encrypted columns; this package never sees keys. The active draft of a
// user is a separate per-user reference, so at most one can exist.
package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webmail/internal/server/models"
)

// Query selects a user's messages. Folder nil means every folder.
type Query struct {
	UserID      int64
	Folder      *models.FolderRef
	StarredOnly bool
}

// FolderStat aggregates the messages of one folder.
type FolderStat struct {
	Folder models.FolderRef
	Total  int
	Unread int
	Drafts int
}

type Repository interface {
	// Create inserts m and fills ID. IsActiveDraft is ignored; use
	// SetActiveDraft.
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	Get(ctx context.Context, id int64) (*models.Message, error)
	// Update overwrites all mutable columns of m. With expectedUpdatedAt set
	// the write only happens if the stored updatedAt still matches, else
	// common.ErrVersionConflict.
	Update(ctx context.Context, m *models.Message, expectedUpdatedAt *time.Time) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q Query) ([]*models.Message, error)

	FolderStats(ctx context.Context, userID int64) ([]FolderStat, error)
	CountStarred(ctx context.Context, userID int64) (int, error)
	// MoveOutOfFolder reassigns every message of a custom folder.
	MoveOutOfFolder(ctx context.Context, userID, folderID int64, to models.FolderRef) (int64, error)

	// ListEmptyDrafts returns drafts with empty subject, body and recipient
	// that are not the active draft.
	ListEmptyDrafts(ctx context.Context, userID int64) ([]*models.Message, error)
	// ListExpired returns Trash rows last updated before cutoff and Junk rows
	// received (or created) before cutoff, across all users.
	ListExpired(ctx context.Context, cutoff time.Time) ([]*models.Message, error)

	// ActiveDraftID returns common.ErrorNotFound when the user has none.
	ActiveDraftID(ctx context.Context, userID int64) (int64, error)
	// SetActiveDraft fails with common.ErrConcurrencyConflict if the user
	// already has an active draft.
	SetActiveDraft(ctx context.Context, userID, messageID int64) error
	ClearActiveDraft(ctx context.Context, userID int64) error
}
