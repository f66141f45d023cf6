package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/folders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
)

// resolveFolder maps a case-insensitive folder identifier to a reference.
// It returns a nil reference and starred=true for the virtual starred
// folder, and common.ErrorNotFound for an unknown custom name.
func resolveFolder(ctx context.Context, repo folders.Repository, userID int64, ident string) (*models.FolderRef, bool, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil, false, fmt.Errorf("%w: folder is required", common.ErrValidation)
	}
	if strings.EqualFold(ident, models.VirtualStarred) {
		return nil, true, nil
	}
	if f, ok := models.ParseSystemFolder(ident); ok {
		ref := models.SystemRef(f)
		return &ref, false, nil
	}

	f, err := repo.GetByName(ctx, userID, ident)
	if err != nil {
		return nil, false, err
	}
	ref := models.CustomRef(f.ID)
	return &ref, false, nil
}

func (s *MessageService) query(ctx context.Context, userID int64, ident string) (messages.Query, error) {
	ref, starred, err := resolveFolder(ctx, s.repomanager.Folders(s.repomanager.Conn()), userID, ident)
	if err != nil {
		return messages.Query{}, err
	}
	return messages.Query{UserID: userID, Folder: ref, StarredOnly: starred}, nil
}

// resolveTarget resolves a folder a message can be stored in.
func (s *MessageService) resolveTarget(ctx context.Context, userID int64, ident string) (models.FolderRef, error) {
	ref, starred, err := resolveFolder(ctx, s.repomanager.Folders(s.repomanager.Conn()), userID, ident)
	if err != nil {
		return models.FolderRef{}, err
	}
	if starred {
		return models.FolderRef{}, fmt.Errorf("%w: starred is not a real folder", common.ErrValidation)
	}
	return *ref, nil
}

// FolderUpdate carries the provided fields of a rename.
type FolderUpdate struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

type FolderService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewFolderService(m repomanager.RepositoryManager, logger logging.Logger) *FolderService {
	return &FolderService{repomanager: m, logger: logger}
}

func validFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: folder name is required", common.ErrValidation)
	}
	if _, ok := models.ParseSystemFolder(name); ok || strings.EqualFold(name, models.VirtualStarred) {
		return "", fmt.Errorf("%w: %q is a reserved folder name", common.ErrValidation, name)
	}
	return name, nil
}

// List returns the system folders followed by the user's own.
func (s *FolderService) List(ctx context.Context, userID int64) ([]*models.Folder, error) {
	custom, err := s.repomanager.Folders(s.repomanager.Conn()).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Folder, 0, len(models.SystemFolders)+len(custom))
	for _, f := range models.SystemFolders {
		out = append(out, &models.Folder{UserID: userID, Name: string(f), Kind: models.FolderKindSystem, System: f})
	}
	return append(out, custom...), nil
}

func (s *FolderService) Create(ctx context.Context, userID int64, name, color, icon string) (*models.Folder, error) {
	name, err := validFolderName(name)
	if err != nil {
		return nil, err
	}
	f, err := s.repomanager.Folders(s.repomanager.Conn()).Create(ctx, &models.Folder{
		UserID: userID,
		Name:   name,
		Kind:   models.FolderKindCustom,
		Color:  color,
		Icon:   icon,
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FolderService) ownedFolder(ctx context.Context, repo folders.Repository, userID, id int64) (*models.Folder, error) {
	f, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

func (s *FolderService) Rename(ctx context.Context, userID, id int64, upd FolderUpdate) (*models.Folder, error) {
	repo := s.repomanager.Folders(s.repomanager.Conn())
	f, err := s.ownedFolder(ctx, repo, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if f.Name, err = validFolderName(*upd.Name); err != nil {
			return nil, err
		}
		if other, err := repo.GetByName(ctx, userID, f.Name); err == nil && other.ID != f.ID {
			return nil, fmt.Errorf("%w: folder %q", common.ErrAlreadyExists, f.Name)
		}
	}
	if upd.Color != nil {
		f.Color = *upd.Color
	}
	if upd.Icon != nil {
		f.Icon = *upd.Icon
	}

	if err := repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return s.ownedFolder(ctx, repo, userID, id)
}

// Delete moves the folder's messages to the Inbox and removes the folder,
// in one transaction.
func (s *FolderService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedFolder(ctx, s.repomanager.Folders(s.repomanager.Conn()), userID, id); err != nil {
		return err
	}

	var moved int64
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		moved, err = s.repomanager.Messages(tx).MoveOutOfFolder(ctx, userID, id, models.SystemRef(models.FolderInbox))
		if err != nil {
			return err
		}
		return s.repomanager.Folders(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "folder deleted", "user_id", userID, "folder_id", id, "moved", moved)
	return nil
}

// Resolve maps a folder identifier as List and Search accept it.
func (s *FolderService) Resolve(ctx context.Context, userID int64, ident string) (*models.FolderRef, bool, error) {
	return resolveFolder(ctx, s.repomanager.Folders(s.repomanager.Conn()), userID, ident)
}
