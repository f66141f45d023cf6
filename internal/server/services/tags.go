package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/tags"
)

type TagUpdate struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// TagService manages the user's tags. Attaching tags to messages is done
// through MessageService, which enforces the per-message limit.
type TagService struct {
	repomanager repomanager.RepositoryManager
}

func NewTagService(m repomanager.RepositoryManager) *TagService {
	return &TagService{repomanager: m}
}

func (s *TagService) repo() tags.Repository {
	return s.repomanager.Tags(s.repomanager.Conn())
}

func (s *TagService) owned(ctx context.Context, userID, id int64) (*models.Tag, error) {
	t, err := s.repo().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (s *TagService) List(ctx context.Context, userID int64) ([]*models.Tag, error) {
	return s.repo().ListByUser(ctx, userID)
}

func (s *TagService) Create(ctx context.Context, userID int64, name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", common.ErrValidation)
	}
	return s.repo().Create(ctx, &models.Tag{UserID: userID, Name: name, Color: color})
}

func (s *TagService) Update(ctx context.Context, userID, id int64, upd TagUpdate) (*models.Tag, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		t.Name = strings.TrimSpace(*upd.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("%w: tag name is required", common.ErrValidation)
		}
	}
	if upd.Color != nil {
		t.Color = *upd.Color
	}
	if err := s.repo().Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes the tag together with its message associations.
func (s *TagService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo().Delete(ctx, id)
}
