package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
	"github.com/emersion/go-message/mail"
)

type BlockedSenderService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewBlockedSenderService(m repomanager.RepositoryManager, logger logging.Logger) *BlockedSenderService {
	return &BlockedSenderService{repomanager: m, logger: logger, now: time.Now}
}

// Block adds email to the block list. When messageID names one of the
// user's messages, that message is moved to Junk in the same transaction.
func (s *BlockedSenderService) Block(ctx context.Context, userID int64, email string, messageID *int64) (*models.BlockedSender, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", common.ErrValidation, email)
	}

	var out *models.BlockedSender
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)
		var m *models.Message
		if messageID != nil {
			if m, err = owned(ctx, repo, userID, *messageID); err != nil {
				return err
			}
		}

		// Create before the move so a duplicate leaves the message alone
		// on backends without rollback.
		out, err = s.repomanager.BlockedSenders(tx).Create(ctx, &models.BlockedSender{
			UserID:    userID,
			Email:     strings.ToLower(addr.Address),
			MessageID: messageID,
		})
		if err != nil {
			return err
		}

		if m != nil && !m.IsDraft && !m.Folder.Is(models.FolderJunk) {
			m.Folder = models.SystemRef(models.FolderJunk)
			m.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)
			return repo.Update(ctx, m, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "sender blocked", "user_id", userID, "blocked_id", out.ID)
	return out, nil
}

func (s *BlockedSenderService) List(ctx context.Context, userID int64) ([]*models.BlockedSender, error) {
	return s.repomanager.BlockedSenders(s.repomanager.Conn()).ListByUser(ctx, userID)
}

func (s *BlockedSenderService) Unblock(ctx context.Context, userID, id int64) error {
	return s.repomanager.BlockedSenders(s.repomanager.Conn()).Delete(ctx, userID, id)
}

func (s *BlockedSenderService) IsBlocked(ctx context.Context, userID int64, email string) (bool, error) {
	return s.repomanager.BlockedSenders(s.repomanager.Conn()).IsBlocked(ctx, userID, strings.TrimSpace(email))
}
