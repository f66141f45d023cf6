package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/server/models"
)

// userLocks hands out one mutex per user. Draft transitions hold it for
// their whole read-modify-write. Entries are refcounted and dropped once
// the last holder or waiter lets go.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[int64]*userLock{}
	}
	e, ok := l.locks[userID]
	if !ok {
		e = &userLock{}
		l.locks[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

// CreateActiveDraft opens compose. Without forceNew an existing active
// draft is returned as it is. Otherwise the current reference is dropped,
// empty drafts are purged and a fresh empty draft becomes the active one.
func (s *MessageService) CreateActiveDraft(ctx context.Context, userID int64, forceNew bool) (*models.Message, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	if !forceNew {
		id, err := s.messages().ActiveDraftID(ctx, userID)
		if err == nil {
			return s.get(ctx, userID, id)
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}

	now := s.timestamp()
	draft := &models.Message{
		UserID:     userID,
		Folder:     models.SystemRef(models.FolderDrafts),
		MessageID:  "draft-" + strconv.FormatInt(now.UnixMilli(), 10),
		IsRead:     true,
		IsDraft:    true,
		Priority:   models.PriorityNormal,
		ReceivedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var purged []*models.Message
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)
		if err := repo.ClearActiveDraft(ctx, userID); err != nil {
			return err
		}

		empty, err := repo.ListEmptyDrafts(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.deleteRows(ctx, tx, empty); err != nil {
			return err
		}
		purged = empty

		if _, err := repo.Create(ctx, draft); err != nil {
			return err
		}
		return repo.SetActiveDraft(ctx, userID, draft.ID)
	})
	if err != nil {
		return nil, err
	}
	s.cleanupFiles(ctx, purged)

	s.logger.Debug(ctx, "active draft created", "user_id", userID, "message_id", draft.ID, "purged", len(purged))
	return s.get(ctx, userID, draft.ID)
}

// ActiveDraft reports false when the user has none.
func (s *MessageService) ActiveDraft(ctx context.Context, userID int64) (*models.Message, bool, error) {
	id, err := s.messages().ActiveDraftID(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	m, err := s.get(ctx, userID, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// ClearActiveDraft drops the active reference. The draft row stays.
func (s *MessageService) ClearActiveDraft(ctx context.Context, userID int64) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	return s.messages().ClearActiveDraft(ctx, userID)
}

// ConvertToSent overwrites the draft in place, keeping its id, and files it
// under Sent. Attachments are kept when p omits them.
func (s *MessageService) ConvertToSent(ctx context.Context, userID, draftID int64, p models.MessagePatch) (*models.Message, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	return s.convertToSent(ctx, userID, draftID, p)
}

// convertToSent needs the user's lock held.
func (s *MessageService) convertToSent(ctx context.Context, userID, draftID int64, p models.MessagePatch) (*models.Message, error) {
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)
		row, err := owned(ctx, repo, userID, draftID)
		if err != nil {
			return err
		}
		if !row.IsDraft {
			return fmt.Errorf("%w: message %d is no longer a draft", common.ErrConcurrencyConflict, draftID)
		}

		if err := s.applyPatch(ctx, row, p); err != nil {
			return err
		}
		now := s.timestamp()
		row.Folder = models.SystemRef(models.FolderSent)
		row.IsDraft = false
		row.SentAt = &now
		row.UpdatedAt = now

		if row.IsActiveDraft {
			if err := repo.ClearActiveDraft(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Update(ctx, row, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "draft converted to sent", "user_id", userID, "message_id", draftID)
	return s.get(ctx, userID, draftID)
}
