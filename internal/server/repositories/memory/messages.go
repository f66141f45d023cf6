package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/messages"
)

type messageRepo struct{ s *Store }

// view returns a copy of m with the derived active-draft flag. mu must be
// held.
func (r *messageRepo) view(m *models.Message) *models.Message {
	c := m.Clone()
	id, ok := r.s.activeDrafts[m.UserID]
	c.IsActiveDraft = ok && id == m.ID
	return c
}

func (r *messageRepo) Create(_ context.Context, m *models.Message) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m.ID = r.s.nextID()
	m.IsActiveDraft = false
	c := m.Clone()
	c.Tags = nil
	r.s.messages[m.ID] = c
	return m, nil
}

func (r *messageRepo) Get(_ context.Context, id int64) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.view(m), nil
}

func (r *messageRepo) Update(_ context.Context, m *models.Message, expectedUpdatedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.messages[m.ID]
	if !ok {
		if expectedUpdatedAt != nil {
			return common.ErrVersionConflict
		}
		return common.ErrorNotFound
	}
	if expectedUpdatedAt != nil && !cur.UpdatedAt.Equal(*expectedUpdatedAt) {
		return common.ErrVersionConflict
	}

	c := m.Clone()
	c.UserID = cur.UserID
	c.CreatedAt = cur.CreatedAt
	c.IsActiveDraft = false
	c.Tags = nil
	r.s.messages[m.ID] = c
	return nil
}

func (r *messageRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return common.ErrorNotFound
	}
	delete(r.s.messages, id)
	if r.s.activeDrafts[m.UserID] == id {
		delete(r.s.activeDrafts, m.UserID)
	}
	r.s.dropMessageTags(func(mt messageTag) bool { return mt.messageID == id })
	return nil
}

// sorted returns the matching rows ordered by id. mu must be held.
func (r *messageRepo) sorted(match func(m *models.Message) bool) []*models.Message {
	var out []*models.Message
	for _, m := range r.s.messages {
		if match(m) {
			out = append(out, r.view(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *messageRepo) List(_ context.Context, q messages.Query) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.sorted(func(m *models.Message) bool {
		if m.UserID != q.UserID {
			return false
		}
		if q.Folder != nil && m.Folder != *q.Folder {
			return false
		}
		return !q.StarredOnly || m.IsStarred
	}), nil
}

func (r *messageRepo) FolderStats(_ context.Context, userID int64) ([]messages.FolderStat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := map[models.FolderRef]int{}
	var out []messages.FolderStat
	for _, m := range r.sorted(func(m *models.Message) bool { return m.UserID == userID }) {
		i, ok := idx[m.Folder]
		if !ok {
			i = len(out)
			idx[m.Folder] = i
			out = append(out, messages.FolderStat{Folder: m.Folder})
		}
		out[i].Total++
		if !m.IsRead {
			out[i].Unread++
		}
		if m.IsDraft {
			out[i].Drafts++
		}
	}
	return out, nil
}

func (r *messageRepo) CountStarred(_ context.Context, userID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, m := range r.s.messages {
		if m.UserID == userID && m.IsStarred {
			n++
		}
	}
	return n, nil
}

func (r *messageRepo) MoveOutOfFolder(_ context.Context, userID, folderID int64, to models.FolderRef) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	now := r.s.now()
	for _, m := range r.s.messages {
		if m.UserID == userID && m.Folder.CustomID == folderID {
			m.Folder = to
			m.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *messageRepo) ListEmptyDrafts(_ context.Context, userID int64) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	active, hasActive := r.s.activeDrafts[userID]
	return r.sorted(func(m *models.Message) bool {
		return m.UserID == userID && m.IsDraft &&
			m.Subject == "" && m.Body == "" && m.ToAddress == "" &&
			!(hasActive && active == m.ID)
	}), nil
}

func (r *messageRepo) ListExpired(_ context.Context, cutoff time.Time) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.sorted(func(m *models.Message) bool {
		switch {
		case m.Folder.Is(models.FolderTrash):
			return m.UpdatedAt.Before(cutoff)
		case m.Folder.Is(models.FolderJunk):
			at := m.CreatedAt
			if m.ReceivedAt != nil {
				at = *m.ReceivedAt
			}
			return at.Before(cutoff)
		}
		return false
	}), nil
}

func (r *messageRepo) ActiveDraftID(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.activeDrafts[userID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return id, nil
}

func (r *messageRepo) SetActiveDraft(_ context.Context, userID, messageID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.activeDrafts[userID]; ok {
		return common.ErrConcurrencyConflict
	}
	for _, id := range r.s.activeDrafts {
		if id == messageID {
			return common.ErrConcurrencyConflict
		}
	}
	if _, ok := r.s.messages[messageID]; !ok {
		return common.ErrorNotFound
	}
	r.s.activeDrafts[userID] = messageID
	return nil
}

func (r *messageRepo) ClearActiveDraft(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.activeDrafts, userID)
	return nil
}
