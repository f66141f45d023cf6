package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/tags"
)

// dropMessageTags removes associations matching fn. mu must be held.
func (s *Store) dropMessageTags(fn func(mt messageTag) bool) int {
	kept := s.messageTags[:0]
	n := 0
	for _, mt := range s.messageTags {
		if fn(mt) {
			n++
			continue
		}
		kept = append(kept, mt)
	}
	s.messageTags = kept
	return n
}

type tagRepo struct{ s *Store }

func (r *tagRepo) Create(_ context.Context, tag *models.Tag) (*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.tags {
		if t.UserID == tag.UserID && t.Name == tag.Name {
			return nil, common.ErrAlreadyExists
		}
	}
	tag.ID = r.s.nextID()
	tag.CreatedAt = r.s.now()
	c := *tag
	r.s.tags[tag.ID] = &c
	return tag, nil
}

func (r *tagRepo) Get(_ context.Context, id int64) (*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tags[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (r *tagRepo) ListByUser(_ context.Context, userID int64) ([]*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Tag
	for _, t := range r.s.tags {
		if t.UserID == userID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *tagRepo) Update(_ context.Context, tag *models.Tag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.tags[tag.ID]
	if !ok {
		return common.ErrorNotFound
	}
	for _, t := range r.s.tags {
		if t.ID != tag.ID && t.UserID == cur.UserID && t.Name == tag.Name {
			return common.ErrAlreadyExists
		}
	}
	cur.Name, cur.Color = tag.Name, tag.Color
	return nil
}

func (r *tagRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tags[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.tags, id)
	r.s.dropMessageTags(func(mt messageTag) bool { return mt.tagID == id })
	return nil
}

func (r *tagRepo) AddToMessage(_ context.Context, messageID, tagID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.messages[messageID]; !ok {
		return false, common.ErrorNotFound
	}
	if _, ok := r.s.tags[tagID]; !ok {
		return false, common.ErrorNotFound
	}
	for _, mt := range r.s.messageTags {
		if mt.messageID == messageID && mt.tagID == tagID {
			return false, nil
		}
	}
	r.s.messageTags = append(r.s.messageTags, messageTag{messageID: messageID, tagID: tagID})
	return true, nil
}

func (r *tagRepo) RemoveFromMessage(_ context.Context, messageID, tagID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := r.s.dropMessageTags(func(mt messageTag) bool { return mt.messageID == messageID && mt.tagID == tagID })
	return n > 0, nil
}

func (r *tagRepo) RemoveAllFromMessage(_ context.Context, messageID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.dropMessageTags(func(mt messageTag) bool { return mt.messageID == messageID })
	return nil
}

func (r *tagRepo) ListForMessage(_ context.Context, messageID int64) ([]*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Tag
	for _, mt := range r.s.messageTags {
		if mt.messageID != messageID {
			continue
		}
		if t, ok := r.s.tags[mt.tagID]; ok {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *tagRepo) Associations(_ context.Context, userID int64) ([]tags.Association, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []tags.Association
	for _, mt := range r.s.messageTags {
		t, ok := r.s.tags[mt.tagID]
		if !ok || t.UserID != userID {
			continue
		}
		out = append(out, tags.Association{MessageID: mt.messageID, TagID: t.ID, Name: t.Name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	return out, nil
}

type folderRepo struct{ s *Store }

// nameTaken must be called with mu held.
func (r *folderRepo) nameTaken(userID, exceptID int64, name string) bool {
	for _, f := range r.s.folders {
		if f.ID != exceptID && f.UserID == userID && strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func (r *folderRepo) Create(_ context.Context, f *models.Folder) (*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(f.UserID, 0, f.Name) {
		return nil, common.ErrAlreadyExists
	}
	now := r.s.now()
	f.ID = r.s.nextID()
	f.Kind = models.FolderKindCustom
	f.CreatedAt, f.UpdatedAt = now, now
	c := *f
	r.s.folders[f.ID] = &c
	return f, nil
}

func (r *folderRepo) Get(_ context.Context, id int64) (*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.folders[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *f
	return &c, nil
}

func (r *folderRepo) GetByName(_ context.Context, userID int64, name string) (*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, f := range r.s.folders {
		if f.UserID == userID && strings.EqualFold(f.Name, name) {
			c := *f
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *folderRepo) ListByUser(_ context.Context, userID int64) ([]*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Folder
	for _, f := range r.s.folders {
		if f.UserID == userID {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *folderRepo) Update(_ context.Context, f *models.Folder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.folders[f.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if r.nameTaken(cur.UserID, cur.ID, f.Name) {
		return common.ErrAlreadyExists
	}
	cur.Name, cur.Color, cur.Icon = f.Name, f.Color, f.Icon
	cur.UpdatedAt = r.s.now()
	return nil
}

func (r *folderRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.folders[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.folders, id)
	return nil
}

type blockedSenderRepo struct{ s *Store }

func (r *blockedSenderRepo) Create(_ context.Context, b *models.BlockedSender) (*models.BlockedSender, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, cur := range r.s.blocked {
		if cur.UserID == b.UserID && strings.EqualFold(cur.Email, b.Email) {
			return nil, common.ErrAlreadyExists
		}
	}
	b.ID = r.s.nextID()
	b.CreatedAt = r.s.now()
	c := *b
	r.s.blocked[b.ID] = &c
	return b, nil
}

func (r *blockedSenderRepo) ListByUser(_ context.Context, userID int64) ([]*models.BlockedSender, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.BlockedSender
	for _, b := range r.s.blocked {
		if b.UserID == userID {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *blockedSenderRepo) Delete(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.blocked[id]
	if !ok || b.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.s.blocked, id)
	return nil
}

func (r *blockedSenderRepo) IsBlocked(_ context.Context, userID int64, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.blocked {
		if b.UserID == userID && strings.EqualFold(b.Email, email) {
			return true, nil
		}
	}
	return false, nil
}
