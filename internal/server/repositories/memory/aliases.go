package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/server/models"
)

type aliasRepo struct{ s *Store }

func (r *aliasRepo) Create(_ context.Context, a *models.Alias) (*models.Alias, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, cur := range r.s.aliases {
		if strings.EqualFold(cur.AliasName, a.AliasName) {
			return nil, common.ErrAlreadyExists
		}
	}
	now := r.s.now()
	a.ID = r.s.nextID()
	a.CreatedAt, a.UpdatedAt = now, now
	c := *a
	r.s.aliases[a.ID] = &c
	return a, nil
}

func (r *aliasRepo) Get(_ context.Context, userID, id int64) (*models.Alias, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.aliases[id]
	if !ok || a.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *a
	return &c, nil
}

func (r *aliasRepo) ListByUser(_ context.Context, userID int64) ([]*models.Alias, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Alias
	for _, a := range r.s.aliases {
		if a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *aliasRepo) Update(_ context.Context, a *models.Alias) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.aliases[a.ID]
	if !ok || cur.UserID != a.UserID {
		return common.ErrorNotFound
	}
	cur.ForwardTo, cur.IsActive, cur.Description, cur.UpdatedAt = a.ForwardTo, a.IsActive, a.Description, a.UpdatedAt
	return nil
}

func (r *aliasRepo) Delete(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.aliases[id]
	if !ok || a.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.s.aliases, id)
	return nil
}
