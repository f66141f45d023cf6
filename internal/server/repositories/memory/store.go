// Package memory implements every repository interface over process memory.
// It backs the "memory://" DSN and the service tests. Rows are copied on the
// way in and out, so callers never share state with the store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/aliases"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/blockedsenders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/folders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/tags"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/users"
)

type messageTag struct {
	messageID int64
	tagID     int64
}

// Store holds all tables behind one mutex.
type Store struct {
	mu  sync.Mutex
	seq int64

	now func() time.Time

	users         map[int64]*models.User
	refreshTokens map[string]*models.RefreshToken
	folders       map[int64]*models.Folder
	messages      map[int64]*models.Message
	activeDrafts  map[int64]int64 // user id -> message id
	tags          map[int64]*models.Tag
	messageTags   []messageTag
	blocked       map[int64]*models.BlockedSender
	aliases       map[int64]*models.Alias
}

func NewStore() *Store {
	return &Store{
		now:           time.Now,
		users:         map[int64]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		folders:       map[int64]*models.Folder{},
		messages:      map[int64]*models.Message{},
		activeDrafts:  map[int64]int64{},
		tags:          map[int64]*models.Tag{},
		blocked:       map[int64]*models.BlockedSender{},
		aliases:       map[int64]*models.Alias{},
	}
}

// nextID must be called with mu held.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Users() users.Repository                 { return &userRepo{s} }
func (s *Store) RefreshTokens() refreshtokens.Repository { return &refreshTokenRepo{s} }
func (s *Store) Messages() messages.Repository           { return &messageRepo{s} }
func (s *Store) Folders() folders.Repository             { return &folderRepo{s} }
func (s *Store) Tags() tags.Repository                   { return &tagRepo{s} }
func (s *Store) BlockedSenders() blockedsenders.Repository {
	return &blockedSenderRepo{s}
}
func (s *Store) Aliases() aliases.Repository { return &aliasRepo{s} }

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, common.ErrAlreadyExists
		}
	}

	now := r.s.now()
	user.ID = r.s.nextID()
	user.CreatedAt, user.UpdatedAt = now, now
	c := *user
	r.s.users[user.ID] = &c
	return user, nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) update(id int64, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (r *userRepo) UpdateProfile(_ context.Context, user *models.User) error {
	return r.update(user.ID, func(u *models.User) {
		u.FirstName, u.LastName, u.Signature = user.FirstName, user.LastName, user.Signature
		u.UpdatedAt = r.s.now()
	})
}

func (r *userRepo) UpdateMailboxSecret(_ context.Context, id int64, secret string) error {
	return r.update(id, func(u *models.User) {
		u.MailboxSecret = secret
		u.UpdatedAt = r.s.now()
	})
}

func (r *userRepo) SetStorageUsed(_ context.Context, id int64, used int64) error {
	return r.update(id, func(u *models.User) { u.StorageUsed = used })
}

type refreshTokenRepo struct{ s *Store }

func (r *refreshTokenRepo) Create(_ context.Context, userID int64, token string, validity time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.refreshTokens[token]; ok {
		return common.ErrAlreadyExists
	}
	now := r.s.now()
	r.s.refreshTokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: now.Add(validity), CreatedAt: now}
	return nil
}

func (r *refreshTokenRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.refreshTokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (r *refreshTokenRepo) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.refreshTokens, token)
	return nil
}

func (r *refreshTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for token, t := range r.s.refreshTokens {
		if t.Expires.Before(now) {
			delete(r.s.refreshTokens, token)
			n++
		}
	}
	return n, nil
}
