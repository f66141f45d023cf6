package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDraft(userID int64) *models.Message {
	now := time.Now()
	return &models.Message{UserID: userID, Folder: models.SystemRef(models.FolderDrafts), IsDraft: true,
		Priority: models.PriorityNormal, CreatedAt: now, UpdatedAt: now}
}

func TestUsers_EmailUniqueCaseInsensitive(t *testing.T) {
	repo := NewStore().Users()
	ctx := context.Background()

	u, err := repo.Create(ctx, &models.User{Email: "Alice@Example.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	got, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	assert.ErrorIs(t, repo.SetStorageUsed(ctx, 999, 1), common.ErrorNotFound)
}

func TestMessages_ReturnsCopies(t *testing.T) {
	repo := NewStore().Messages()
	ctx := context.Background()

	m, err := repo.Create(ctx, newDraft(1))
	require.NoError(t, err)

	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	got.Subject = "changed"

	again, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Subject)
}

func TestMessages_ActiveDraftReference(t *testing.T) {
	repo := NewStore().Messages()
	ctx := context.Background()

	a, _ := repo.Create(ctx, newDraft(1))
	b, _ := repo.Create(ctx, newDraft(1))

	_, err := repo.ActiveDraftID(ctx, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.SetActiveDraft(ctx, 1, a.ID))
	assert.ErrorIs(t, repo.SetActiveDraft(ctx, 1, b.ID), common.ErrConcurrencyConflict)

	got, _ := repo.Get(ctx, a.ID)
	assert.True(t, got.IsActiveDraft)
	got, _ = repo.Get(ctx, b.ID)
	assert.False(t, got.IsActiveDraft)

	empty, err := repo.ListEmptyDrafts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Equal(t, b.ID, empty[0].ID)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.ActiveDraftID(ctx, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMessages_UpdateVersionCheck(t *testing.T) {
	repo := NewStore().Messages()
	ctx := context.Background()

	m, _ := repo.Create(ctx, newDraft(1))
	stale := m.UpdatedAt.Add(-time.Minute)

	m.Subject = "x"
	assert.ErrorIs(t, repo.Update(ctx, m, &stale), common.ErrVersionConflict)

	current := m.UpdatedAt
	m.UpdatedAt = current.Add(time.Second)
	require.NoError(t, repo.Update(ctx, m, &current))

	m.ID = 12345
	assert.ErrorIs(t, repo.Update(ctx, m, nil), common.ErrorNotFound)
}

func TestMessages_ListAndStats(t *testing.T) {
	s := NewStore()
	repo := s.Messages()
	ctx := context.Background()

	inbox := models.SystemRef(models.FolderInbox)
	for i := 0; i < 3; i++ {
		m := &models.Message{UserID: 1, Folder: inbox, IsRead: i == 0, IsStarred: i == 2}
		_, err := repo.Create(ctx, m)
		require.NoError(t, err)
	}
	_, _ = repo.Create(ctx, &models.Message{UserID: 2, Folder: inbox})
	_, _ = repo.Create(ctx, newDraft(1))

	got, err := repo.List(ctx, messages.Query{UserID: 1, Folder: &inbox})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	starred, err := repo.List(ctx, messages.Query{UserID: 1, StarredOnly: true})
	require.NoError(t, err)
	assert.Len(t, starred, 1)

	stats, err := repo.FolderStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []messages.FolderStat{
		{Folder: inbox, Total: 3, Unread: 2},
		{Folder: models.SystemRef(models.FolderDrafts), Total: 1, Unread: 1, Drafts: 1},
	}, stats)

	n, err := repo.CountStarred(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMessages_ListExpired(t *testing.T) {
	repo := NewStore().Messages()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	trashOld, _ := repo.Create(ctx, &models.Message{UserID: 1, Folder: models.SystemRef(models.FolderTrash), UpdatedAt: old})
	_, _ = repo.Create(ctx, &models.Message{UserID: 1, Folder: models.SystemRef(models.FolderTrash), UpdatedAt: fresh})
	junkOld, _ := repo.Create(ctx, &models.Message{UserID: 1, Folder: models.SystemRef(models.FolderJunk), ReceivedAt: &old, CreatedAt: fresh})
	junkFallback, _ := repo.Create(ctx, &models.Message{UserID: 2, Folder: models.SystemRef(models.FolderJunk), CreatedAt: old})
	_, _ = repo.Create(ctx, &models.Message{UserID: 1, Folder: models.SystemRef(models.FolderInbox), UpdatedAt: old})

	got, err := repo.ListExpired(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)

	var ids []int64
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{trashOld.ID, junkOld.ID, junkFallback.ID}, ids)
}

func TestMessages_MoveOutOfFolder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	f, err := s.Folders().Create(ctx, &models.Folder{UserID: 1, Name: "Work"})
	require.NoError(t, err)
	m, _ := s.Messages().Create(ctx, &models.Message{UserID: 1, Folder: f.Ref()})

	n, err := s.Messages().MoveOutOfFolder(ctx, 1, f.ID, models.SystemRef(models.FolderInbox))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := s.Messages().Get(ctx, m.ID)
	assert.True(t, got.Folder.Is(models.FolderInbox))
}

func TestTags_AssociationsCascade(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	m, _ := s.Messages().Create(ctx, &models.Message{UserID: 1, Folder: models.SystemRef(models.FolderInbox)})
	work, err := s.Tags().Create(ctx, &models.Tag{UserID: 1, Name: "work"})
	require.NoError(t, err)
	home, _ := s.Tags().Create(ctx, &models.Tag{UserID: 1, Name: "home"})

	_, err = s.Tags().Create(ctx, &models.Tag{UserID: 1, Name: "work"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	added, err := s.Tags().AddToMessage(ctx, m.ID, work.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, _ = s.Tags().AddToMessage(ctx, m.ID, work.ID)
	assert.False(t, added)
	_, _ = s.Tags().AddToMessage(ctx, m.ID, home.ID)

	list, _ := s.Tags().ListForMessage(ctx, m.ID)
	require.Len(t, list, 2)
	assert.Equal(t, "work", list[0].Name)

	require.NoError(t, s.Tags().Delete(ctx, work.ID))
	list, _ = s.Tags().ListForMessage(ctx, m.ID)
	require.Len(t, list, 1)

	require.NoError(t, s.Messages().Delete(ctx, m.ID))
	assoc, _ := s.Tags().Associations(ctx, 1)
	assert.Empty(t, assoc)
}

func TestFolders_NameUniqueness(t *testing.T) {
	repo := NewStore().Folders()
	ctx := context.Background()

	a, err := repo.Create(ctx, &models.Folder{UserID: 1, Name: "Work"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Folder{UserID: 1, Name: "WORK"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
	_, err = repo.Create(ctx, &models.Folder{UserID: 2, Name: "work"})
	require.NoError(t, err)

	b, _ := repo.Create(ctx, &models.Folder{UserID: 1, Name: "Home"})
	assert.ErrorIs(t, repo.Update(ctx, &models.Folder{ID: b.ID, Name: "work"}), common.ErrAlreadyExists)
	require.NoError(t, repo.Update(ctx, &models.Folder{ID: a.ID, Name: "work"}))

	got, err := repo.GetByName(ctx, 1, "WORK")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestBlockedSenders(t *testing.T) {
	repo := NewStore().BlockedSenders()
	ctx := context.Background()

	b, err := repo.Create(ctx, &models.BlockedSender{UserID: 1, Email: "Spam@X.io"})
	require.NoError(t, err)

	blocked, _ := repo.IsBlocked(ctx, 1, "spam@x.io")
	assert.True(t, blocked)
	blocked, _ = repo.IsBlocked(ctx, 2, "spam@x.io")
	assert.False(t, blocked)

	assert.ErrorIs(t, repo.Delete(ctx, 2, b.ID), common.ErrorNotFound)
	require.NoError(t, repo.Delete(ctx, 1, b.ID))
}

func TestRefreshTokens(t *testing.T) {
	repo := NewStore().RefreshTokens()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, 1, "tok", time.Hour))
	got, err := repo.Find(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
	assert.True(t, got.Expires.After(time.Now()))

	require.NoError(t, repo.Delete(ctx, "tok"))
	_, err = repo.Find(ctx, "tok")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Create(ctx, 1, "old", -time.Minute))
	require.NoError(t, repo.Create(ctx, 1, "fresh", time.Hour))
	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.Find(ctx, "fresh")
	assert.NoError(t, err)
}

func TestAliases_NameUniqueAcrossUsers(t *testing.T) {
	repo := NewStore().Aliases()
	ctx := context.Background()

	a, err := repo.Create(ctx, &models.Alias{UserID: 1, AliasName: "shop.1234@mail.local", ForwardTo: "me@x.io", IsActive: true})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.Alias{UserID: 2, AliasName: "SHOP.1234@mail.local", ForwardTo: "you@x.io"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	_, err = repo.Get(ctx, 2, a.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	a.IsActive = false
	a.Description = "paused"
	require.NoError(t, repo.Update(ctx, a))
	got, err := repo.Get(ctx, 1, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "paused", got.Description)

	list, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, repo.Delete(ctx, 2, a.ID), common.ErrorNotFound)
	require.NoError(t, repo.Delete(ctx, 1, a.ID))
}
