package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentService_UploadAndUsage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.addUser(t, "me@example.com")
	svc := NewAttachmentService(env.rm, env.store, env.logger, 100, 0)

	a, err := svc.Upload(ctx, u.ID, "../report?.txt", "", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.Size)
	assert.Equal(t, "application/octet-stream", a.MimeType)
	assert.NotContains(t, a.Filename, "/")
	assert.NotEmpty(t, a.Path)

	data, err := svc.Load(ctx, u.ID, a.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	usage, err := svc.Usage(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), usage.Used)
	assert.Equal(t, env.cfg.DefaultStorageQuota, usage.Quota)

	user, err := env.rm.Users(nil).GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.StorageUsed)

	removed, err := svc.Remove(ctx, u.ID, a.Path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Remove(ctx, u.ID, a.Path)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.Load(ctx, u.ID, a.Path)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAttachmentService_SizeLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.addUser(t, "me@example.com")
	svc := NewAttachmentService(env.rm, env.store, env.logger, 4, 0)

	_, err := svc.Upload(ctx, u.ID, "big.bin", "application/octet-stream", []byte("12345"))
	assert.ErrorIs(t, err, common.ErrValidation)

	used, err := env.store.UsageBytes(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, used, "nothing is written when the file is too large")
}

func TestAttachmentService_Quota(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.cfg.DefaultStorageQuota = 10
	u := env.addUser(t, "me@example.com")
	svc := NewAttachmentService(env.rm, env.store, env.logger, 0, 10)

	_, err := svc.Upload(ctx, u.ID, "a.bin", "", bytes.Repeat([]byte("a"), 8))
	require.NoError(t, err)

	_, err = svc.Upload(ctx, u.ID, "b.bin", "", bytes.Repeat([]byte("b"), 5))
	assert.ErrorIs(t, err, common.ErrStorageQuotaExceeded)

	_, err = svc.Upload(ctx, u.ID, "c.bin", "", []byte("cc"))
	assert.NoError(t, err, "exactly filling the quota is allowed")

	_, err = svc.Load(ctx, u.ID, "../../etc/passwd")
	assert.Error(t, err)
}
