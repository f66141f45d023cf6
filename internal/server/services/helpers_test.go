package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/webmail/internal/cryptox"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/attachments"
	"github.com/dmitrijs2005/webmail/internal/server/config"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type testEnv struct {
	rm       *repomanager.MemoryRepositoryManager
	cipher   *cryptox.FieldCipher
	store    *attachments.LocalStore
	logger   logging.Logger
	cfg      *config.Config
	messages *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cipher, err := cryptox.NewFieldCipher([]byte("test-encryption-secret"))
	require.NoError(t, err)

	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		DefaultStorageQuota:          1 << 20,
	}

	env := &testEnv{
		rm:     repomanager.NewMemoryRepositoryManager(),
		cipher: cipher,
		store:  attachments.NewLocalStore(t.TempDir(), logging.NewDiscard()),
		logger: logging.NewDiscard(),
		cfg:    cfg,
	}
	env.messages = NewMessageService(env.rm, env.cipher, env.store, env.logger, MessageServiceConfig{
		MaxTagsPerMessage: 2,
		RetentionWindow:   30 * 24 * time.Hour,
	})
	return env
}

// addUser inserts a user row directly, skipping bcrypt.
func (e *testEnv) addUser(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.rm.Users(nil).Create(context.Background(), &models.User{
		Email:        email,
		PasswordHash: "x",
		StorageQuota: e.cfg.DefaultStorageQuota,
	})
	require.NoError(t, err)
	return u
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func draftPatch(subject string) models.MessagePatch {
	return models.MessagePatch{IsDraft: boolp(true), Subject: strp(subject)}
}

func sentPatch(to, subject, body string) models.MessagePatch {
	return models.MessagePatch{
		IsDraft:     boolp(false),
		FromAddress: strp("me@example.com"),
		ToAddress:   strp(to),
		Subject:     strp(subject),
		Body:        strp(body),
	}
}

func inboundPatch(from, fromName, subject string) models.MessagePatch {
	return models.MessagePatch{
		FromAddress: strp(from),
		FromName:    strp(fromName),
		ToAddress:   strp("me@example.com"),
		Subject:     strp(subject),
		Body:        strp("body of " + subject),
	}
}

// listAll returns every message of the folder in display order.
func (e *testEnv) listAll(t *testing.T, userID int64, folder string) []*models.Message {
	t.Helper()
	res, err := e.messages.List(context.Background(), userID, folder, ListOptions{})
	require.NoError(t, err)
	return res.Messages
}
