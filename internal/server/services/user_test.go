package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/attachments"
	"github.com/dmitrijs2005/webmail/internal/server/auth"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, env *testEnv) *UserService {
	t.Helper()
	return NewUserService(env.rm, env.cipher, env.store, env.logger, env.cfg)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t, newTestEnv(t))

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"bad email", "not-an-email", "secret1"},
		{"empty email", "", "secret1"},
		{"short password", "a@example.com", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password, "", "")
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestRegister_SuccessAndDuplicate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newUserService(t, env)

	u, err := svc.Register(ctx, " Alice@Example.com ", "secret1", " Alice ", "Smith")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", u.FirstName)
	assert.Equal(t, "Alice Smith", u.DisplayName())
	assert.Equal(t, env.cfg.DefaultStorageQuota, u.StorageQuota)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.NotEmpty(t, u.MailboxSecret)
	assert.NotEqual(t, "secret1", u.MailboxSecret)

	_, err = svc.Register(ctx, "alice@example.com", "another1", "", "")
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestRegister_CreatesStorageArea(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	dir := t.TempDir()
	env.store = attachments.NewLocalStore(dir, logging.NewDiscard())
	svc := newUserService(t, env)

	u, err := svc.Register(ctx, "bob@example.com", "secret1", "", "")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "user_"+strconv.FormatInt(u.ID, 10)))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLogin_Flows(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t, newTestEnv(t))

	u, err := svc.Register(ctx, "carol@example.com", "secret1", "", "")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "carol@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Len(t, pair.RefreshToken, 64)

	id, err := auth.GetUserIDFromToken(pair.AccessToken, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = svc.Login(ctx, "carol@example.com", "wrong-password")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefreshToken_RotatesAndRejectsReuse(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t, newTestEnv(t))

	_, err := svc.Register(ctx, "dave@example.com", "secret1", "", "")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "dave@example.com", "secret1")
	require.NoError(t, err)

	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken, "a used refresh token is gone")

	_, err = svc.RefreshToken(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefreshToken_Expired(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t, newTestEnv(t))

	_, err := svc.Register(ctx, "erin@example.com", "secret1", "", "")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "erin@example.com", "secret1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t, newTestEnv(t))

	u, err := svc.Register(ctx, "frank@example.com", "secret1", "Frank", "")
	require.NoError(t, err)

	sig := "-- Frank"
	got, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{LastName: strp(" Jones "), Signature: &sig})
	require.NoError(t, err)
	assert.Equal(t, "Frank", got.FirstName)
	assert.Equal(t, "Jones", got.LastName)
	assert.Equal(t, sig, got.Signature)

	_, err = svc.UpdateProfile(ctx, u.ID+100, ProfileUpdate{})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMailboxCredentials(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newUserService(t, env)

	u, err := svc.Register(ctx, "gina@example.com", "secret1", "", "")
	require.NoError(t, err)

	creds, err := svc.MailboxCredentials(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "gina@example.com", creds.Username)
	assert.Equal(t, "secret1", creds.Password)

	require.NoError(t, env.rm.Users(nil).UpdateMailboxSecret(ctx, u.ID, "garbage"))
	_, err = svc.MailboxCredentials(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	// Logging in again reseals the secret.
	_, err = svc.Login(ctx, "gina@example.com", "secret1")
	require.NoError(t, err)
	creds, err = svc.MailboxCredentials(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret1", creds.Password)
}

// --- refresh over the SQL repositories ---

func TestRefreshToken_PostgresTransaction(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := newTestEnv(t)
	rm := repomanager.NewPostgresRepositoryManager(db)
	svc := NewUserService(rm, env.cipher, env.store, env.logger, env.cfg)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, expires, created_at`)).
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires", "created_at"}).
			AddRow(int64(7), time.Now().Add(time.Hour), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_tokens`)).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO refresh_tokens`)).
		WithArgs(int64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pair, err := svc.RefreshToken(ctx, "old")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_PostgresRollbackOnDeleteError(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := newTestEnv(t)
	svc := NewUserService(repomanager.NewPostgresRepositoryManager(db), env.cipher, env.store, env.logger, env.cfg)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, expires, created_at`)).
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires", "created_at"}).
			AddRow(int64(7), time.Now().Add(time.Hour), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_tokens`)).
		WithArgs("old").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err = svc.RefreshToken(ctx, "old")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error deleting refresh token")
	require.NoError(t, mock.ExpectationsWereMet())
}
