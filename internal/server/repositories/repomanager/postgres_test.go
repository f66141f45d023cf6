package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/aliases"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/blockedsenders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/folders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/tags"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestManagers_ImplementInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var _ RepositoryManager = NewPostgresRepositoryManager(db)
	var _ RepositoryManager = NewMemoryRepositoryManager()
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	for name, m := range map[string]RepositoryManager{
		"postgres": NewPostgresRepositoryManager(db),
		"memory":   NewMemoryRepositoryManager(),
	} {
		t.Run(name, func(t *testing.T) {
			conn := m.Conn()
			if m.Users(conn) == nil || m.RefreshTokens(conn) == nil || m.Messages(conn) == nil ||
				m.Folders(conn) == nil || m.Tags(conn) == nil || m.BlockedSenders(conn) == nil || m.Aliases(conn) == nil {
				t.Fatal("factory returned nil")
			}

			var _ users.Repository = m.Users(conn)
			var _ refreshtokens.Repository = m.RefreshTokens(conn)
			var _ messages.Repository = m.Messages(conn)
			var _ folders.Repository = m.Folders(conn)
			var _ tags.Repository = m.Tags(conn)
			var _ blockedsenders.Repository = m.BlockedSenders(conn)
			var _ aliases.Repository = m.Aliases(conn)
		})
	}
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	m := NewPostgresRepositoryManager(db)

	mock.ExpectBegin()
	mock.ExpectCommit()
	if err := m.WithTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error { return nil }); err != nil {
		t.Fatalf("WithTx error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	if err := m.WithTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMemoryManager_Noops(t *testing.T) {
	m := NewMemoryRepositoryManager()
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	if m.Conn() != nil {
		t.Fatal("expected nil conn")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}
