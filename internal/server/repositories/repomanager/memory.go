package repomanager

import (
	"context"

	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/aliases"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/blockedsenders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/folders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/memory"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/tags"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/users"
)

// MemoryRepositoryManager serves every repository from one memory.Store.
// The DBTX arguments are ignored. Transactions are serialised but have no
// rollback, and must not be nested.
type MemoryRepositoryManager struct {
	store *memory.Store
	tx    dbx.SerialTransactor
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: memory.NewStore()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Conn() dbx.DBTX { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn dbx.TxFunc) error {
	return m.tx.WithTx(ctx, fn)
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.store.Users() }

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.store.RefreshTokens()
}

func (m *MemoryRepositoryManager) Messages(dbx.DBTX) messages.Repository { return m.store.Messages() }

func (m *MemoryRepositoryManager) Folders(dbx.DBTX) folders.Repository { return m.store.Folders() }

func (m *MemoryRepositoryManager) Tags(dbx.DBTX) tags.Repository { return m.store.Tags() }

func (m *MemoryRepositoryManager) BlockedSenders(dbx.DBTX) blockedsenders.Repository {
	return m.store.BlockedSenders()
}

func (m *MemoryRepositoryManager) Aliases(dbx.DBTX) aliases.Repository { return m.store.Aliases() }
