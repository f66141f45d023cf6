// Package repomanager vends repository implementations bound to a database
// handle, runs schema migrations and opens transactions. Services only see
// the RepositoryManager interface, so the same code runs over PostgreSQL and
// over the in-memory backend.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/aliases"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/blockedsenders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/folders"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/tags"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/users"
)

type RepositoryManager interface {
	dbx.Transactor

	RunMigrations(ctx context.Context) error
	// Conn is the non-transactional handle to pass to the factories.
	Conn() dbx.DBTX
	Close() error

	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Messages(db dbx.DBTX) messages.Repository
	Folders(db dbx.DBTX) folders.Repository
	Tags(db dbx.DBTX) tags.Repository
	BlockedSenders(db dbx.DBTX) blockedsenders.Repository
	Aliases(db dbx.DBTX) aliases.Repository
}
