package repomanager

import (
	"context"
	"database/sql"

	"github.com/advn1/rback/internal/dbx"
	"github.com/advn1/rback/internal/server/repositories/refreshtokens"
	"github.com/advn1/rback/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same repository code on the pool or inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
