package repomanager

import (
	"context"
	"database/sql"

	"github.com/accountd/accountd/internal/dbx"
	"github.com/accountd/accountd/internal/server/repositories/accounts"
	"github.com/accountd/accountd/internal/server/repositories/sessions"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same constructors against a plain connection or an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
