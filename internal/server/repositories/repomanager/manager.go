package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/files"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/grants"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/redemptions"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/sharelinks"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX handle, so the same
// service code runs against a plain connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Files(db dbx.DBTX) files.Repository
	Grants(db dbx.DBTX) grants.Repository
	ShareLinks(db dbx.DBTX) sharelinks.Repository
	Redemptions(db dbx.DBTX) redemptions.Repository
}
