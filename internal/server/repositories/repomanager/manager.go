// Package repomanager vends repository implementations bound to a DBTX and
// runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/documents"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/files"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/ftas"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/history"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/nodemessages"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/oadetails"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/parties"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Parties(db dbx.DBTX) parties.Repository
	FTAs(db dbx.DBTX) ftas.Repository
	OaDetails(db dbx.DBTX) oadetails.Repository
	Documents(db dbx.DBTX) documents.Repository
	Files(db dbx.DBTX) files.Repository
	History(db dbx.DBTX) history.Repository
	NodeMessages(db dbx.DBTX) nodemessages.Repository
}
