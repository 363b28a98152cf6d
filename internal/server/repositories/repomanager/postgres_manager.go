package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/server/migrations"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/documents"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/files"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/ftas"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/history"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/nodemessages"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/oadetails"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/parties"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Parties(db dbx.DBTX) parties.Repository {
	return parties.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) FTAs(db dbx.DBTX) ftas.Repository {
	return ftas.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) OaDetails(db dbx.DBTX) oadetails.Repository {
	return oadetails.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Documents(db dbx.DBTX) documents.Repository {
	return documents.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) History(db dbx.DBTX) history.Repository {
	return history.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) NodeMessages(db dbx.DBTX) nodemessages.Repository {
	return nodemessages.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
