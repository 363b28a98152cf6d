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

// MemoryRepositoryManager hands out one shared in-memory instance per
// repository regardless of the DBTX passed in. Deleting a document cascades
// to its files, ledger and messages.
type MemoryRepositoryManager struct {
	parties      *parties.MemoryRepository
	ftas         *ftas.MemoryRepository
	oaDetails    *oadetails.MemoryRepository
	documents    *documents.MemoryRepository
	files        *files.MemoryRepository
	history      *history.MemoryRepository
	nodeMessages *nodemessages.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	m := &MemoryRepositoryManager{
		parties:      parties.NewMemoryRepository(),
		ftas:         ftas.NewMemoryRepository(),
		oaDetails:    oadetails.NewMemoryRepository(),
		documents:    documents.NewMemoryRepository(),
		files:        files.NewMemoryRepository(),
		history:      history.NewMemoryRepository(),
		nodeMessages: nodemessages.NewMemoryRepository(),
	}
	m.documents.OnDelete(m.files.DeleteByDocument)
	m.documents.OnDelete(m.history.DeleteByDocument)
	m.documents.OnDelete(m.nodeMessages.DeleteByDocument)
	return m
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Parties(dbx.DBTX) parties.Repository { return m.parties }

func (m *MemoryRepositoryManager) FTAs(dbx.DBTX) ftas.Repository { return m.ftas }

func (m *MemoryRepositoryManager) OaDetails(dbx.DBTX) oadetails.Repository { return m.oaDetails }

func (m *MemoryRepositoryManager) Documents(dbx.DBTX) documents.Repository { return m.documents }

func (m *MemoryRepositoryManager) Files(dbx.DBTX) files.Repository { return m.files }

func (m *MemoryRepositoryManager) History(dbx.DBTX) history.Repository { return m.history }

func (m *MemoryRepositoryManager) NodeMessages(dbx.DBTX) nodemessages.Repository { return m.nodeMessages }
