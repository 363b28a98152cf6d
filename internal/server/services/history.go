package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
)

// HistoryService reads the ledger and appends entries that are not part of
// a larger state change.
type HistoryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	runner      dbx.Runner
	logger      logging.Logger
}

func NewHistoryService(db *sql.DB, rm repomanager.RepositoryManager, runner dbx.Runner, l logging.Logger) *HistoryService {
	return &HistoryService{
		db:          db,
		repomanager: rm,
		runner:      runner,
		logger:      l.With("module", "history"),
	}
}

// Append writes h under the document's lock so ledger order matches the
// order of state changes.
func (s *HistoryService) Append(ctx context.Context, h *models.HistoryItem) error {
	return s.runner.RunInTx(ctx, h.DocumentID, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Documents(tx).GetForUpdate(ctx, h.DocumentID); err != nil {
			return fmt.Errorf("error loading document: %w", err)
		}
		return s.repomanager.History(tx).Append(ctx, h)
	})
}

func (s *HistoryService) List(ctx context.Context, documentID string) ([]*models.HistoryItem, error) {
	return s.repomanager.History(s.db).ListByDocument(ctx, documentID)
}

// RelatedObject resolves the message an entry links to. Entries of other
// types resolve to nothing. A link that cannot be resolved yields
// models.WrongRef as its display value and no error.
func (s *HistoryService) RelatedObject(ctx context.Context, h *models.HistoryItem) (*models.NodeMessage, string) {
	if h.Type != models.HistoryTypeNodeMessage {
		return nil, ""
	}
	m, err := s.repomanager.NodeMessages(s.db).GetByID(ctx, h.LinkedObjID)
	if err != nil || m.DocumentID != h.DocumentID {
		if err != nil {
			s.logger.Debug(ctx, "ledger link unresolved", "history_id", h.ID, "linked_obj_id", h.LinkedObjID, "error", err)
		}
		return nil, models.WrongRef
	}
	return m, m.String()
}
