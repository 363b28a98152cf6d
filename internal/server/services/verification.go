package services

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/dmitrijs2005/tradeportal/internal/server/cache"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
)

// VerificationService writes verification results back to documents.
type VerificationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	runner      dbx.Runner
	lifecycle   models.Lifecycle
	oa          *OAService
	index       *searchIndexer
	logger      logging.Logger
}

func NewVerificationService(db *sql.DB, rm repomanager.RepositoryManager, runner dbx.Runner, lc models.Lifecycle,
	oaSvc *OAService, ftas *cache.FTACache, l logging.Logger) *VerificationService {
	l = l.With("module", "verification")
	return &VerificationService{
		db:          db,
		repomanager: rm,
		runner:      runner,
		lifecycle:   lc,
		oa:          oaSvc,
		index:       &searchIndexer{repomanager: rm, ftas: ftas, logger: l},
		logger:      l,
	}
}

// Apply records status on the document. Setting the current status again
// does nothing; failures append an error ledger entry.
func (s *VerificationService) Apply(ctx context.Context, documentID string, status models.VerificationStatus, note string) error {
	return s.runner.RunInTx(ctx, documentID, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repomanager.Documents(tx)
		d, err := docs.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		item, err := s.lifecycle.ApplyVerification(d, status, note)
		if err != nil || item == nil {
			return err
		}
		s.index.fill(ctx, tx, d)
		if err := docs.Update(ctx, d); err != nil {
			return err
		}
		return s.repomanager.History(tx).Append(ctx, item)
	})
}

// Verify checks the target hash of the document's wrapped file and applies
// the result. A document without a wrapped file ends in error.
func (s *VerificationService) Verify(ctx context.Context, documentID string) (models.VerificationStatus, error) {
	d, err := s.repomanager.Documents(s.db).GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}

	status, note := s.check(ctx, d)
	s.logger.Info(ctx, "document verified", "document_id", documentID, "status", status, "note", note)
	if err := s.Apply(ctx, documentID, status, note); err != nil {
		return "", err
	}
	return status, nil
}

func (s *VerificationService) check(ctx context.Context, d *models.Document) (models.VerificationStatus, string) {
	data, ok, err := s.oa.ResolveWrappedFile(ctx, d)
	if err != nil {
		return models.VerificationError, err.Error()
	}
	if !ok {
		return models.VerificationError, "wrapped document not found"
	}

	var w oa.WrappedDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return models.VerificationFailed, "wrapped document is malformed"
	}
	if err := w.Verify(); err != nil {
		return models.VerificationFailed, err.Error()
	}
	return models.VerificationValid, ""
}
