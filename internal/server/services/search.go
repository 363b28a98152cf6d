package services

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/server/cache"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
)

// searchIndexer recomputes a document's search field before every save.
// Reference lookups that fail contribute empty lines.
type searchIndexer struct {
	repomanager repomanager.RepositoryManager
	ftas        *cache.FTACache
	logger      logging.Logger
}

func (ix *searchIndexer) fill(ctx context.Context, db dbx.DBTX, d *models.Document) {
	var fta *models.FTA
	if d.FTAID != 0 {
		var err error
		if ix.ftas != nil {
			fta, err = ix.ftas.Get(ctx, ix.repomanager.FTAs(db), d.FTAID)
		} else {
			fta, err = ix.repomanager.FTAs(db).GetByID(ctx, d.FTAID)
		}
		if err != nil {
			ix.logger.Warn(ctx, "fta lookup failed", "document_id", d.ID, "fta_id", d.FTAID, "error", err)
			fta = nil
		}
	}

	var exporter *models.Party
	if d.ExporterID != "" {
		p, err := ix.repomanager.Parties(db).GetByID(ctx, d.ExporterID)
		if err != nil {
			ix.logger.Warn(ctx, "exporter lookup failed", "document_id", d.ID, "exporter_id", d.ExporterID, "error", err)
		} else {
			exporter = p
		}
	}

	d.FillSearchField(fta, exporter)
}
