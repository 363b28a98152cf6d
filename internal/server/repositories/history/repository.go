// Package history stores the append-only document ledger.
package history

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type Repository interface {
	// Append writes an entry and fills its ID and CreatedAt.
	Append(ctx context.Context, h *models.HistoryItem) error
	// ListByDocument returns entries in ascending creation order.
	ListByDocument(ctx context.Context, documentID string) ([]*models.HistoryItem, error)
	// LatestWrapped returns the newest "wrapped" marker carrying a related
	// file, or common.ErrorNotFound.
	LatestWrapped(ctx context.Context, documentID string) (*models.HistoryItem, error)
}
