// Package nodemessages stores messages exchanged with the peer network.
// sender_ref is unique; Upsert is the idempotent ingestion path.
package nodemessages

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.NodeMessage) error
	GetByID(ctx context.Context, id string) (*models.NodeMessage, error)
	GetBySenderRef(ctx context.Context, senderRef string) (*models.NodeMessage, error)
	// GetForUpdate loads the message and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.NodeMessage, error)
	ListByDocument(ctx context.Context, documentID string) ([]*models.NodeMessage, error)
	// Upsert inserts m or, when its sender_ref is already on file, replaces
	// the stored body and subject and appends ev to the stored history.
	// created reports which branch ran. A stored document link is never
	// replaced.
	Upsert(ctx context.Context, m *models.NodeMessage, ev models.MessageEvent) (stored *models.NodeMessage, created bool, err error)
	// UpdateStatus sets the status and appends ev to the history.
	UpdateStatus(ctx context.Context, id string, status models.MessageStatus, ev models.MessageEvent) error
}
