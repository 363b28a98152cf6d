// Package documents stores trade certificates.
package documents

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	Search         string
	CreatedByOrg   string
	WorkflowStatus models.WorkflowStatus
	Limit          int
	Offset         int
}

type Repository interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	// GetForUpdate loads the document and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Document, error)
	GetByOaID(ctx context.Context, oaID string) (*models.Document, error)
	Update(ctx context.Context, d *models.Document) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]*models.Document, error)
}
