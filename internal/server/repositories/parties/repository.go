// Package parties stores trade participant profiles.
package parties

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Party) error
	GetByID(ctx context.Context, id string) (*models.Party, error)
	// FindByBusinessID matches either the compound or the bare identifier.
	FindByBusinessID(ctx context.Context, businessID string) ([]*models.Party, error)
}
