// Package oadetails stores OA locators.
package oadetails

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, l *models.OaLocator) error
	GetByID(ctx context.Context, id string) (*models.OaLocator, error)
	Update(ctx context.Context, l *models.OaLocator) error
	// SetOAFileIfEmpty records the wrapped file key unless one is already
	// set. It reports whether the row changed.
	SetOAFileIfEmpty(ctx context.Context, id, file string) (bool, error)
}
