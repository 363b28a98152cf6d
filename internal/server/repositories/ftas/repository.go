// Package ftas stores free trade agreements.
package ftas

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.FTA) error
	GetByID(ctx context.Context, id int64) (*models.FTA, error)
	List(ctx context.Context) ([]*models.FTA, error)
}
