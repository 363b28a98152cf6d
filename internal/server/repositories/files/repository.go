// Package files stores attachment metadata. The bytes live in blob storage.
package files

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.DocumentFile) error
	GetByID(ctx context.Context, id string) (*models.DocumentFile, error)
	// ListByDocument returns attachments oldest first.
	ListByDocument(ctx context.Context, documentID string) ([]*models.DocumentFile, error)
	// FindByFilename returns the newest attachment of the document with the
	// given declared filename.
	FindByFilename(ctx context.Context, documentID, filename string) (*models.DocumentFile, error)
	SetWatermarked(ctx context.Context, id string, state *bool) error
}
