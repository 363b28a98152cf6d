package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

const historyColumns = `id, document_id, created_at, type, message, object_body, linked_obj_id, related_file, is_error`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, h *models.HistoryItem) error {
	query := `INSERT INTO document_history (document_id, type, message, object_body, linked_obj_id, related_file, is_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		h.DocumentID, h.Type, h.Message, h.ObjectBody, h.LinkedObjID, h.RelatedFile, h.IsError,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.HistoryItem, error) {
	query := `SELECT ` + historyColumns + ` FROM document_history
		WHERE document_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []*models.HistoryItem
	for rows.Next() {
		var h models.HistoryItem
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.CreatedAt, &h.Type, &h.Message, &h.ObjectBody,
			&h.LinkedObjID, &h.RelatedFile, &h.IsError); err != nil {
			return nil, err
		}
		result = append(result, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) LatestWrapped(ctx context.Context, documentID string) (*models.HistoryItem, error) {
	query := `SELECT ` + historyColumns + ` FROM document_history
		WHERE document_id = $1 AND message LIKE $2 AND related_file <> ''
		ORDER BY created_at DESC, id DESC LIMIT 1`

	var h models.HistoryItem
	err := r.db.QueryRowContext(ctx, query, documentID, models.WrappedMessagePrefix+"%").Scan(
		&h.ID, &h.DocumentID, &h.CreatedAt, &h.Type, &h.Message, &h.ObjectBody, &h.LinkedObjID, &h.RelatedFile, &h.IsError)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &h, nil
}
