package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

const fileColumns = `id, document_id, created_at, created_by, file, original_file, filename, size, is_watermarked, metadata`

// PostgresRepository implements attachment storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// Create inserts the attachment row. OriginalFile defaults to File.
func (r *PostgresRepository) Create(ctx context.Context, f *models.DocumentFile) error {
	if f.OriginalFile == "" {
		f.OriginalFile = f.File
	}
	metadata, err := dbx.JSONB(f.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := `INSERT INTO document_files (id, document_id, created_by, file, original_file, filename, size, is_watermarked, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		f.ID, f.DocumentID, f.CreatedBy, f.File, f.OriginalFile, f.Filename, f.Size, nullBool(f.IsWatermarked), metadata,
	).Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns a single attachment or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.DocumentFile, error) {
	query := `SELECT ` + fileColumns + ` FROM document_files WHERE id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// ListByDocument returns all attachments of a document.
func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.DocumentFile, error) {
	query := `SELECT ` + fileColumns + ` FROM document_files
		WHERE document_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.DocumentFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByFilename resolves an attachment by its declared filename.
func (r *PostgresRepository) FindByFilename(ctx context.Context, documentID, filename string) (*models.DocumentFile, error) {
	query := `SELECT ` + fileColumns + ` FROM document_files
		WHERE document_id = $1 AND filename = $2
		ORDER BY created_at DESC LIMIT 1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, documentID, filename))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// SetWatermarked updates the watermark tri-state. Exactly one row must be affected.
func (r *PostgresRepository) SetWatermarked(ctx context.Context, id string, state *bool) error {
	query := `UPDATE document_files SET is_watermarked = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, nullBool(state))
	if err != nil {
		return fmt.Errorf("failed to set watermark state: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.DocumentFile, error) {
	var f models.DocumentFile
	var watermarked sql.NullBool
	var metadata []byte
	err := s.Scan(&f.ID, &f.DocumentID, &f.CreatedAt, &f.CreatedBy, &f.File, &f.OriginalFile, &f.Filename,
		&f.Size, &watermarked, &metadata)
	if err != nil {
		return nil, err
	}
	if watermarked.Valid {
		v := watermarked.Bool
		f.IsWatermarked = &v
	}
	if err := dbx.ScanJSONB(metadata, &f.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &f, nil
}
