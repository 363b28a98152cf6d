package oadetails

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.OaLocator) error {
	query := `INSERT INTO oa_locators (id, created_for, uri, key, iv_base64, tag_base64, ciphertext, oa_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		l.ID, l.CreatedFor, l.URI, l.Key, l.IVBase64, l.TagBase64, l.Ciphertext, l.OAFile,
	).Scan(&l.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.OaLocator, error) {
	query := `SELECT id, created_at, created_for, uri, key, iv_base64, tag_base64, ciphertext, oa_file
		FROM oa_locators WHERE id = $1`

	var l models.OaLocator
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &l.CreatedAt, &l.CreatedFor, &l.URI, &l.Key, &l.IVBase64, &l.TagBase64, &l.Ciphertext, &l.OAFile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &l, nil
}

func (r *PostgresRepository) Update(ctx context.Context, l *models.OaLocator) error {
	query := `UPDATE oa_locators
		SET created_for = $2, uri = $3, key = $4, iv_base64 = $5, tag_base64 = $6, ciphertext = $7, oa_file = $8
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		l.ID, l.CreatedFor, l.URI, l.Key, l.IVBase64, l.TagBase64, l.Ciphertext, l.OAFile)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SetOAFileIfEmpty(ctx context.Context, id, file string) (bool, error) {
	query := `UPDATE oa_locators SET oa_file = $2 WHERE id = $1 AND oa_file = ''`

	res, err := r.db.ExecContext(ctx, query, id, file)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}
