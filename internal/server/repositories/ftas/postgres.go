package ftas

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

func (r *PostgresRepository) Create(ctx context.Context, f *models.FTA) error {
	countries, err := dbx.JSONB(f.Countries, "[]")
	if err != nil {
		return fmt.Errorf("encode countries: %w", err)
	}

	query := `INSERT INTO ftas (name, countries) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, f.Name, countries).Scan(&f.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.FTA, error) {
	query := `SELECT id, name, countries FROM ftas WHERE id = $1`

	f, err := scanFTA(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.FTA, error) {
	query := `SELECT id, name, countries FROM ftas ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select ftas: %w", err)
	}
	defer rows.Close()

	var result []*models.FTA
	for rows.Next() {
		f, err := scanFTA(rows)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanFTA(s scanner) (*models.FTA, error) {
	var f models.FTA
	var countries []byte
	if err := s.Scan(&f.ID, &f.Name, &countries); err != nil {
		return nil, err
	}
	if err := dbx.ScanJSONB(countries, &f.Countries); err != nil {
		return nil, fmt.Errorf("decode countries: %w", err)
	}
	return &f, nil
}
