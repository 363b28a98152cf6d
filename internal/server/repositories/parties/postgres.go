package parties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

const partyColumns = `id, created_by_user, created_by_org, type, bid_prefix, clear_business_id, business_id,
		dot_separated_id, name, country, postcode, line1, line2, city_name, subdivision_name, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Party) error {
	query := `INSERT INTO parties (` + partyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.CreatedByUser, p.CreatedByOrg, string(p.Type), p.BIDPrefix, p.ClearBusinessID, p.BusinessID,
		p.DotSeparatedID, p.Name, p.Country, p.Postcode, p.Line1, p.Line2, p.CityName, p.SubDivisionName,
	).Scan(&p.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE id = $1`

	p, err := scanParty(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) FindByBusinessID(ctx context.Context, businessID string) ([]*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties
		WHERE business_id = $1 OR clear_business_id = $1
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to select parties: %w", err)
	}
	defer rows.Close()

	var result []*models.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParty(s scanner) (*models.Party, error) {
	var p models.Party
	var typ string
	err := s.Scan(&p.ID, &p.CreatedByUser, &p.CreatedByOrg, &typ, &p.BIDPrefix, &p.ClearBusinessID, &p.BusinessID,
		&p.DotSeparatedID, &p.Name, &p.Country, &p.Postcode, &p.Line1, &p.Line2, &p.CityName, &p.SubDivisionName, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Type = models.PartyType(typ)
	return &p, nil
}
