package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

const documentColumns = `id, oa_id, created_at, created_by_user, created_by_org, type, document_number, fta_id,
		sending_jurisdiction, importing_country, issuer_id, exporter_id, importer_name, consignment_ref,
		intergov_details, status, verification_status, workflow_status, extra_data, raw_certificate_data, search_field`

const defaultListLimit = 100

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type encoded struct {
	intergov, extra, raw []byte
}

func encode(d *models.Document) (encoded, error) {
	var e encoded
	var err error
	if e.intergov, err = dbx.JSONB(d.IntergovDetails, "{}"); err != nil {
		return e, fmt.Errorf("encode intergov details: %w", err)
	}
	if e.extra, err = dbx.JSONB(d.ExtraData, "{}"); err != nil {
		return e, fmt.Errorf("encode extra data: %w", err)
	}
	if e.raw, err = dbx.JSONB(d.RawCertificateData, "{}"); err != nil {
		return e, fmt.Errorf("encode certificate data: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Document) error {
	e, err := encode(d)
	if err != nil {
		return err
	}

	query := `INSERT INTO documents (id, oa_id, created_by_user, created_by_org, type, document_number, fta_id,
		sending_jurisdiction, importing_country, issuer_id, exporter_id, importer_name, consignment_ref,
		intergov_details, status, verification_status, workflow_status, extra_data, raw_certificate_data, search_field)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		d.ID, dbx.NullString(d.OaID), d.CreatedByUser, d.CreatedByOrg, string(d.Type), d.DocumentNumber, dbx.NullInt64(d.FTAID),
		d.SendingJurisdiction, d.ImportingCountry, dbx.NullString(d.IssuerID), dbx.NullString(d.ExporterID), d.ImporterName, d.ConsignmentRef,
		e.intergov, string(d.Status), string(d.VerificationStatus), string(d.WorkflowStatus), e.extra, e.raw, d.SearchField,
	).Scan(&d.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Document, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) GetByOaID(ctx context.Context, oaID string) (*models.Document, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE oa_id = $1
		ORDER BY created_at DESC LIMIT 1`, oaID)
}

func (r *PostgresRepository) Update(ctx context.Context, d *models.Document) error {
	e, err := encode(d)
	if err != nil {
		return err
	}

	query := `UPDATE documents SET oa_id = $2, type = $3, document_number = $4, fta_id = $5,
		sending_jurisdiction = $6, importing_country = $7, issuer_id = $8, exporter_id = $9, importer_name = $10,
		consignment_ref = $11, intergov_details = $12, status = $13, verification_status = $14,
		workflow_status = $15, extra_data = $16, raw_certificate_data = $17, search_field = $18
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		d.ID, dbx.NullString(d.OaID), string(d.Type), d.DocumentNumber, dbx.NullInt64(d.FTAID),
		d.SendingJurisdiction, d.ImportingCountry, dbx.NullString(d.IssuerID), dbx.NullString(d.ExporterID), d.ImporterName,
		d.ConsignmentRef, e.intergov, string(d.Status), string(d.VerificationStatus),
		string(d.WorkflowStatus), e.extra, e.raw, d.SearchField,
	)
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
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

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*models.Document, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Search != "" {
		add("search_field ILIKE $%d", "%"+f.Search+"%")
	}
	if f.CreatedByOrg != "" {
		add("created_by_org = $%d", f.CreatedByOrg)
	}
	if f.WorkflowStatus != "" {
		add("workflow_status = $%d", string(f.WorkflowStatus))
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var (
		d                         models.Document
		oaID, issuerID, exporter  sql.NullString
		ftaID                     sql.NullInt64
		typ, status, verification string
		workflow                  string
		intergov, extra, raw      []byte
	)
	err := s.Scan(&d.ID, &oaID, &d.CreatedAt, &d.CreatedByUser, &d.CreatedByOrg, &typ, &d.DocumentNumber, &ftaID,
		&d.SendingJurisdiction, &d.ImportingCountry, &issuerID, &exporter, &d.ImporterName, &d.ConsignmentRef,
		&intergov, &status, &verification, &workflow, &extra, &raw, &d.SearchField)
	if err != nil {
		return nil, err
	}

	d.OaID = oaID.String
	d.FTAID = ftaID.Int64
	d.IssuerID = issuerID.String
	d.ExporterID = exporter.String
	d.Type = models.DocumentType(typ)
	d.Status = models.TransportStatus(status)
	d.VerificationStatus = models.VerificationStatus(verification)
	d.WorkflowStatus = models.WorkflowStatus(workflow)

	if err := dbx.ScanJSONB(intergov, &d.IntergovDetails); err != nil {
		return nil, fmt.Errorf("decode intergov details: %w", err)
	}
	if err := dbx.ScanJSONB(extra, &d.ExtraData); err != nil {
		return nil, fmt.Errorf("decode extra data: %w", err)
	}
	if err := dbx.ScanJSONB(raw, &d.RawCertificateData); err != nil {
		return nil, fmt.Errorf("decode certificate data: %w", err)
	}
	return &d, nil
}
