package nodemessages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

const messageColumns = `id, document_id, created_at, status, sender_ref, subject, body, history, is_outbound`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func body(m *models.NodeMessage) []byte {
	if len(m.Body) == 0 {
		return []byte("{}")
	}
	return []byte(m.Body)
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.NodeMessage) error {
	history, err := dbx.JSONB(m.History, "[]")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	query := `INSERT INTO node_messages (id, document_id, status, sender_ref, subject, body, history, is_outbound)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		m.ID, dbx.NullString(m.DocumentID), string(m.Status), m.SenderRef, m.Subject, body(m), history, m.IsOutbound,
	).Scan(&m.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.NodeMessage, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.NodeMessage, error) {
	return r.getOne(ctx, `SELECT `+messageColumns+` FROM node_messages WHERE id = $1`, id)
}

func (r *PostgresRepository) GetBySenderRef(ctx context.Context, senderRef string) (*models.NodeMessage, error) {
	return r.getOne(ctx, `SELECT `+messageColumns+` FROM node_messages WHERE sender_ref = $1`, senderRef)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.NodeMessage, error) {
	return r.getOne(ctx, `SELECT `+messageColumns+` FROM node_messages WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.NodeMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM node_messages
		WHERE document_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select node messages: %w", err)
	}
	defer rows.Close()

	var result []*models.NodeMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert relies on the sender_ref unique constraint, so concurrent
// deliveries of one reference serialize in Postgres. xmax = 0 only for a
// freshly inserted row.
func (r *PostgresRepository) Upsert(ctx context.Context, m *models.NodeMessage, ev models.MessageEvent) (*models.NodeMessage, bool, error) {
	history, err := dbx.JSONB([]models.MessageEvent{ev}, "[]")
	if err != nil {
		return nil, false, fmt.Errorf("encode history: %w", err)
	}

	query := `INSERT INTO node_messages (id, document_id, status, sender_ref, subject, body, history, is_outbound)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sender_ref)
		DO UPDATE SET
			body = EXCLUDED.body,
			subject = COALESCE(NULLIF(EXCLUDED.subject, ''), node_messages.subject),
			document_id = COALESCE(node_messages.document_id, EXCLUDED.document_id),
			history = node_messages.history || EXCLUDED.history
		RETURNING ` + messageColumns + `, (xmax = 0) AS created`

	row := r.db.QueryRowContext(ctx, query,
		m.ID, dbx.NullString(m.DocumentID), string(m.Status), m.SenderRef, m.Subject, body(m), history, m.IsOutbound)

	var created bool
	stored, err := scanMessage(row, &created)
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return stored, created, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.MessageStatus, ev models.MessageEvent) error {
	event, err := dbx.JSONB([]models.MessageEvent{ev}, "[]")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	query := `UPDATE node_messages SET status = $2, history = history || $3::jsonb WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, string(status), event)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner, extra ...any) (*models.NodeMessage, error) {
	var (
		m          models.NodeMessage
		documentID sql.NullString
		status     string
		body       []byte
		history    []byte
	)
	dest := append([]any{&m.ID, &documentID, &m.CreatedAt, &status, &m.SenderRef, &m.Subject, &body, &history, &m.IsOutbound}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	m.DocumentID = documentID.String
	m.Status = models.MessageStatus(status)
	if len(body) > 0 {
		m.Body = append([]byte(nil), body...)
	}
	if err := dbx.ScanJSONB(history, &m.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &m, nil
}
