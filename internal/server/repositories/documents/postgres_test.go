package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

var columns = []string{"id", "oa_id", "created_at", "created_by_user", "created_by_org", "type", "document_number", "fta_id",
	"sending_jurisdiction", "importing_country", "issuer_id", "exporter_id", "importer_name", "consignment_ref",
	"intergov_details", "status", "verification_status", "workflow_status", "extra_data", "raw_certificate_data", "search_field"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func draft() *models.Document {
	return &models.Document{
		ID:                  "d-1",
		Type:                models.TypeNonPrefCOO,
		DocumentNumber:      "CO-123",
		SendingJurisdiction: "AU",
		ImportingCountry:    "SG",
		Status:              models.TransportNotSent,
		VerificationStatus:  models.VerificationNotStarted,
		WorkflowStatus:      models.WorkflowDraft,
	}
}

func row(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(
		"d-1", "oa-1", now, "u", "org", "pref_coo", "CO-1", int64(4),
		"SG", "AU", nil, "p-1", "Importer", "C-1",
		[]byte(`{"obj":"obj.json","sender":"SG"}`), "incoming", "pending", "incoming",
		[]byte(`{"qr_x":10}`), []byte(`{}`), "search")
}

func TestCreate_DraftWritesNulls(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+documents.*RETURNING created_at`).
		WithArgs("d-1", nil, "", "", "non_pref_coo", "CO-123", nil,
			"AU", "SG", nil, nil, "", "",
			[]byte(`{}`), "not-sent", "not-started", "draft", []byte(`{}`), []byte(`{}`), "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	d := draft()
	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !d.CreatedAt.Equal(now) {
		t.Fatal("created_at not scanned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByID_DecodesColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id, oa_id.*FROM documents WHERE id = \$1$`).
		WithArgs("d-1").
		WillReturnRows(row(now))

	d, err := repo.GetByID(context.Background(), "d-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if d.OaID != "oa-1" || d.FTAID != 4 || d.IssuerID != "" || d.ExporterID != "p-1" {
		t.Fatalf("references not decoded: %+v", d)
	}
	if d.IntergovDetails.Obj != "obj.json" || string(d.IntergovDetails.Extra["sender"]) != `"SG"` {
		t.Fatalf("intergov details not decoded: %+v", d.IntergovDetails)
	}
	if d.Status != models.TransportIncoming || d.WorkflowStatus != models.WorkflowIncoming {
		t.Fatalf("statuses not decoded: %+v", d)
	}
	if d.ExtraData["qr_x"] != float64(10) {
		t.Fatalf("extra data not decoded: %+v", d.ExtraData)
	}
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM documents WHERE id = \$1 FOR UPDATE`).
		WithArgs("d-1").
		WillReturnRows(row(time.Now()))
	if _, err := repo.GetForUpdate(context.Background(), "d-1"); err != nil {
		t.Fatalf("GetForUpdate error: %v", err)
	}

	mock.ExpectQuery(`FOR UPDATE`).WithArgs("gone").WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetForUpdate(context.Background(), "gone"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestGetByOaID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM documents WHERE oa_id = \$1\s+ORDER BY created_at DESC LIMIT 1`).
		WithArgs("oa-1").
		WillReturnRows(row(time.Now()))
	d, err := repo.GetByOaID(context.Background(), "oa-1")
	if err != nil || d.ID != "d-1" {
		t.Fatalf("GetByOaID: %v %v", d, err)
	}
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	d := draft()
	d.OaID = "oa-9"
	d.WorkflowStatus = models.WorkflowIssued
	mock.ExpectExec(`(?s)^UPDATE\s+documents\s+SET.*WHERE id = \$1`).
		WithArgs("d-1", "oa-9", "non_pref_coo", "CO-123", nil,
			"AU", "SG", nil, nil, "",
			"", []byte(`{}`), "not-sent", "not-started",
			"issued", []byte(`{}`), []byte(`{}`), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Update(context.Background(), d); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	mock.ExpectExec(`UPDATE documents`).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Update(context.Background(), d); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM documents WHERE id = \$1`).WithArgs("d-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), "d-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	mock.ExpectExec(`DELETE FROM documents`).WithArgs("d-1").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "d-1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestList_BuildsFilter(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM documents WHERE search_field ILIKE \$1 AND workflow_status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("%singapore%", "issued", 100, 0).
		WillReturnRows(row(time.Now()))

	got, err := repo.List(context.Background(), Filter{Search: "singapore", WorkflowStatus: models.WorkflowIssued})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 document, got %d", len(got))
	}
}

func TestList_NoFilter(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM documents ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(5, 10).
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.List(context.Background(), Filter{Limit: 5, Offset: 10})
	if err != nil || len(got) != 0 {
		t.Fatalf("List: %v %v", got, err)
	}
}
