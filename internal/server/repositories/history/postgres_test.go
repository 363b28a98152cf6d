package history

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

var columns = []string{"id", "document_id", "created_at", "type", "message", "object_body", "linked_obj_id", "related_file", "is_error"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestAppend(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+document_history\b.*RETURNING id, created_at$`).
		WithArgs("d1", "nodemessage", "rejected", "", "m1", "", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))

	h := &models.HistoryItem{DocumentID: "d1", Type: models.HistoryTypeNodeMessage, Message: "rejected", LinkedObjID: "m1", IsError: true}
	if err := repo.Append(context.Background(), h); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if h.ID != 11 || !h.CreatedAt.Equal(now) {
		t.Fatalf("id/created_at not scanned: %+v", h)
	}

	mock.ExpectQuery(`INSERT INTO document_history`).WillReturnError(errors.New("fk violation"))
	if err := repo.Append(context.Background(), &models.HistoryItem{DocumentID: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestListByDocument_Ascending(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t0 := time.Now()
	mock.ExpectQuery(`(?s)FROM document_history\s+WHERE document_id = \$1\s+ORDER BY created_at, id$`).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), "d1", t0, "status", "created", "", "", "", false).
			AddRow(int64(2), "d1", t0.Add(time.Millisecond), "nodemessage", "failed", "", "m1", "", true))

	got, err := repo.ListByDocument(context.Background(), "d1")
	if err != nil {
		t.Fatalf("ListByDocument error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || !got[1].IsError {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestLatestWrapped(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE document_id = \$1 AND message LIKE \$2 AND related_file <> ''\s+ORDER BY created_at DESC, id DESC LIMIT 1`).
		WithArgs("d1", models.WrappedMessagePrefix+"%").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(5), "d1", time.Now(), "oa", models.WrappedMessagePrefix+" and stored", "", "", "oa/d1.json", false))

	h, err := repo.LatestWrapped(context.Background(), "d1")
	if err != nil {
		t.Fatalf("LatestWrapped error: %v", err)
	}
	if h.RelatedFile != "oa/d1.json" || !h.IsWrappedMarker() {
		t.Fatalf("unexpected entry: %+v", h)
	}

	mock.ExpectQuery(`FROM document_history`).WithArgs("d2", models.WrappedMessagePrefix+"%").WillReturnError(sql.ErrNoRows)
	if _, err := repo.LatestWrapped(context.Background(), "d2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	entries := []*models.HistoryItem{
		{DocumentID: "d1", Message: models.WrappedMessagePrefix, RelatedFile: "old.json"},
		{DocumentID: "d1", Message: "status changed"},
		{DocumentID: "d1", Message: models.WrappedMessagePrefix + " again", RelatedFile: "new.json"},
		{DocumentID: "d1", Message: models.WrappedMessagePrefix},
		{DocumentID: "d2", Message: "other"},
	}
	for _, h := range entries {
		if err := r.Append(ctx, h); err != nil {
			t.Fatal(err)
		}
	}

	h, err := r.LatestWrapped(ctx, "d1")
	if err != nil || h.RelatedFile != "new.json" {
		t.Fatalf("want newest marker with file, got %v %v", h, err)
	}
	if _, err := r.LatestWrapped(ctx, "d2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	list, _ := r.ListByDocument(ctx, "d1")
	for i := 1; i < len(list); i++ {
		if list[i].ID <= list[i-1].ID || list[i].CreatedAt.Before(list[i-1].CreatedAt) {
			t.Fatalf("ledger out of order at %d", i)
		}
	}

	r.DeleteByDocument("d1")
	if list, _ := r.ListByDocument(ctx, "d1"); len(list) != 0 {
		t.Fatalf("ledger not cascaded: %+v", list)
	}
	if list, _ := r.ListByDocument(ctx, "d2"); len(list) != 1 {
		t.Fatalf("other ledger touched: %+v", list)
	}
}
