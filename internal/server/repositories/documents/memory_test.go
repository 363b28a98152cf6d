package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

func TestMemoryRepository_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	d := draft()
	d.ExtraData = map[string]any{"k": "v"}
	if err := r.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	d.ExtraData["k"] = "mutated"

	got, err := r.GetByID(ctx, "d-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ExtraData["k"] != "v" {
		t.Fatalf("stored document shares caller map: %v", got.ExtraData)
	}
}

func TestMemoryRepository_DeleteRunsHooks(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	var deleted []string
	r.OnDelete(func(id string) { deleted = append(deleted, id) })

	if err := r.Create(ctx, draft()); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(ctx, "d-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "d-1" {
		t.Fatalf("hooks not run: %v", deleted)
	}
	if err := r.Delete(ctx, "d-1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestMemoryRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	a := draft()
	a.SearchField = "Certificate\nSingapore"
	b := draft()
	b.ID = "d-2"
	b.WorkflowStatus = models.WorkflowIssued
	b.OaID = "oa-2"
	b.SearchField = "Certificate\nChina"
	for _, d := range []*models.Document{a, b} {
		if err := r.Create(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := r.List(ctx, Filter{Search: "singapore"})
	if len(got) != 1 || got[0].ID != "d-1" {
		t.Fatalf("search filter: %+v", got)
	}
	got, _ = r.List(ctx, Filter{WorkflowStatus: models.WorkflowIssued})
	if len(got) != 1 || got[0].ID != "d-2" {
		t.Fatalf("workflow filter: %+v", got)
	}
	got, _ = r.List(ctx, Filter{Offset: 5})
	if len(got) != 0 {
		t.Fatalf("offset past end: %+v", got)
	}

	byOa, err := r.GetByOaID(ctx, "oa-2")
	if err != nil || byOa.ID != "d-2" {
		t.Fatalf("GetByOaID: %v %v", byOa, err)
	}
}
