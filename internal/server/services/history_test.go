package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_AppendOrdersEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := h.draft(t)

	for _, msg := range []string{"first", "second"} {
		require.NoError(t, h.history.Append(ctx, &models.HistoryItem{DocumentID: d.ID, Type: models.HistoryTypeFile, Message: msg}))
	}
	items := h.ledger(t, d.ID)
	require.Len(t, items, 3)
	assert.Equal(t, "first", items[1].Message)
	assert.Equal(t, "second", items[2].Message)
	assert.Less(t, items[1].ID, items[2].ID)
	assert.False(t, items[2].CreatedAt.Before(items[1].CreatedAt))

	err := h.history.Append(ctx, &models.HistoryItem{DocumentID: "missing", Message: "x"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestHistoryService_RelatedObject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d, m := h.pending(t)
	other := h.draft(t)

	var sent *models.HistoryItem
	for _, it := range h.ledger(t, d.ID) {
		if it.Message == msgOutboundSent {
			sent = it
		}
	}
	require.NotNil(t, sent)

	got, display := h.history.RelatedObject(ctx, sent)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.SenderRef, display)

	tests := []struct {
		name string
		item *models.HistoryItem
		want string
	}{
		{"other type", &models.HistoryItem{DocumentID: d.ID, Type: models.HistoryTypeStatus, LinkedObjID: m.ID}, ""},
		{"missing message", &models.HistoryItem{DocumentID: d.ID, Type: models.HistoryTypeNodeMessage, LinkedObjID: "missing"}, models.WrongRef},
		{"message of another document", &models.HistoryItem{DocumentID: other.ID, Type: models.HistoryTypeNodeMessage, LinkedObjID: m.ID}, models.WrongRef},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, display := h.history.RelatedObject(ctx, tt.item)
			assert.Nil(t, got)
			assert.Equal(t, tt.want, display)
		})
	}
}
