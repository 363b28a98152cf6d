package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verificationEntries(items []*models.HistoryItem) []*models.HistoryItem {
	var out []*models.HistoryItem
	for _, it := range items {
		if it.Type == models.HistoryTypeVerification {
			out = append(out, it)
		}
	}
	return out
}

func TestVerificationService_VerifyValid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := h.issued(t)

	status, err := h.ver.Verify(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationValid, status)

	got, err := h.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationValid, got.VerificationStatus)

	entries := verificationEntries(h.ledger(t, d.ID))
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsError)

	_, err = h.ver.Verify(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, verificationEntries(h.ledger(t, d.ID)), 1)
}

func TestVerificationService_VerifyTampered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := h.issued(t)

	key := wrappedFileKey(d.OaID)
	b, err := h.blobs.Get(ctx, key)
	require.NoError(t, err)
	var w oa.WrappedDocument
	require.NoError(t, json.Unmarshal(b, &w))
	w.Data = json.RawMessage(`{"certificateOfOrigin":{"id":"FORGED"}}`)
	b, err = json.Marshal(w)
	require.NoError(t, err)
	require.NoError(t, h.blobs.Put(ctx, key, b, "application/json"))

	status, err := h.ver.Verify(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationFailed, status)

	entries := verificationEntries(h.ledger(t, d.ID))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsError)
	assert.Contains(t, entries[0].Message, oa.ErrTargetHashMismatch.Error())
}

func TestVerificationService_VerifyWithoutWrappedFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := h.incoming(t)

	status, err := h.ver.Verify(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationError, status)

	entries := verificationEntries(h.ledger(t, d.ID))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsError)
	assert.Contains(t, entries[0].Message, "wrapped document not found")

	_, err = h.ver.Verify(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVerificationService_VerifyInboundAttachment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.docs.Import(ctx, &models.Document{
		Type:                models.TypePrefCOO,
		SendingJurisdiction: "SG",
		ImportingCountry:    home,
		IntergovDetails:     models.IntergovDetails{Obj: "obj.json"},
	})
	require.NoError(t, err)
	w, err := oa.Wrap(map[string]any{"id": "peer-1"})
	require.NoError(t, err)
	b, err := json.Marshal(w)
	require.NoError(t, err)
	_, err = h.files.Store(ctx, d.ID, b, "obj.json", "node")
	require.NoError(t, err)

	status, err := h.ver.Verify(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationValid, status)
}

func TestVerificationService_Apply(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := h.incoming(t)

	require.NoError(t, h.ver.Apply(ctx, d.ID, models.VerificationPending, ""))
	require.NoError(t, h.ver.Apply(ctx, d.ID, models.VerificationPending, ""))
	assert.Len(t, verificationEntries(h.ledger(t, d.ID)), 1)

	assert.ErrorIs(t, h.ver.Apply(ctx, d.ID, models.VerificationStatus("bogus"), ""), common.ErrorValidation)
	assert.ErrorIs(t, h.ver.Apply(ctx, "missing", models.VerificationValid, ""), common.ErrorNotFound)

	got, err := h.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, got.VerificationStatus)
	assert.Equal(t, models.TransportIncoming, got.Status)
}
