package models

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lc = Lifecycle{HomeJurisdiction: "AU"}

func TestLifecycle_Initialize(t *testing.T) {
	t.Run("draft by default", func(t *testing.T) {
		d := &Document{ImportingCountry: "SG"}
		lc.Initialize(d)
		assert.Equal(t, "AU", d.SendingJurisdiction)
		assert.Equal(t, WorkflowDraft, d.WorkflowStatus)
		assert.Equal(t, TransportNotSent, d.Status)
		assert.Equal(t, VerificationNotStarted, d.VerificationStatus)
	})

	t.Run("api created is issued", func(t *testing.T) {
		d := &Document{RawCertificateData: map[string]any{"certificateOfOrigin": map[string]any{"id": "1"}}}
		lc.Initialize(d)
		assert.Equal(t, WorkflowIssued, d.WorkflowStatus)
		assert.Equal(t, TransportNotSent, d.Status)
	})

	t.Run("foreign sender is incoming", func(t *testing.T) {
		d := &Document{SendingJurisdiction: "SG", ImportingCountry: "AU",
			RawCertificateData: map[string]any{"certificateOfOrigin": map[string]any{"id": "1"}}}
		lc.Initialize(d)
		assert.True(t, d.IsIncoming("AU"))
		assert.Equal(t, WorkflowIncoming, d.WorkflowStatus)
		assert.Equal(t, TransportIncoming, d.Status)
		assert.Equal(t, VerificationNotStarted, d.VerificationStatus)
	})
}

func TestLifecycle_Issue(t *testing.T) {
	d := &Document{SendingJurisdiction: "AU", WorkflowStatus: WorkflowDraft}

	err := lc.Issue(d, "")
	assert.True(t, errors.Is(err, common.ErrorValidation))

	require.NoError(t, lc.Issue(d, "loc-1"))
	assert.Equal(t, WorkflowIssued, d.WorkflowStatus)
	assert.Equal(t, "loc-1", d.OaID)

	err = lc.Issue(d, "loc-2")
	assert.True(t, errors.Is(err, common.ErrInvalidState))
	assert.Equal(t, "loc-1", d.OaID)

	in := &Document{SendingJurisdiction: "SG", WorkflowStatus: WorkflowDraft}
	assert.True(t, errors.Is(lc.Issue(in, "loc"), common.ErrInvalidState))
}

func TestLifecycle_MarkSent(t *testing.T) {
	d := &Document{Status: TransportNotSent}
	require.NoError(t, lc.MarkSent(d))
	assert.Equal(t, TransportPending, d.Status)

	assert.True(t, errors.Is(lc.MarkSent(d), common.ErrInvalidState))

	d.Status = TransportFailed
	require.NoError(t, lc.MarkSent(d))
	assert.Equal(t, TransportPending, d.Status)
}

func TestLifecycle_MessageOutcome(t *testing.T) {
	out := &NodeMessage{ID: "m1", IsOutbound: true}
	in := &NodeMessage{ID: "m2"}

	t.Run("outbound rejected fails the document", func(t *testing.T) {
		d := &Document{ID: "d1", Status: TransportPending}
		item := lc.MessageOutcome(d, out, MessageRejected)
		require.NotNil(t, item)
		assert.Equal(t, TransportFailed, d.Status)
		assert.True(t, item.IsError)
		assert.Equal(t, HistoryTypeNodeMessage, item.Type)
		assert.Equal(t, "m1", item.LinkedObjID)
		assert.Equal(t, "d1", item.DocumentID)
		assert.Contains(t, item.Message, "rejected")
	})

	t.Run("outbound accepted validates the document", func(t *testing.T) {
		d := &Document{ID: "d1", Status: TransportPending}
		item := lc.MessageOutcome(d, out, MessageAccepted)
		require.NotNil(t, item)
		assert.Equal(t, TransportValidated, d.Status)
		assert.False(t, item.IsError)
	})

	t.Run("inbound never changes the document", func(t *testing.T) {
		for _, next := range []MessageStatus{MessageRejected, MessageAccepted} {
			d := &Document{ID: "d1", Status: TransportIncoming}
			assert.Nil(t, lc.MessageOutcome(d, in, next))
			assert.Equal(t, TransportIncoming, d.Status)
		}
	})

	t.Run("other statuses are ignored", func(t *testing.T) {
		d := &Document{ID: "d1", Status: TransportPending}
		assert.Nil(t, lc.MessageOutcome(d, out, MessageSent))
		assert.Equal(t, TransportPending, d.Status)
	})
}

func TestLifecycle_ApplyVerification(t *testing.T) {
	d := &Document{ID: "d1", VerificationStatus: VerificationNotStarted}

	item, err := lc.ApplyVerification(d, VerificationValid, "")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.False(t, item.IsError)
	assert.Equal(t, VerificationValid, d.VerificationStatus)

	item, err = lc.ApplyVerification(d, VerificationValid, "")
	require.NoError(t, err)
	assert.Nil(t, item)

	item, err = lc.ApplyVerification(d, VerificationFailed, "target hash mismatch")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.True(t, item.IsError)
	assert.Contains(t, item.Message, "target hash mismatch")

	_, err = lc.ApplyVerification(d, "bogus", "")
	assert.True(t, errors.Is(err, common.ErrorValidation))
}
