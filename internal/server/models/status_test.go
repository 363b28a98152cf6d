package models

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatuses_RejectUnknown(t *testing.T) {
	_, err := ParseTransportStatus("lost")
	assert.True(t, errors.Is(err, common.ErrorValidation))
	_, err = ParseVerificationStatus("maybe")
	assert.True(t, errors.Is(err, common.ErrorValidation))
	_, err = ParseWorkflowStatus("archived")
	assert.True(t, errors.Is(err, common.ErrorValidation))
	_, err = ParseDocumentType("invoice")
	assert.True(t, errors.Is(err, common.ErrorValidation))
	_, err = ParseMessageStatus("delivered")
	assert.True(t, errors.Is(err, common.ErrorValidation))

	s, err := ParseMessageStatus("accepted")
	require.NoError(t, err)
	assert.Equal(t, MessageAccepted, s)

	pt, err := ParsePartyType("")
	require.NoError(t, err)
	assert.Equal(t, PartyOther, pt)
}

func TestDisplayNames(t *testing.T) {
	assert.Equal(t, "Not Sent", TransportNotSent.Display())
	assert.Equal(t, "Not Started", VerificationNotStarted.Display())
	assert.Equal(t, "Not issued", WorkflowNotIssued.Display())
	assert.Equal(t, "Non-preferential Certificate of Origin", TypeNonPrefCOO.Display())
	assert.Equal(t, "Chambers", PartyChambers.Display())
	assert.Equal(t, "Inbound", MessageInbound.Display())
}

func TestMessageStatus_CheckTransition(t *testing.T) {
	cases := []struct {
		from, to  MessageStatus
		outbound  bool
		duplicate bool
		wantErr   error
	}{
		{MessageSent, MessageAccepted, true, false, nil},
		{MessageSent, MessageRejected, true, false, nil},
		{MessageInbound, MessageRejected, false, false, nil},
		{MessageInbound, MessageAccepted, false, false, nil},
		{MessageAccepted, MessageAccepted, true, true, nil},
		{MessageRejected, MessageRejected, true, true, nil},
		{MessageAccepted, MessageRejected, true, false, common.ErrInvalidState},
		{MessageRejected, MessageAccepted, true, false, common.ErrInvalidState},
		{MessageSent, MessageInbound, true, false, common.ErrInvalidState},
		{MessageInbound, MessageSent, false, false, common.ErrInvalidState},
		{MessageSent, MessageAccepted, false, false, common.ErrInvalidState},
		{MessageSent, "delivered", true, false, common.ErrorValidation},
	}
	for _, c := range cases {
		dup, err := c.from.CheckTransition(c.to, c.outbound)
		if c.wantErr != nil {
			assert.True(t, errors.Is(err, c.wantErr), "%s -> %s: %v", c.from, c.to, err)
			continue
		}
		require.NoError(t, err, "%s -> %s", c.from, c.to)
		assert.Equal(t, c.duplicate, dup, "%s -> %s", c.from, c.to)
	}
}

func TestParseDirection(t *testing.T) {
	out, err := ParseDirection("outbound")
	require.NoError(t, err)
	assert.True(t, out)

	for _, in := range []string{"", "inbound"} {
		out, err = ParseDirection(in)
		require.NoError(t, err)
		assert.False(t, out, "input %q", in)
	}

	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, common.ErrorValidation)
}
