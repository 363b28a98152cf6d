package models

import (
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
)

const (
	msgRejected = "The document marked as Failed because the outbound message has been rejected"
	msgAccepted = "The document marked as Validated because the outbound message has been accepted"
)

// Lifecycle holds the process-wide settings the state machine depends on.
type Lifecycle struct {
	HomeJurisdiction string
}

// Initialize sets the starting statuses of a new document. Documents sent by
// another jurisdiction are incoming; documents submitted with certificate
// data are already issued; everything else starts as a draft.
func (lc Lifecycle) Initialize(d *Document) {
	if d.SendingJurisdiction == "" {
		d.SendingJurisdiction = lc.HomeJurisdiction
	}
	d.VerificationStatus = VerificationNotStarted

	switch {
	case d.IsIncoming(lc.HomeJurisdiction):
		d.WorkflowStatus = WorkflowIncoming
		d.Status = TransportIncoming
	case d.IsAPICreated():
		d.WorkflowStatus = WorkflowIssued
		d.Status = TransportNotSent
	default:
		d.WorkflowStatus = WorkflowDraft
		d.Status = TransportNotSent
	}
}

// Issue moves a draft to issued behind the given locator.
func (lc Lifecycle) Issue(d *Document, locatorID string) error {
	if locatorID == "" {
		return fmt.Errorf("%w: issuing requires an OA locator", common.ErrorValidation)
	}
	if d.IsIncoming(lc.HomeJurisdiction) {
		return fmt.Errorf("%w: incoming documents cannot be issued", common.ErrInvalidState)
	}
	if d.WorkflowStatus != WorkflowDraft && d.WorkflowStatus != WorkflowNotIssued {
		return fmt.Errorf("%w: cannot issue a %s document", common.ErrInvalidState, d.WorkflowStatus)
	}
	d.OaID = locatorID
	d.WorkflowStatus = WorkflowIssued
	return nil
}

// MarkSent records the handover to the transport layer.
func (lc Lifecycle) MarkSent(d *Document) error {
	switch d.Status {
	case TransportNotSent, TransportFailed:
		d.Status = TransportPending
		return nil
	default:
		return fmt.Errorf("%w: cannot send a document in status %s", common.ErrInvalidState, d.Status)
	}
}

// MessageOutcome maps a message transition onto the document. Only outbound
// accepted/rejected change anything; the returned entry (nil otherwise) must
// be appended to the ledger together with the document update.
func (lc Lifecycle) MessageOutcome(d *Document, m *NodeMessage, next MessageStatus) *HistoryItem {
	if !m.IsOutbound {
		return nil
	}

	var item *HistoryItem
	switch next {
	case MessageRejected:
		d.Status = TransportFailed
		item = &HistoryItem{Message: msgRejected, IsError: true}
	case MessageAccepted:
		d.Status = TransportValidated
		item = &HistoryItem{Message: msgAccepted}
	default:
		return nil
	}

	item.DocumentID = d.ID
	item.Type = common.HistoryTypeNodeMessage
	item.LinkedObjID = m.ID
	return item
}

// ApplyVerification records a verification result. Failures come with an
// error ledger entry.
func (lc Lifecycle) ApplyVerification(d *Document, status VerificationStatus, note string) (*HistoryItem, error) {
	if _, err := ParseVerificationStatus(string(status)); err != nil {
		return nil, err
	}
	if d.VerificationStatus == status {
		return nil, nil
	}
	d.VerificationStatus = status

	msg := "Verification status changed to " + status.Display()
	if note != "" {
		msg += ": " + note
	}
	return &HistoryItem{
		DocumentID: d.ID,
		Type:       HistoryTypeVerification,
		Message:    msg,
		IsError:    status.IsFailure(),
	}, nil
}
