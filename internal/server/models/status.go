package models

import (
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
)

// TransportStatus tracks the document's exchange over the peer network.
type TransportStatus string

const (
	TransportNotSent   TransportStatus = "not-sent"
	TransportPending   TransportStatus = "pending"
	TransportFailed    TransportStatus = "failed"
	TransportValidated TransportStatus = "validated"
	TransportIncoming  TransportStatus = "incoming"
)

var transportDisplay = map[TransportStatus]string{
	TransportNotSent:   "Not Sent",
	TransportPending:   "Pending",
	TransportFailed:    "Failed",
	TransportValidated: "Validated",
	TransportIncoming:  "Incoming",
}

func ParseTransportStatus(s string) (TransportStatus, error) {
	v := TransportStatus(s)
	if _, ok := transportDisplay[v]; !ok {
		return "", fmt.Errorf("%w: unknown transport status %q", common.ErrorValidation, s)
	}
	return v, nil
}

func (s TransportStatus) Display() string { return transportDisplay[s] }

// VerificationStatus is the outcome of checking a wrapped document.
type VerificationStatus string

const (
	VerificationNotStarted VerificationStatus = "not-started"
	VerificationPending    VerificationStatus = "pending"
	VerificationValid      VerificationStatus = "valid"
	VerificationFailed     VerificationStatus = "failed"
	VerificationError      VerificationStatus = "error"
)

var verificationDisplay = map[VerificationStatus]string{
	VerificationNotStarted: "Not Started",
	VerificationPending:    "Pending",
	VerificationValid:      "Valid",
	VerificationFailed:     "Failed",
	VerificationError:      "Error",
}

func ParseVerificationStatus(s string) (VerificationStatus, error) {
	v := VerificationStatus(s)
	if _, ok := verificationDisplay[v]; !ok {
		return "", fmt.Errorf("%w: unknown verification status %q", common.ErrorValidation, s)
	}
	return v, nil
}

func (s VerificationStatus) Display() string { return verificationDisplay[s] }

// IsFailure reports the outcomes that must be explained in the ledger.
func (s VerificationStatus) IsFailure() bool {
	return s == VerificationFailed || s == VerificationError
}

// WorkflowStatus is the business-visible lifecycle stage.
type WorkflowStatus string

const (
	WorkflowDraft     WorkflowStatus = "draft"
	WorkflowIssued    WorkflowStatus = "issued"
	WorkflowNotIssued WorkflowStatus = "not-issued"
	WorkflowIncoming  WorkflowStatus = "incoming"
)

var workflowDisplay = map[WorkflowStatus]string{
	WorkflowDraft:     "Draft",
	WorkflowIssued:    "Issued",
	WorkflowNotIssued: "Not issued",
	WorkflowIncoming:  "Incoming",
}

func ParseWorkflowStatus(s string) (WorkflowStatus, error) {
	v := WorkflowStatus(s)
	if _, ok := workflowDisplay[v]; !ok {
		return "", fmt.Errorf("%w: unknown workflow status %q", common.ErrorValidation, s)
	}
	return v, nil
}

func (s WorkflowStatus) Display() string { return workflowDisplay[s] }

// DocumentType classifies a certificate.
type DocumentType string

const (
	TypePrefCOO    DocumentType = "pref_coo"
	TypeNonPrefCOO DocumentType = "non_pref_coo"
)

var documentTypeDisplay = map[DocumentType]string{
	TypePrefCOO:    "Preferential Certificate of Origin",
	TypeNonPrefCOO: "Non-preferential Certificate of Origin",
}

func ParseDocumentType(s string) (DocumentType, error) {
	v := DocumentType(s)
	if _, ok := documentTypeDisplay[v]; !ok {
		return "", fmt.Errorf("%w: unknown document type %q", common.ErrorValidation, s)
	}
	return v, nil
}

func (t DocumentType) Display() string { return documentTypeDisplay[t] }

// MessageStatus is the transport status of a single NodeMessage.
type MessageStatus string

const (
	MessageSent     MessageStatus = "sent"
	MessageAccepted MessageStatus = "accepted"
	MessageRejected MessageStatus = "rejected"
	MessageInbound  MessageStatus = "inbound"
)

var messageDisplay = map[MessageStatus]string{
	MessageSent:     "Sent",
	MessageAccepted: "Accepted",
	MessageRejected: "Rejected",
	MessageInbound:  "Inbound",
}

func ParseMessageStatus(s string) (MessageStatus, error) {
	v := MessageStatus(s)
	if _, ok := messageDisplay[v]; !ok {
		return "", fmt.Errorf("%w: unknown message status %q", common.ErrorValidation, s)
	}
	return v, nil
}

func (s MessageStatus) Display() string { return messageDisplay[s] }

// IsTerminal reports whether no further transport transition is expected.
func (s MessageStatus) IsTerminal() bool {
	return s == MessageAccepted || s == MessageRejected
}

// CheckTransition validates moving a message from s to next.
// It returns duplicate=true when next equals the current status; that is a
// redelivery, not an error. Outbound messages go sent -> accepted|rejected,
// inbound messages go inbound -> accepted|rejected. Terminal statuses never
// change again.
func (s MessageStatus) CheckTransition(next MessageStatus, outbound bool) (duplicate bool, err error) {
	if _, ok := messageDisplay[next]; !ok {
		return false, fmt.Errorf("%w: unknown message status %q", common.ErrorValidation, next)
	}
	if s == next {
		return true, nil
	}
	start := MessageInbound
	if outbound {
		start = MessageSent
	}
	if s == start && next.IsTerminal() {
		return false, nil
	}
	return false, fmt.Errorf("%w: message %s -> %s (outbound=%t)", common.ErrInvalidState, s, next, outbound)
}

// PartyType is the role a party plays in trade.
type PartyType string

const (
	PartyTrader   PartyType = "t"
	PartyChambers PartyType = "c"
	PartyOther    PartyType = "o"
)

var partyTypeDisplay = map[PartyType]string{
	PartyTrader:   "Trader",
	PartyChambers: "Chambers",
	PartyOther:    "Other",
}

func ParsePartyType(s string) (PartyType, error) {
	if s == "" {
		return PartyOther, nil
	}
	v := PartyType(s)
	if _, ok := partyTypeDisplay[v]; !ok {
		return "", fmt.Errorf("%w: unknown party type %q", common.ErrorValidation, s)
	}
	return v, nil
}

func (t PartyType) Display() string { return partyTypeDisplay[t] }
