package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
)

const (
	HistoryTypeNodeMessage  = common.HistoryTypeNodeMessage
	HistoryTypeOA           = "oa"
	HistoryTypeStatus       = "status"
	HistoryTypeFile         = "file"
	HistoryTypeVerification = "verification"

	// WrappedMessagePrefix starts the ledger message written when an OA
	// document has been wrapped and stored.
	WrappedMessagePrefix = "OA document has been wrapped"

	// WrongRef is shown in place of a linked object that cannot be resolved.
	WrongRef = "(wrong ref)"
)

// HistoryItem is one immutable ledger entry. LinkedObjID is interpreted by
// Type; RelatedFile is a storage key.
type HistoryItem struct {
	ID          int64
	DocumentID  string
	CreatedAt   time.Time
	Type        string
	Message     string
	ObjectBody  string
	LinkedObjID string
	RelatedFile string
	IsError     bool
}

func (h *HistoryItem) String() string {
	return h.Message
}

// IsWrappedMarker reports entries pointing at a wrapped OA file.
func (h *HistoryItem) IsWrappedMarker() bool {
	return h.RelatedFile != "" && strings.HasPrefix(h.Message, WrappedMessagePrefix)
}
